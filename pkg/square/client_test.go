package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

func TestEnsureIdempotencyKey(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "custom-key", c.ensureIdempotencyKey("pref", "custom-key"))
	assert.True(t, strings.HasPrefix(c.ensureIdempotencyKey("payment.create", ""), "payment.create-"))
}

func TestRedact(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "[REDACTED]", c.redact("source_token", "cnon:abc123"))
	assert.Equal(t, "COMPLETED", c.redact("status", "COMPLETED"))
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusPaymentRequired, pkgerrors.CodeGateway},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, domainCodeForStatus(tt.status), "status %d", tt.status)
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusConflict,
			payload:  `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeIdempotency,
		},
		{
			name:     "card declined",
			status:   http.StatusBadRequest,
			payload:  `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED"}]}`,
			wantCode: pkgerrors.CodeGateway,
		},
	}
	for _, tt := range table {
		mapped := c.mapSquareError(sqcore.NewAPIError(tt.status, errors.New(tt.payload)), "operation")
		typed := pkgerrors.As(mapped)
		require.NotNil(t, typed, tt.name)
		assert.Equal(t, tt.wantCode, typed.Code(), tt.name)
	}

	plain := pkgerrors.As(c.mapSquareError(errors.New("dial tcp: timeout"), "get payment"))
	require.NotNil(t, plain)
	assert.Equal(t, pkgerrors.CodeDependency, plain.Code())
}

func TestExtractSquareErrors(t *testing.T) {
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	got := extractSquareErrors(sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload)))
	require.Len(t, got, 1)
	assert.Equal(t, sq.ErrorCodeBadRequest, got[0].GetCode())
}

func TestPaymentCreateParamsCarryAppFee(t *testing.T) {
	req := PaymentCreateParams{
		AmountCents: 10000,
		AppFeeCents: 1000,
		Currency:    "usd",
		LocationID:  "L1",
		SourceID:    "cnon:card",
		ReferenceID: "R100",
	}.toSquareRequest("idem-1")

	assert.Equal(t, "idem-1", req.IdempotencyKey)
	require.NotNil(t, req.AppFeeMoney)
	assert.Equal(t, int64(1000), *req.AppFeeMoney.Amount)
	assert.Equal(t, sq.Currency("USD"), *req.AppFeeMoney.Currency)
	require.NotNil(t, req.Autocomplete)
	assert.False(t, *req.Autocomplete)
}

func TestPaymentStatusHelpers(t *testing.T) {
	id := "pay_1"
	status := "completed"
	payment := &sq.Payment{ID: &id, Status: &status}
	assert.Equal(t, "pay_1", PaymentID(payment))
	assert.Equal(t, "COMPLETED", PaymentStatus(payment))
	assert.Equal(t, "", PaymentID(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"payment.updated"}`)
	url := "https://payments.example.com/api/v1/webhooks/square"
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(url))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, url, "secret", sig))
	assert.False(t, VerifySignature(body, url, "other", sig))
	assert.False(t, VerifySignature(body, url, "secret", ""))
}

func TestNormalizeEnv(t *testing.T) {
	env, err := normalizeEnv("")
	require.NoError(t, err)
	assert.Equal(t, sandboxEnv, env)
	_, err = normalizeEnv("staging")
	assert.Error(t, err)
}
