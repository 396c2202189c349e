package paypalgw

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-payments/internal/fees"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
)

type recordingExecutor struct {
	requests []*paypal.Request
	body     string
	err      error
}

func (r *recordingExecutor) Execute(ctx context.Context, req *paypal.Request) (*paypal.Response, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &paypal.Response{StatusCode: 200, Body: []byte(r.body)}, nil
}

func newProcessor(t *testing.T, exec *recordingExecutor) *Processor {
	t.Helper()
	p, err := New(exec, config.PayPalConfig{ClientID: "client-1", PlatformMerchantID: "PLATFORM"}, nil)
	require.NoError(t, err)
	return p
}

func source(authID, captureID string) *models.PaymentSource {
	s := &models.PaymentSource{ID: uuid.New(), ExternalOrderID: "ORDER-1", Processor: enums.PaymentProcessorPayPal}
	if authID != "" {
		s.AuthorizationID = &authID
	}
	if captureID != "" {
		s.CaptureID = &captureID
	}
	return s
}

func TestAuthorizeParsesOrderOutcome(t *testing.T) {
	exec := &recordingExecutor{body: `{"id":"ORDER-1","status":"COMPLETED","purchase_units":[{"payments":{"authorizations":[{"id":"AUTH-1","status":"CREATED"}]}}]}`}
	p := newProcessor(t, exec)

	resp, err := p.Authorize(context.Background(), &gateway.Request{
		Operation: gateway.OpAuthorize,
		Source:    source("", ""),
		Context:   gateway.OperationContext{RequestID: "req-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AUTH-1", resp.AuthorizationID)
	assert.False(t, resp.Declined)
	assert.Equal(t, "/v2/checkout/orders/ORDER-1/authorize", exec.requests[0].Path)
	assert.Equal(t, "req-1", exec.requests[0].Headers["PayPal-Request-Id"])
}

func TestPurchaseDeclinedCapture(t *testing.T) {
	exec := &recordingExecutor{body: `{"id":"ORDER-1","purchase_units":[{"payments":{"captures":[{"id":"CAP-1","status":"DECLINED"}]}}]}`}
	resp, err := newProcessor(t, exec).Purchase(context.Background(), &gateway.Request{Source: source("", "")})
	require.NoError(t, err)
	assert.True(t, resp.Declined)
	assert.Equal(t, "CAP-1", resp.CaptureID)
	assert.Contains(t, resp.Message, "declined")
	assert.Equal(t, "/v2/checkout/orders/ORDER-1/capture", exec.requests[0].Path)
}

func TestCaptureSendsPlatformFees(t *testing.T) {
	exec := &recordingExecutor{body: `{"id":"CAP-1","status":"COMPLETED"}`}
	p := newProcessor(t, exec)

	resp, err := p.Capture(context.Background(), &gateway.Request{
		AmountCents: 10000,
		Currency:    "usd",
		Source:      source("AUTH-1", ""),
		Fees: []fees.PlatformFee{
			{CurrencyCode: "USD", Value: decimal.RequireFromString("10")},
			{CurrencyCode: "USD", Value: decimal.RequireFromString("2.5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "CAP-1", resp.CaptureID)

	req := exec.requests[0]
	assert.Equal(t, "/v2/payments/authorizations/AUTH-1/capture", req.Path)
	body := req.Body.(paypal.CaptureRequest)
	assert.Equal(t, "100.00", body.Amount.Value)
	assert.Equal(t, "USD", body.Amount.CurrencyCode)
	assert.True(t, body.FinalCapture)
	require.NotNil(t, body.PaymentInstruction)
	require.Len(t, body.PaymentInstruction.PlatformFees, 2)
	assert.Equal(t, "10.00", body.PaymentInstruction.PlatformFees[0].Amount.Value)
	assert.Equal(t, "2.50", body.PaymentInstruction.PlatformFees[1].Amount.Value)
}

func TestCaptureWithoutFeesOmitsInstruction(t *testing.T) {
	exec := &recordingExecutor{body: `{"id":"CAP-1","status":"COMPLETED"}`}
	_, err := newProcessor(t, exec).Capture(context.Background(), &gateway.Request{
		AmountCents: 500, Currency: "JPY", Source: source("AUTH-1", ""),
	})
	require.NoError(t, err)
	body := exec.requests[0].Body.(paypal.CaptureRequest)
	assert.Nil(t, body.PaymentInstruction)
	assert.Equal(t, "500", body.Amount.Value)
}

func TestVoidUsesSellerAssertionThenPlatform(t *testing.T) {
	exec := &recordingExecutor{}
	p := newProcessor(t, exec)

	resp, err := p.Void(context.Background(), &gateway.Request{
		Source:  source("AUTH-1", ""),
		Context: gateway.OperationContext{AuthAssertionSubject: "SELLER-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, paypal.StatusVoided, resp.Status)

	seller, err := paypal.AuthAssertion("client-1", "SELLER-1")
	require.NoError(t, err)
	assert.Equal(t, seller, exec.requests[0].Headers["PayPal-Auth-Assertion"])

	_, err = p.Void(context.Background(), &gateway.Request{Source: source("AUTH-1", "")})
	require.NoError(t, err)
	platform, err := paypal.AuthAssertion("client-1", "PLATFORM")
	require.NoError(t, err)
	assert.Equal(t, platform, exec.requests[1].Headers["PayPal-Auth-Assertion"])
}

func TestCreditUsesRefundIDAsRequestID(t *testing.T) {
	exec := &recordingExecutor{body: `{"id":"REF-1","status":"COMPLETED"}`}
	refundID := uuid.New()
	resp, err := newProcessor(t, exec).Credit(context.Background(), &gateway.Request{
		AmountCents: 250,
		Currency:    "USD",
		Source:      source("AUTH-1", "CAP-1"),
		Context:     gateway.OperationContext{RefundID: refundID},
	})
	require.NoError(t, err)
	assert.Equal(t, "REF-1", resp.RefundID)
	assert.False(t, resp.Declined)
	assert.Equal(t, refundID.String(), exec.requests[0].Headers["PayPal-Request-Id"])
	assert.Equal(t, "2.50", exec.requests[0].Body.(paypal.RefundRequest).Amount.Value)
}

func TestSyncMapsOrderState(t *testing.T) {
	cases := []struct {
		body  string
		state enums.PaymentSourceStatus
	}{
		{`{"id":"O","purchase_units":[{"payments":{"authorizations":[{"id":"A","status":"CREATED"}]}}]}`, enums.PaymentSourceStatusAuthorized},
		{`{"id":"O","purchase_units":[{"payments":{"authorizations":[{"id":"A","status":"CAPTURED"}],"captures":[{"id":"C","status":"COMPLETED"}]}}]}`, enums.PaymentSourceStatusCompleted},
		{`{"id":"O","purchase_units":[{"payments":{"authorizations":[{"id":"A","status":"VOIDED"}]}}]}`, enums.PaymentSourceStatusVoided},
		{`{"id":"O","purchase_units":[{"payments":{"captures":[{"id":"C","status":"DECLINED"}]}}]}`, enums.PaymentSourceStatusFailed},
		{`{"id":"O","status":"APPROVED","purchase_units":[{}]}`, enums.PaymentSourceStatusPending},
	}
	for _, tc := range cases {
		exec := &recordingExecutor{body: tc.body}
		resp, err := newProcessor(t, exec).Sync(context.Background(), &gateway.Request{Source: source("", "")})
		require.NoError(t, err)
		assert.Equal(t, tc.state, resp.State, tc.body)
		assert.False(t, resp.Declined)
	}

	exec := &recordingExecutor{body: `{"id":"O","purchase_units":[{"payments":{"authorizations":[{"id":"A","status":"CAPTURED"}],"captures":[{"id":"C","status":"COMPLETED"}]}}]}`}
	resp, err := newProcessor(t, exec).Sync(context.Background(), &gateway.Request{Source: source("", "")})
	require.NoError(t, err)
	assert.Equal(t, "C", resp.CaptureID)
	assert.Equal(t, "A", resp.AuthorizationID)
	assert.Equal(t, "/v2/checkout/orders/ORDER-1", exec.requests[0].Path)
}

func TestNewRequiresExecutorClientAndPlatformMerchant(t *testing.T) {
	_, err := New(nil, config.PayPalConfig{ClientID: "x", PlatformMerchantID: "P"}, nil)
	assert.Error(t, err)
	_, err = New(&recordingExecutor{}, config.PayPalConfig{PlatformMerchantID: "P"}, nil)
	assert.Error(t, err)
	_, err = New(&recordingExecutor{}, config.PayPalConfig{ClientID: "x"}, nil)
	assert.Error(t, err)
}
