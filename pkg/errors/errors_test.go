package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	sqcore "github.com/square/square-go-sdk/core"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeGateway, status: http.StatusBadGateway, publicMsg: "payment processor error", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	typed := New(CodeGateway, "capture declined")
	wrapped := fmt.Errorf("capture payment: %w", typed)
	if !IsCode(wrapped, CodeGateway) {
		t.Fatalf("expected wrapped gateway error to match")
	}
	if IsCode(wrapped, CodeValidation) {
		t.Fatalf("unexpected match for validation code")
	}
	if IsCode(stdErrors.New("plain"), CodeGateway) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Fatalf("nil error is not retryable")
	}
	if !Retryable(stdErrors.New("connection reset")) {
		t.Fatalf("untyped errors are treated as transient")
	}
	if !Retryable(fmt.Errorf("sync: %w", New(CodeGateway, "timeout"))) {
		t.Fatalf("gateway errors are retryable")
	}
	if Retryable(New(CodeNotFound, "authorization missing")) {
		t.Fatalf("not found is final")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp"), "load payment")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load payment: dial tcp" {
		t.Fatalf("unexpected error string %q", got)
	}
}

type fakeProcessorError struct{}

func (fakeProcessorError) Error() string              { return "paypal 422" }
func (fakeProcessorError) Processor() string          { return "paypal" }
func (fakeProcessorError) ProcessorStatus() int       { return http.StatusUnprocessableEntity }
func (fakeProcessorError) ProcessorReference() string { return "dbg-42" }

func TestDumpProcessorFields(t *testing.T) {
	d := Dump(Wrap(CodeGateway, fakeProcessorError{}, "capture declined"))
	if d.Code != CodeGateway {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if d.Processor != "paypal" || d.ProcessorStatus != http.StatusUnprocessableEntity || d.ProcessorReference != "dbg-42" {
		t.Fatalf("processor fields missing: %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}

	fields := d.Fields()
	if fields["processor_reference"] != "dbg-42" {
		t.Fatalf("expected reference in log fields, got %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("empty fields should be omitted: %v", fields)
	}
}

func TestDumpSquareAndPostgres(t *testing.T) {
	sq := Dump(Wrap(CodeGateway, sqcore.NewAPIError(http.StatusPaymentRequired, stdErrors.New("{}")), "square charge"))
	if sq.Processor != "square" || sq.ProcessorStatus != http.StatusPaymentRequired {
		t.Fatalf("square fields missing: %+v", sq)
	}

	pg := Dump(fmt.Errorf("insert refund: %w", &pgconn.PgError{Code: "23505", ConstraintName: "refunds_processor_refund_id_key"}))
	if pg.PGCode != "23505" || pg.PGConstraint != "refunds_processor_refund_id_key" {
		t.Fatalf("pg fields missing: %+v", pg)
	}
	if pg.Code != "" {
		t.Fatalf("untyped error should have no code, got %s", pg.Code)
	}
}
