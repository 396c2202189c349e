package paypal

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var errIDRequired = errors.New("paypal resource id is required")

// AuthorizeOrder builds POST /v2/checkout/orders/{id}/authorize.
func AuthorizeOrder(orderID, requestID string) (*Request, error) {
	return orderAction(orderID, "authorize", requestID)
}

// CaptureOrder builds POST /v2/checkout/orders/{id}/capture, used for
// single-step purchases.
func CaptureOrder(orderID, requestID string) (*Request, error) {
	return orderAction(orderID, "capture", requestID)
}

// GetOrder builds GET /v2/checkout/orders/{id}.
func GetOrder(orderID string) (*Request, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errIDRequired
	}
	return &Request{
		Method: http.MethodGet,
		Path:   "/v2/checkout/orders/" + url.PathEscape(orderID),
	}, nil
}

// CaptureAuthorization builds POST /v2/payments/authorizations/{id}/capture
// carrying the platform fees in payment_instruction.
func CaptureAuthorization(authorizationID, requestID string, body CaptureRequest) (*Request, error) {
	if strings.TrimSpace(authorizationID) == "" {
		return nil, errIDRequired
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/payments/authorizations/%s/capture", url.PathEscape(authorizationID)),
		Body:   body,
	}
	setRequestID(req, requestID)
	return req, nil
}

// VoidAuthorization builds POST /v2/payments/authorizations/{id}/void. The
// auth assertion identifies the seller on whose behalf the void happens.
func VoidAuthorization(authorizationID, authAssertion string) (*Request, error) {
	if strings.TrimSpace(authorizationID) == "" {
		return nil, errIDRequired
	}
	if strings.TrimSpace(authAssertion) == "" {
		return nil, errors.New("paypal auth assertion is required to void")
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/payments/authorizations/%s/void", url.PathEscape(authorizationID)),
	}
	req.SetHeader(headerAuthAssertion, authAssertion)
	return req, nil
}

// RefundCapture builds POST /v2/payments/captures/{id}/refund. refundID is
// sent as the PayPal-Request-Id so retries stay idempotent.
func RefundCapture(captureID, refundID string, body RefundRequest) (*Request, error) {
	if strings.TrimSpace(captureID) == "" {
		return nil, errIDRequired
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/payments/captures/%s/refund", url.PathEscape(captureID)),
		Body:   body,
	}
	setRequestID(req, refundID)
	return req, nil
}

func orderAction(orderID, action, requestID string) (*Request, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errIDRequired
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/checkout/orders/%s/%s", url.PathEscape(orderID), action),
		Body:   struct{}{},
	}
	setRequestID(req, requestID)
	return req, nil
}

func setRequestID(req *Request, requestID string) {
	if strings.TrimSpace(requestID) != "" {
		req.SetHeader(headerRequestID, requestID)
	}
}
