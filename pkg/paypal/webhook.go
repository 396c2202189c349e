package paypal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// PayPal webhook event names consumed by the service.
const (
	EventCaptureCompleted    = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied       = "PAYMENT.CAPTURE.DENIED"
	EventCaptureRefunded     = "PAYMENT.CAPTURE.REFUNDED"
	EventAuthorizationVoided = "PAYMENT.AUTHORIZATION.VOIDED"
)

// Transmission headers PayPal sends with each delivery.
const (
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
)

const verificationSuccess = "SUCCESS"

type WebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	CreateTime   string          `json:"create_time"`
	Resource     WebhookResource `json:"resource"`
}

// WebhookResource is the subset of capture/authorization/refund resources
// needed to find the local payment source.
type WebhookResource struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Amount            *Money             `json:"amount,omitempty"`
	SupplementaryData *SupplementaryData `json:"supplementary_data,omitempty"`
	Links             []Link             `json:"links,omitempty"`
}

type SupplementaryData struct {
	RelatedIDs RelatedIDs `json:"related_ids"`
}

type RelatedIDs struct {
	OrderID         string `json:"order_id,omitempty"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	CaptureID       string `json:"capture_id,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Related returns the related ids block, never nil.
func (r WebhookResource) Related() RelatedIDs {
	if r.SupplementaryData == nil {
		return RelatedIDs{}
	}
	return r.SupplementaryData.RelatedIDs
}

// LinkedCaptureID finds the capture a refund resource points "up" to.
func (r WebhookResource) LinkedCaptureID() string {
	if id := r.Related().CaptureID; id != "" {
		return id
	}
	for _, link := range r.Links {
		if link.Rel != "up" {
			continue
		}
		const marker = "/captures/"
		if idx := strings.LastIndex(link.Href, marker); idx >= 0 {
			return strings.Trim(link.Href[idx+len(marker):], "/")
		}
	}
	return ""
}

// ParseWebhookEvent decodes a delivery body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode paypal webhook: %w", err)
	}
	if strings.TrimSpace(event.EventType) == "" {
		return nil, errors.New("paypal webhook missing event_type")
	}
	return &event, nil
}

type verifySignatureRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifySignatureResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhookSignature builds POST /v1/notifications/verify-webhook-signature
// from the delivery headers and raw body.
func VerifyWebhookSignature(webhookID string, headers http.Header, body []byte) (*Request, error) {
	if strings.TrimSpace(webhookID) == "" {
		return nil, errors.New("paypal webhook id is required")
	}
	if headers.Get(HeaderTransmissionSig) == "" {
		return nil, errors.New("paypal transmission signature missing")
	}
	return &Request{
		Method: http.MethodPost,
		Path:   "/v1/notifications/verify-webhook-signature",
		Body: verifySignatureRequest{
			AuthAlgo:         headers.Get(HeaderAuthAlgo),
			CertURL:          headers.Get(HeaderCertURL),
			TransmissionID:   headers.Get(HeaderTransmissionID),
			TransmissionSig:  headers.Get(HeaderTransmissionSig),
			TransmissionTime: headers.Get(HeaderTransmissionTime),
			WebhookID:        webhookID,
			WebhookEvent:     json.RawMessage(body),
		},
	}, nil
}

// SignatureVerified reports whether a verify-webhook-signature response succeeded.
func SignatureVerified(resp *Response) (bool, error) {
	var out verifySignatureResponse
	if err := resp.Decode(&out); err != nil {
		return false, err
	}
	return out.VerificationStatus == verificationSuccess, nil
}
