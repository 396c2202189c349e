package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 signature Square attaches to webhook deliveries.
const SignatureHeader = "x-square-hmacsha256-signature"

// VerifySignature checks a Square webhook signature, computed as the base64
// HMAC-SHA256 of the notification URL followed by the raw body.
func VerifySignature(body []byte, notificationURL, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// WebhookEvent is the envelope Square posts for payment notifications.
type WebhookEvent struct {
	MerchantID string `json:"merchant_id"`
	Type       string `json:"type"`
	EventID    string `json:"event_id"`
	CreatedAt  string `json:"created_at"`
	Data       struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Payment *WebhookPayment `json:"payment,omitempty"`
			Refund  *WebhookRefund  `json:"refund,omitempty"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookPayment is the subset of a payment object used for reconciliation.
type WebhookPayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

// WebhookRefund is the subset of a refund object used for reconciliation.
type WebhookRefund struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	PaymentID   string        `json:"payment_id"`
	AmountMoney *WebhookMoney `json:"amount_money,omitempty"`
}

// WebhookMoney is an amount in the currency's smallest unit.
type WebhookMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ParseWebhookEvent decodes a Square webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
