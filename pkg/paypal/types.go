package paypal

// Money is PayPal's amount representation. Value is a decimal string with the
// currency's minor-unit precision (for example "10.00").
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// PlatformFee is one fee withheld from the seller and paid to the platform.
type PlatformFee struct {
	Amount Money `json:"amount"`
}

type PaymentInstruction struct {
	PlatformFees     []PlatformFee `json:"platform_fees,omitempty"`
	DisbursementMode string        `json:"disbursement_mode,omitempty"`
}

// CaptureRequest is the body of POST /v2/payments/authorizations/{id}/capture.
type CaptureRequest struct {
	Amount             *Money              `json:"amount,omitempty"`
	InvoiceID          string              `json:"invoice_id,omitempty"`
	FinalCapture       bool                `json:"final_capture"`
	PaymentInstruction *PaymentInstruction `json:"payment_instruction,omitempty"`
}

// RefundRequest is the body of POST /v2/payments/captures/{id}/refund.
type RefundRequest struct {
	Amount      *Money `json:"amount,omitempty"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	NoteToPayer string `json:"note_to_payer,omitempty"`
}

type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Intent        string         `json:"intent,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type PurchaseUnit struct {
	ReferenceID string             `json:"reference_id,omitempty"`
	Payments    *PaymentCollection `json:"payments,omitempty"`
}

type PaymentCollection struct {
	Authorizations []Authorization `json:"authorizations,omitempty"`
	Captures       []Capture       `json:"captures,omitempty"`
	Refunds        []Refund        `json:"refunds,omitempty"`
}

type Authorization struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount *Money `json:"amount,omitempty"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount *Money `json:"amount,omitempty"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount *Money `json:"amount,omitempty"`
}

// Statuses reported on captures, authorizations and refunds.
const (
	StatusCreated   = "CREATED"
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
	StatusDeclined  = "DECLINED"
	StatusFailed    = "FAILED"
	StatusVoided    = "VOIDED"
	StatusCaptured  = "CAPTURED"
	StatusDenied    = "DENIED"
	StatusRefunded  = "REFUNDED"

	StatusPartiallyRefunded = "PARTIALLY_REFUNDED"
)

// ErrorDetail is one issue inside a PayPal error response.
type ErrorDetail struct {
	Field       string `json:"field,omitempty"`
	Issue       string `json:"issue"`
	Description string `json:"description,omitempty"`
}

// errorBody mirrors the PayPal error envelope.
type errorBody struct {
	Name    string        `json:"name"`
	Message string        `json:"message"`
	DebugID string        `json:"debug_id"`
	Details []ErrorDetail `json:"details"`
}
