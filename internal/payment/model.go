package payment

import "time"

// Record is the canonical payment blob persisted on the order (payment_info).
// It is written once per successful confirmation; cancellations append, they
// never overwrite what the gateway reported.
type Record struct {
	Amount        string         `json:"amount"`
	Method        string         `json:"method"`
	PaymentKey    string         `json:"payment_key"`
	OrderID       string         `json:"order_id"`
	ReceiptURL    string         `json:"receipt_url,omitempty"`
	Fee           string         `json:"fee,omitempty"`
	Failure       string         `json:"failure,omitempty"`
	Cancellations []Cancellation `json:"cancellations,omitempty"`
}

type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Initiation is what the client hands to the gateway to start a payment.
// swagger:model
type Initiation struct {
	OrderID string `json:"order_id"`
	Amount  string `json:"amount"`
}
