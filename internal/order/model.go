package order

import (
	"encoding/json"
	"time"
)

// ShippingAddress is the structured delivery payload captured at checkout.
// swagger:model
type ShippingAddress struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	PostalCode string `json:"postal_code"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
}

type Order struct {
	ID      string `json:"id"`
	BuyerID string `json:"buyer_id"`
	// Total is frozen at build time; later catalog price changes never touch it.
	Total         string          `json:"total"` // NUMERIC -> string
	Status        Status          `json:"status"`
	Shipping      ShippingAddress `json:"shipping"`
	Note          string          `json:"note,omitempty"`
	PaymentKey    string          `json:"payment_key,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	PaymentInfo   json.RawMessage `json:"payment_info,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item freezes a product's name and price at purchase time. It is never
// mutated after insert, even if the product is edited or deleted later.
type Item struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	CreatedAt   time.Time `json:"created_at"`
}
