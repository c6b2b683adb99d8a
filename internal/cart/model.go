package cart

import "time"

type Line struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyer_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricedLine is a cart line joined with the product as the catalog has it right
// now. It is derived on every read and never persisted, so prices cannot go stale.
type PricedLine struct {
	Line
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Stock       int    `json:"stock"`
	Subtotal    string `json:"subtotal"`
}

// Summary totals the live priced snapshot.
// swagger:model
type Summary struct {
	Subtotal  string `json:"subtotal"`
	ItemCount int    `json:"item_count"`
}
