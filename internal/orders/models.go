package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Items     []Item    `json:"items,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item carries a price snapshot taken at order-creation time. It is never
// re-read from the product afterwards.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// Total is the authoritative amount an order must settle for: the sum of
// snapshotted item prices times quantities.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}
