package payments

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is one attempt at settling an order. An order may accumulate
// several attempts; at most one ever reaches SUCCESS, and SUCCESS is
// immutable.
type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TxRef         string          `json:"tx_ref"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	CheckoutURL   string          `json:"checkout_url,omitempty"`
	ChapaTxnID    string          `json:"chapa_txn_id,omitempty"`
	ChapaRaw      json.RawMessage `json:"-"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
}
