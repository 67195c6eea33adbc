package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated    = "OrderCreated"
	EventPaymentVerified = "PaymentVerified"
	EventPaymentFailed   = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemSnapshot struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Price     string `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID string         `json:"order_id"`
	UserID  string         `json:"user_id"`
	Items   []ItemSnapshot `json:"items"`
	Total   string         `json:"total"`
}

type PaymentVerifiedPayload struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	UserID     string `json:"user_id"`
	TxRef      string `json:"tx_ref"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ChapaTxnID string `json:"chapa_txn_id,omitempty"`
}

type PaymentFailedPayload struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	UserID    string `json:"user_id"`
	TxRef     string `json:"tx_ref"`
	Reason    string `json:"reason"`
}
