package payments

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
	ErrInvalidTotal    = errors.New("invalid order total")
	ErrGateway         = errors.New("payment gateway error")

	// ErrAlreadyVerified means another caller won the race and committed the
	// success first. It resolves to "already handled", never to a user error.
	ErrAlreadyVerified = errors.New("payment already verified")

	// ErrStockShort aborts the success commit when a product can no longer
	// cover its snapshotted quantity.
	ErrStockShort = errors.New("insufficient stock at verification")
)

const (
	ReasonAmountMismatch = "amount mismatch"
	ReasonGatewayDenied  = "gateway reported failure"
	ReasonGatewayError   = "gateway verification failed"
	ReasonInitFailed     = "gateway initialize failed"
	ReasonStockShort     = "insufficient stock at verification"
)
