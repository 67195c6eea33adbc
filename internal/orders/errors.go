package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyItems    = errors.New("order needs at least one item")
	ErrInvalidQty    = errors.New("quantity must be a positive integer")
	ErrInvalidItems  = errors.New("some products are invalid or inactive")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrBadTransition = errors.New("cannot update this order")
)

// InsufficientStockError names the offending product so order-creation
// failures are actionable for the buyer.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}
