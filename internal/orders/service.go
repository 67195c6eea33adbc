package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/catalog"
	kafkax "github.com/abenezerz/chapa-shop/internal/kafka"
)

type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetWithItems(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, st Status) error
}

type ProductSource interface {
	ByIDs(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store       Store
	Products    ProductSource
	Producer    Publisher // optional
	Log         *zap.Logger
	ServiceName string
}

// Create validates the requested items against live product state and
// persists a PENDING order with price-snapshotted lines, or fails without
// side effects. Only ordinary users place orders.
func (s *Service) Create(ctx context.Context, caller *auth.Caller, inputs []ItemInput) (*Order, error) {
	if caller.Role != auth.RoleUser {
		return nil, auth.ErrForbidden
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyItems
	}
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.Qty <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQty, in.ProductID)
		}
		ids = append(ids, in.ProductID)
	}

	products, err := s.Products.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	o := &Order{
		ID:     uuid.NewString(),
		UserID: caller.ID,
		Status: StatusPending,
	}
	for _, in := range inputs {
		p, ok := products[in.ProductID]
		if !ok || p.Status != catalog.ProductActive {
			return nil, ErrInvalidItems
		}
		if in.Qty > p.Stock {
			return nil, &InsufficientStockError{ProductName: p.Name, Requested: in.Qty, Available: p.Stock}
		}
		o.Items = append(o.Items, Item{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Qty:       in.Qty,
			Price:     p.Price, // snapshot of the current price
		})
	}

	if err := s.Store.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publishCreated(o)
	s.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total().StringFixed(2)))
	return o, nil
}

func (s *Service) publishCreated(o *Order) {
	if s.Producer == nil {
		return
	}
	items := make([]ItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemSnapshot{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price.StringFixed(2)})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID: o.ID,
			UserID:  o.UserID,
			Items:   items,
			Total:   o.Total().StringFixed(2),
		}),
	}
	s.Producer.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// Get returns the order to its owner or to an admin. Non-owners get
// not-found rather than forbidden so order ids cannot be probed.
func (s *Service) Get(ctx context.Context, caller *auth.Caller, orderID string) (*Order, error) {
	o, err := s.Store.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller.Role != auth.RoleAdmin && o.UserID != caller.ID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, caller *auth.Caller) ([]Order, error) {
	if caller.Role == auth.RoleAdmin {
		return s.Store.ListAll(ctx)
	}
	return s.Store.ListByUser(ctx, caller.ID)
}

// UpdateStatus applies an order transition. Admins may apply any transition
// the status machine allows; a user may only cancel their own PENDING order.
func (s *Service) UpdateStatus(ctx context.Context, caller *auth.Caller, orderID, status string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	next := Status(status)

	o, err := s.Store.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller.Role != auth.RoleAdmin {
		if o.UserID != caller.ID {
			return nil, ErrOrderNotFound
		}
		if next != StatusCancelled || o.Status != StatusPending {
			return nil, ErrBadTransition
		}
	}
	if !CanTransition(o.Status, next) {
		return nil, ErrBadTransition
	}
	if err := s.Store.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, err
	}
	o.Status = next
	s.Log.Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(next)),
		zap.String("by", caller.ID))
	return o, nil
}
