package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/chapa"
	kafkax "github.com/abenezerz/chapa-shop/internal/kafka"
	"github.com/abenezerz/chapa-shop/internal/orders"
)

// amountTolerance absorbs gateway-side rounding; anything past one cent of
// drift is treated as tampering and fails closed.
var amountTolerance = decimal.New(1, -2)

type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	SaveCheckout(ctx context.Context, paymentID, checkoutURL string, raw []byte) error
	MarkFailed(ctx context.Context, paymentID, reason string, raw []byte) error
	FailAndCancelOrder(ctx context.Context, paymentID, orderID, reason string, raw []byte) error
	ByTxRef(ctx context.Context, txRef string) (*Payment, *orders.Order, error)
	CommitSuccess(ctx context.Context, c SuccessCommit) error
}

type OrderSource interface {
	GetWithItems(ctx context.Context, orderID string) (*orders.Order, error)
}

type Gateway interface {
	Initialize(ctx context.Context, req chapa.InitializeRequest) (string, []byte, error)
	Verify(ctx context.Context, txRef string) (*chapa.VerifyData, []byte, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store        Store
	Orders       OrderSource
	Gateway      Gateway
	ProducerOK   Publisher // payment.verified, optional
	ProducerFail Publisher // payment.failed, optional
	Log          *zap.Logger
	Currency     string
	ReturnURL    string // redirect-back page; tx_ref is appended
	ServiceName  string
}

// Initialize computes the order's authoritative total, records a PENDING
// payment, and obtains a checkout URL from the gateway. The payment row is
// written before the external call so a crash mid-call leaves an auditable
// trace, and the call itself runs outside any transaction.
func (s *Service) Initialize(ctx context.Context, caller *auth.Caller, orderID string) (*Payment, error) {
	o, err := s.Orders.GetWithItems(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if o.UserID != caller.ID {
		// not-yours collapses to not-found: order existence must not leak
		return nil, ErrOrderNotFound
	}
	if o.Status != orders.StatusPending {
		return nil, ErrOrderNotPayable
	}

	total := o.Total()
	if total.Sign() <= 0 {
		return nil, ErrInvalidTotal
	}

	p := &Payment{
		ID:       uuid.NewString(),
		OrderID:  o.ID,
		UserID:   caller.ID,
		TxRef:    MakeTxRef(o.ID, time.Now()),
		Amount:   total,
		Currency: s.Currency,
		Status:   StatusPending,
	}
	if err := s.Store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	checkoutURL, raw, err := s.Gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:    total.StringFixed(2),
		Currency:  s.Currency,
		Email:     caller.Email,
		FirstName: "Customer",
		TxRef:     p.TxRef,
		ReturnURL: s.ReturnURL + "?tx_ref=" + p.TxRef,
	})
	if err != nil {
		if ferr := s.Store.MarkFailed(ctx, p.ID, ReasonInitFailed, raw); ferr != nil {
			s.Log.Error("mark payment failed", zap.String("payment_id", p.ID), zap.Error(ferr))
		}
		s.Log.Warn("chapa initialize failed",
			zap.String("payment_id", p.ID),
			zap.String("tx_ref", p.TxRef),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.Store.SaveCheckout(ctx, p.ID, checkoutURL, raw); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	p.CheckoutURL = checkoutURL
	p.ChapaRaw = raw
	s.Log.Info("payment initialized",
		zap.String("payment_id", p.ID),
		zap.String("order_id", o.ID),
		zap.String("tx_ref", p.TxRef),
		zap.String("amount", total.StringFixed(2)))
	return p, nil
}

type VerifyResult struct {
	TxRef           string `json:"tx_ref"`
	OrderID         string `json:"order_id"`
	UserID          string `json:"-"`
	Status          Status `json:"status"`
	Reason          string `json:"reason,omitempty"`
	AlreadyVerified bool   `json:"-"`
}

// Verify is the reconciliation state machine shared by the user-facing
// verify endpoint, the webhook and the status check. caller is nil on the
// webhook path, which carries no user context and is trusted only because
// the gateway is re-asked directly.
func (s *Service) Verify(ctx context.Context, caller *auth.Caller, txRef string) (*VerifyResult, error) {
	p, o, err := s.Store.ByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if caller != nil && caller.Role != auth.RoleAdmin && caller.ID != p.UserID {
		return nil, auth.ErrForbidden
	}

	res := &VerifyResult{TxRef: p.TxRef, OrderID: p.OrderID, UserID: p.UserID}

	// Idempotent terminal states: no gateway call, no mutation.
	switch p.Status {
	case StatusSuccess:
		res.Status = StatusSuccess
		res.AlreadyVerified = true
		return res, nil
	case StatusFailed:
		res.Status = StatusFailed
		res.Reason = p.FailureReason
		return res, nil
	}

	// Never trust the caller's claimed status; ask the gateway.
	vd, raw, err := s.Gateway.Verify(ctx, txRef)
	if err != nil {
		s.Log.Warn("chapa verify failed",
			zap.String("tx_ref", txRef),
			zap.Error(err))
		return s.fail(ctx, res, p, o, ReasonGatewayError, raw), nil
	}
	if vd.Status != "success" {
		return s.fail(ctx, res, p, o, ReasonGatewayDenied, raw), nil
	}

	expected := o.Total()
	if vd.Amount.Sub(expected).Abs().GreaterThan(amountTolerance) {
		s.Log.Warn("payment amount mismatch",
			zap.String("tx_ref", txRef),
			zap.String("expected", expected.StringFixed(2)),
			zap.String("reported", vd.Amount.StringFixed(2)))
		return s.fail(ctx, res, p, o, ReasonAmountMismatch, raw), nil
	}

	err = s.Store.CommitSuccess(ctx, SuccessCommit{
		PaymentID:  p.ID,
		OrderID:    o.ID,
		ChapaTxnID: vd.TxnID,
		Raw:        raw,
		VerifiedAt: time.Now().UTC(),
		Items:      o.Items,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyVerified):
		// lost the race; the winner already applied the side effects
		res.Status = StatusSuccess
		res.AlreadyVerified = true
		return res, nil
	case errors.Is(err, ErrStockShort):
		return s.fail(ctx, res, p, o, ReasonStockShort, raw), nil
	default:
		return nil, fmt.Errorf("commit verified payment: %w", err)
	}

	res.Status = StatusSuccess
	s.publishVerified(p, vd)
	s.Log.Info("payment verified",
		zap.String("tx_ref", txRef),
		zap.String("order_id", o.ID),
		zap.String("amount", vd.Amount.StringFixed(2)))
	return res, nil
}

// Status is the cheap variant used by pollers: when the payment is already
// terminal it answers from the database alone; while PENDING it falls through
// to the full verification algorithm, amount check included.
func (s *Service) Status(ctx context.Context, txRef string) (*VerifyResult, error) {
	p, _, err := s.Store.ByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return &VerifyResult{
			TxRef:           p.TxRef,
			OrderID:         p.OrderID,
			UserID:          p.UserID,
			Status:          p.Status,
			Reason:          p.FailureReason,
			AlreadyVerified: p.Status == StatusSuccess,
		}, nil
	}
	return s.Verify(ctx, nil, txRef)
}

// fail marks the payment FAILED and cancels the owning order. Terminal for
// this payment; the order can be retried with a new attempt after the cancel.
func (s *Service) fail(ctx context.Context, res *VerifyResult, p *Payment, o *orders.Order, reason string, raw []byte) *VerifyResult {
	if err := s.Store.FailAndCancelOrder(ctx, p.ID, o.ID, reason, raw); err != nil {
		s.Log.Error("mark payment failed",
			zap.String("payment_id", p.ID),
			zap.String("order_id", o.ID),
			zap.Error(err))
	}
	s.publishFailed(p, reason)
	res.Status = StatusFailed
	res.Reason = reason
	return res
}

func (s *Service) publishVerified(p *Payment, vd *chapa.VerifyData) {
	if s.ProducerOK == nil {
		return
	}
	s.publish(s.ProducerOK, orders.EventPaymentVerified, p.OrderID, orders.PaymentVerifiedPayload{
		OrderID:    p.OrderID,
		PaymentID:  p.ID,
		UserID:     p.UserID,
		TxRef:      p.TxRef,
		Amount:     vd.Amount.StringFixed(2),
		Currency:   p.Currency,
		ChapaTxnID: vd.TxnID,
	})
}

func (s *Service) publishFailed(p *Payment, reason string) {
	if s.ProducerFail == nil {
		return
	}
	s.publish(s.ProducerFail, orders.EventPaymentFailed, p.OrderID, orders.PaymentFailedPayload{
		OrderID:   p.OrderID,
		PaymentID: p.ID,
		UserID:    p.UserID,
		TxRef:     p.TxRef,
		Reason:    reason,
	})
}

func (s *Service) publish(prod Publisher, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	prod.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
