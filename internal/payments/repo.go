package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abenezerz/chapa-shop/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreatePayment(ctx context.Context, p *Payment) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO payments(id, order_id, user_id, tx_ref, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING created_at`,
		p.ID, p.OrderID, p.UserID, p.TxRef, p.Amount.String(), p.Currency, p.Status,
	).Scan(&p.CreatedAt)
}

func (r *Repo) SaveCheckout(ctx context.Context, paymentID, checkoutURL string, raw []byte) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payments SET checkout_url=$2, chapa_raw=$3, updated_at=now() WHERE id=$1`,
		paymentID, checkoutURL, raw)
	return err
}

// MarkFailed records a terminal failure on the payment alone. The PENDING
// guard keeps a concurrent success commit from ever being clobbered.
func (r *Repo) MarkFailed(ctx context.Context, paymentID, reason string, raw []byte) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payments
		SET status='FAILED', failure_reason=$2, chapa_raw=COALESCE($3, chapa_raw), updated_at=now()
		WHERE id=$1 AND status='PENDING'`,
		paymentID, reason, raw)
	return err
}

// FailAndCancelOrder marks the payment FAILED and the owning order CANCELLED
// together. The order can still be paid again through a fresh attempt.
func (r *Repo) FailAndCancelOrder(ctx context.Context, paymentID, orderID, reason string, raw []byte) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET status='FAILED', failure_reason=$2, chapa_raw=COALESCE($3, chapa_raw), updated_at=now()
		WHERE id=$1 AND status='PENDING'`,
		paymentID, reason, raw)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders SET status='CANCELLED', updated_at=now()
		WHERE id=$1 AND status='PENDING'`, orderID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ByTxRef loads the payment with its parent order and that order's items.
func (r *Repo) ByTxRef(ctx context.Context, txRef string) (*Payment, *orders.Order, error) {
	var p Payment
	var amount string
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, user_id, tx_ref, amount::text, currency, status,
		       COALESCE(checkout_url, ''), COALESCE(chapa_txn_id, ''),
		       COALESCE(failure_reason, ''), created_at, verified_at
		FROM payments WHERE tx_ref=$1`, txRef,
	).Scan(&p.ID, &p.OrderID, &p.UserID, &p.TxRef, &amount, &p.Currency, &p.Status,
		&p.CheckoutURL, &p.ChapaTxnID, &p.FailureReason, &p.CreatedAt, &p.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, nil, err
	}

	ordRepo := orders.Repo{DB: r.DB}
	o, err := ordRepo.GetWithItems(ctx, p.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return &p, o, nil
}

// SuccessCommit is the single atomic promotion of payment, order and stock.
type SuccessCommit struct {
	PaymentID  string
	OrderID    string
	ChapaTxnID string
	Raw        []byte
	VerifiedAt time.Time
	Items      []orders.Item
}

// CommitSuccess applies payment SUCCESS, order PROCESSING and one stock
// decrement per item, all in one transaction. The FOR UPDATE on the payment row serializes concurrent
// verifiers; the loser observes a non-PENDING status and gets
// ErrAlreadyVerified instead of a second decrement.
func (r *Repo) CommitSuccess(ctx context.Context, c SuccessCommit) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var st Status
	err = tx.QueryRow(ctx, `SELECT status FROM payments WHERE id=$1 FOR UPDATE`, c.PaymentID).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if st != StatusPending {
		return ErrAlreadyVerified
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET status='SUCCESS', verified_at=$2, chapa_txn_id=NULLIF($3, ''), chapa_raw=$4, updated_at=now()
		WHERE id=$1`,
		c.PaymentID, c.VerifiedAt, c.ChapaTxnID, c.Raw)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET status='PROCESSING', updated_at=now() WHERE id=$1`, c.OrderID)
	if err != nil {
		return err
	}

	for _, it := range c.Items {
		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at=now()
			WHERE id=$1 AND stock >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if ct.RowsAffected() != 1 {
			return ErrStockShort // rollback the whole commit
		}
	}
	return tx.Commit(ctx)
}
