package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder persists the order together with its snapshotted items in one
// transaction. No stock is touched here; the decrement happens once, at
// verified-payment time.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price)
			VALUES ($1, $2, $3, $4, $5::numeric)`,
			it.ID, o.ID, it.ProductID, it.Qty, it.Price.String())
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetWithItems(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.itemsOf(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *Repo) itemsOf(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price::text
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT id, user_id, status, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT id, user_id, status, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsOf(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, orderID string, st Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}
