package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category still has products")
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price::text, stock, status, COALESCE(category_id, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Status, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, err
	}
	p.Price = d
	return p, nil
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE status='ACTIVE' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *Repo) ListAll(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ByIDs fetches the referenced products in one batch; missing ids are simply
// absent from the result map.
func (r *Repo) ByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, stock, status, category_id)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, NULLIF($7, ''))
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock, p.Status, p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) Update(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4::numeric, stock=$5, status=$6,
		    category_id=NULLIF($7, ''), updated_at=now()
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock, p.Status, p.CategoryID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	return r.DB.QueryRow(ctx, `INSERT INTO categories(id, name) VALUES ($1, $2) RETURNING created_at`,
		c.ID, c.Name).Scan(&c.CreatedAt)
}

func (r *Repo) UpdateCategory(ctx context.Context, c *Category) error {
	ct, err := r.DB.Exec(ctx, `UPDATE categories SET name=$2 WHERE id=$1`, c.ID, c.Name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory refuses to delete a category that products still reference.
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id=$1`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	ct, err := tx.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrCategoryNotFound
	}
	return tx.Commit(ctx)
}
