package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `id, category_id, name, description, price_cents, image_url, stock, active, created_at, updated_at`

	getProductByIDQuery   = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getProductsByIDsQuery = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::int[])`
	insertProductQuery    = `
		INSERT INTO products (category_id, name, description, price_cents, image_url, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	updateProductQuery = `
		UPDATE products
		SET category_id = $1,
			name = $2,
			description = $3,
			price_cents = $4,
			image_url = $5,
			stock = $6,
			active = $7,
			updated_at = now()
		WHERE id = $8
		RETURNING created_at, updated_at
	`
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List builds its WHERE clause from the non-zero fields of f and returns
// the unpaginated total through a window count.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Product, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "active")
	}
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, database.ContainsPattern(f.Query))
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + productColumns + `, count(*) OVER () FROM products`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	total := 0
	for rows.Next() {
		var p Product
		var cat sql.NullInt64
		if err := rows.Scan(&p.ID, &cat, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL,
			&p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		p.CategoryID = nullableInt(cat)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// GetByIDs loads products in a single round trip using a Postgres array.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRowContext(ctx, insertProductQuery,
		nullInt(p.CategoryID), p.Name, p.Description, p.PriceCents, p.ImageURL, p.Stock, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, p Product) (Product, error) {
	err := r.db.QueryRowContext(ctx, updateProductQuery,
		nullInt(p.CategoryID), p.Name, p.Description, p.PriceCents, p.ImageURL, p.Stock, p.Active, id,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.ID = id
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(s rowScanner) (Product, error) {
	var p Product
	var cat sql.NullInt64
	err := s.Scan(&p.ID, &cat, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL,
		&p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	p.CategoryID = nullableInt(cat)
	return p, err
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
