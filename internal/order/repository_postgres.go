package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	orderColumns = `id, profile_id, items, subtotal_cents, shipping_cents, total_cents, status, payment_ref, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (profile_id, items, subtotal_cents, shipping_cents, total_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	getOrderQuery      = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersQuery    = `SELECT ` + orderColumns + ` FROM orders WHERE profile_id = $1 ORDER BY id DESC`
	setPaymentRefQuery = `UPDATE orders SET payment_ref = $1, updated_at = now() WHERE id = $2`
	updateStatusQuery  = `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3 RETURNING ` + orderColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, err
	}
	err = r.db.QueryRowContext(ctx, insertOrderQuery,
		o.ProfileID, items, o.SubtotalCents, o.ShippingCents, o.TotalCents, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *PostgresRepository) ListByProfile(ctx context.Context, profileID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listOrdersQuery, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SetPaymentRef(ctx context.Context, id int, ref string) error {
	res, err := r.db.ExecContext(ctx, setPaymentRefQuery, ref, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus only matches the row while it still has status from. A miss
// is reported as ErrNotFound when the order is gone and ErrStatusChanged
// otherwise.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int, from, to string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, updateStatusQuery, to, id, from))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Order{}, getErr
		}
		return Order{}, ErrStatusChanged
	}
	return o, err
}

func scanOrder(s rowScanner) (Order, error) {
	var (
		o     Order
		items []byte
	)
	if err := s.Scan(&o.ID, &o.ProfileID, &items, &o.SubtotalCents, &o.ShippingCents, &o.TotalCents,
		&o.Status, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, err
		}
	}
	if o.Items == nil {
		o.Items = []Line{}
	}
	return o, nil
}
