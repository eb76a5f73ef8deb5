package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery    = `SELECT items FROM carts WHERE profile_id = $1`
	ensureCartQuery = `INSERT INTO carts (profile_id) VALUES ($1) ON CONFLICT (profile_id) DO NOTHING`
	lockCartQuery   = `SELECT items FROM carts WHERE profile_id = $1 FOR UPDATE`
	updateCartQuery = `UPDATE carts SET items = $1, updated_at = now() WHERE profile_id = $2`
	clearCartQuery  = `DELETE FROM carts WHERE profile_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, profileID string) (map[int]int, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, getCartQuery, profileID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[int]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

// Adjust applies delta under a row lock so concurrent adds for the same
// profile do not lose updates.
func (r *PostgresRepository) Adjust(ctx context.Context, profileID string, productID, delta int) (map[int]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ensureCartQuery, profileID); err != nil {
		return nil, err
	}
	var raw []byte
	if err := tx.QueryRowContext(ctx, lockCartQuery, profileID).Scan(&raw); err != nil {
		return nil, err
	}
	items, err := decodeItems(raw)
	if err != nil {
		return nil, err
	}
	applyDelta(items, productID, delta)

	encoded, err := encodeItems(items)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, updateCartQuery, encoded, profileID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, profileID string) error {
	_, err := r.db.ExecContext(ctx, clearCartQuery, profileID)
	return err
}

// items are stored as a JSON object keyed by product id
func decodeItems(raw []byte) (map[int]int, error) {
	out := make(map[int]int)
	if len(raw) == 0 {
		return out, nil
	}
	var m map[string]int
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	for k, q := range m {
		id, err := strconv.Atoi(k)
		if err != nil || q <= 0 {
			continue
		}
		out[id] = q
	}
	return out, nil
}

func encodeItems(items map[int]int) ([]byte, error) {
	m := make(map[string]int, len(items))
	for id, q := range items {
		m[strconv.Itoa(id)] = q
	}
	return json.Marshal(m)
}
