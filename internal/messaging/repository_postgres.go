package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	logColumns = `id::text, channel, recipients, subject, body, status, provider_id, error, attempts, created_at, updated_at`

	insertLogQuery = `
		INSERT INTO message_logs (id, channel, recipients, subject, body, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	getLogQuery        = `SELECT ` + logColumns + ` FROM message_logs WHERE id = $1`
	recordAttemptQuery = `
		UPDATE message_logs
		SET status = $1, provider_id = $2, error = $3, attempts = attempts + 1, updated_at = now()
		WHERE id = $4
		RETURNING ` + logColumns
	updateByProviderQuery = `UPDATE message_logs SET status = $1, error = $2, updated_at = now() WHERE provider_id = $3 AND status = ANY($4)`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l Log) (Log, error) {
	err := r.db.QueryRowContext(ctx, insertLogQuery,
		l.ID, l.Channel, pq.Array(l.Recipients), l.Subject, l.Body, l.Status,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Log{}, err
	}
	return l, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Log, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx, getLogQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Log{}, ErrNotFound
	}
	return l, err
}

// List returns one page of logs, newest first, with the unpaginated total.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Log, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Channel != "" {
		args = append(args, f.Channel)
		where = append(where, fmt.Sprintf("channel = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := `SELECT ` + logColumns + `, count(*) OVER () FROM message_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"
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

	out := make([]Log, 0)
	total := 0
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.Channel, pq.Array(&l.Recipients), &l.Subject, &l.Body, &l.Status,
			&l.ProviderID, &l.Error, &l.Attempts, &l.CreatedAt, &l.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) RecordAttempt(ctx context.Context, id, status, providerID, errMsg string) (Log, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx, recordAttemptQuery, status, providerID, errMsg, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Log{}, ErrNotFound
	}
	return l, err
}

func (r *PostgresRepository) UpdateByProviderID(ctx context.Context, providerID, status, errMsg string) (int, error) {
	from := eventSources[status]
	if providerID == "" || len(from) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, updateByProviderQuery, status, errMsg, providerID, pq.Array(from))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanLog(s rowScanner) (Log, error) {
	var l Log
	err := s.Scan(&l.ID, &l.Channel, pq.Array(&l.Recipients), &l.Subject, &l.Body, &l.Status,
		&l.ProviderID, &l.Error, &l.Attempts, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Log{}, err
	}
	return l, nil
}
