package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	bookingColumns = `id, profile_id, client_name, client_email, client_phone, service,
		to_char(booking_date, 'YYYY-MM-DD'), slot, status, deposit_cents, payment_ref, notes, created_at, updated_at`

	insertBookingQuery = `
		INSERT INTO bookings (profile_id, client_name, client_email, client_phone, service, booking_date, slot, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	getBookingQuery    = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	takenSlotsQuery    = `SELECT slot FROM bookings WHERE booking_date = $1::date AND status <> 'cancelled' ORDER BY slot`
	updateStatusQuery  = `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2 AND status = $3 RETURNING ` + bookingColumns
	attachDepositQuery = `UPDATE bookings SET deposit_cents = $1, payment_ref = $2, updated_at = now() WHERE id = $3`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b Booking) (Booking, error) {
	var profileID any
	if b.ProfileID != "" {
		profileID = b.ProfileID
	}
	err := r.db.QueryRowContext(ctx, insertBookingQuery,
		profileID, b.ClientName, b.ClientEmail, b.ClientPhone, b.Service, b.Date, b.Slot, b.Status, b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Booking{}, ErrSlotTaken
		}
		return Booking{}, err
	}
	return b, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

func (r *PostgresRepository) TakenSlots(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, takenSlotsQuery, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != "" {
		args = append(args, f.Date)
		where = append(where, fmt.Sprintf("booking_date = $%d::date", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ProfileID != "" {
		args = append(args, f.ProfileID)
		where = append(where, fmt.Sprintf("profile_id = $%d", len(args)))
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY booking_date, slot`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus is a compare-and-set on the status column. A miss means the
// booking is gone (ErrNotFound) or has moved on (ErrInvalidTransition).
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int, from, to string) (Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, updateStatusQuery, to, id, from))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Booking{}, getErr
		}
		return Booking{}, ErrInvalidTransition
	case database.IsUniqueViolation(err):
		return Booking{}, ErrSlotTaken
	}
	return b, err
}

func (r *PostgresRepository) AttachDeposit(ctx context.Context, id int, cents int64, ref string) error {
	res, err := r.db.ExecContext(ctx, attachDepositQuery, cents, ref, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBooking(s rowScanner) (Booking, error) {
	var (
		b         Booking
		profileID sql.NullString
	)
	err := s.Scan(&b.ID, &profileID, &b.ClientName, &b.ClientEmail, &b.ClientPhone, &b.Service,
		&b.Date, &b.Slot, &b.Status, &b.DepositCents, &b.PaymentRef, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, err
	}
	b.ProfileID = profileID.String
	return b, nil
}
