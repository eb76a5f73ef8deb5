package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var bookingRowColumns = []string{"id", "profile_id", "client_name", "client_email", "client_phone", "service",
	"booking_date", "slot", "status", "deposit_cents", "payment_ref", "notes", "created_at", "updated_at"}

func TestPostgresRepository_CreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(nil, "Ann", "ann@example.com", "", "Grooming", "2030-06-02", "10:00", StatusPending, "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = NewPostgresRepository(db).Create(context.Background(), Booking{
		ClientName: "Ann", ClientEmail: "ann@example.com", Service: "Grooming",
		Date: "2030-06-02", Slot: "10:00", Status: StatusPending,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_TakenSlots(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT slot FROM bookings WHERE booking_date").WithArgs("2030-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"slot"}).AddRow("09:00").AddRow("13:00"))

	slots, err := NewPostgresRepository(db).TakenSlots(context.Background(), "2030-06-02")
	if err != nil {
		t.Fatalf("taken slots failed: %v", err)
	}
	if len(slots) != 2 || slots[0] != "09:00" || slots[1] != "13:00" {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestPostgresRepository_ListBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE booking_date = \$1::date AND status = \$2 ORDER BY booking_date, slot`).
		WithArgs("2030-06-02", StatusConfirmed).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow(4, nil, "Ann", "ann@example.com", "", "Grooming", "2030-06-02", "10:00", StatusConfirmed, 50000, "chrg_1", "", now, now))

	out, err := NewPostgresRepository(db).List(context.Background(), Filter{Date: "2030-06-02", Status: StatusConfirmed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != 4 || out[0].ProfileID != "" || out[0].DepositCents != 50000 {
		t.Fatalf("unexpected bookings %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_AttachDepositNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET deposit_cents").WithArgs(int64(100), "chrg_x", 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPostgresRepository(db).AttachDeposit(context.Background(), 9, 100, "chrg_x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(5).WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	if _, err := NewPostgresRepository(db).GetByID(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepository_ListByProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE profile_id = \$1 ORDER BY booking_date, slot`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow(2, "p1", "Ann", "ann@example.com", "", "Grooming", "2030-06-02", "09:00", StatusPending, 0, "", "", now, now))

	out, err := NewPostgresRepository(db).List(context.Background(), Filter{ProfileID: "p1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out) != 1 || out[0].ProfileID != "p1" {
		t.Fatalf("unexpected bookings %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatusChecksCurrentStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, updated_at = now\(\) WHERE id = \$2 AND status = \$3`).
		WithArgs(StatusConfirmed, 4, StatusPending).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(4).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow(4, nil, "Ann", "ann@example.com", "", "Grooming", "2030-06-02", "10:00", StatusCancelled, 0, "", "", now, now))

	_, err = NewPostgresRepository(db).UpdateStatus(context.Background(), 4, StatusPending, StatusConfirmed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatusMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("UPDATE bookings SET status").WithArgs(StatusPending, 4, StatusCancelled).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = NewPostgresRepository(db).UpdateStatus(context.Background(), 4, StatusCancelled, StatusPending)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}
