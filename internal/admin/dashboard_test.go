package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/storefront-backend/internal/testutil"
)

func TestPostgresStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"count", "pending", "revenue"}).AddRow(12, 3, 450000))
	mock.ExpectQuery("FROM bookings").WithArgs("2030-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"today", "upcoming"}).AddRow(2, 5))
	mock.ExpectQuery("FROM message_logs").
		WillReturnRows(sqlmock.NewRows([]string{"sent", "failed"}).AddRow(40, 1))
	mock.ExpectQuery("FROM profiles WHERE role").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))

	s, err := NewPostgresStats(db).Stats(context.Background(), "2030-06-01")
	require.NoError(t, err)
	assert.Equal(t, Stats{Orders: 12, PendingOrders: 3, RevenueCents: 450000, BookingsToday: 2, UpcomingBookings: 5,
		MessagesSent: 40, MessagesFailed: 1, Customers: 30}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStats_WrapsFailingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM orders").WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgresStats(db).Stats(context.Background(), "2030-06-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order stats")
}

type stubStats struct {
	day string
	err error
}

func (s *stubStats) Stats(_ context.Context, today string) (Stats, error) {
	s.day = today
	return Stats{Orders: 4, Customers: 2}, s.err
}

func TestDashboardHandler(t *testing.T) {
	stub := &stubStats{}
	h := NewHandler(stub, nil)
	h.now = func() time.Time { return time.Date(2030, 6, 1, 23, 0, 0, 0, time.UTC) }
	app := testutil.NewApp()
	h.RegisterProtectedRoutes(app)

	res := testutil.Do(t, app, testutil.Request{Method: "GET", Path: "/api/admin/dashboard", UserID: "admin-1", Role: "admin"})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	stats := res.Body["stats"].(map[string]any)
	assert.EqualValues(t, 4, stats["orders"])
	assert.EqualValues(t, 2, stats["customers"])
	assert.Equal(t, "2030-06-01", stub.day)

	res = testutil.Do(t, app, testutil.Request{Method: "GET", Path: "/api/admin/dashboard", UserID: "p1", Role: "customer"})
	assert.Equal(t, fiber.StatusForbidden, res.Status)

	res = testutil.Do(t, app, testutil.Request{Method: "GET", Path: "/api/admin/dashboard"})
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)

	stub.err = errors.New("db down")
	res = testutil.Do(t, app, testutil.Request{Method: "GET", Path: "/api/admin/dashboard", UserID: "admin-1", Role: "admin"})
	assert.Equal(t, fiber.StatusInternalServerError, res.Status)
}
