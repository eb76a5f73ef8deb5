// Package admin serves the back-office dashboard.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

type Stats struct {
	Orders           int   `json:"orders"`
	PendingOrders    int   `json:"pendingOrders"`
	RevenueCents     int64 `json:"revenueCents"`
	BookingsToday    int   `json:"bookingsToday"`
	UpcomingBookings int   `json:"upcomingBookings"`
	MessagesSent     int   `json:"messagesSent"`
	MessagesFailed   int   `json:"messagesFailed"`
	Customers        int   `json:"customers"`
}

type StatsSource interface {
	Stats(ctx context.Context, today string) (Stats, error)
}

const (
	orderStatsQuery = `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'pending'),
			COALESCE(sum(total_cents) FILTER (WHERE status = 'paid'), 0)
		FROM orders
	`
	bookingStatsQuery = `
		SELECT count(*) FILTER (WHERE booking_date = $1::date),
			count(*) FILTER (WHERE booking_date >= $1::date AND status IN ('pending', 'confirmed'))
		FROM bookings
		WHERE status <> 'cancelled'
	`
	messageStatsQuery = `
		SELECT count(*) FILTER (WHERE status IN ('sent', 'delivered')),
			count(*) FILTER (WHERE status IN ('failed', 'bounced'))
		FROM message_logs
	`
	customerStatsQuery = `SELECT count(*) FROM profiles WHERE role = 'customer'`
)

type PostgresStats struct {
	db *sql.DB
}

func NewPostgresStats(db *sql.DB) *PostgresStats {
	return &PostgresStats{db: db}
}

// Stats runs one aggregate query per table.
func (p *PostgresStats) Stats(ctx context.Context, today string) (Stats, error) {
	var s Stats
	if err := p.db.QueryRowContext(ctx, orderStatsQuery).Scan(&s.Orders, &s.PendingOrders, &s.RevenueCents); err != nil {
		return Stats{}, fmt.Errorf("order stats: %w", err)
	}
	if err := p.db.QueryRowContext(ctx, bookingStatsQuery, today).Scan(&s.BookingsToday, &s.UpcomingBookings); err != nil {
		return Stats{}, fmt.Errorf("booking stats: %w", err)
	}
	if err := p.db.QueryRowContext(ctx, messageStatsQuery).Scan(&s.MessagesSent, &s.MessagesFailed); err != nil {
		return Stats{}, fmt.Errorf("message stats: %w", err)
	}
	if err := p.db.QueryRowContext(ctx, customerStatsQuery).Scan(&s.Customers); err != nil {
		return Stats{}, fmt.Errorf("customer stats: %w", err)
	}
	return s, nil
}

type Handler struct {
	stats  StatsSource
	now    func() time.Time
	logger *slog.Logger
}

func NewHandler(stats StatsSource, logger *slog.Logger) *Handler {
	return &Handler{stats: stats, now: time.Now, logger: logger}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/admin/dashboard", auth.RequireAdmin(), h.dashboard)
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	stats, err := h.stats.Stats(c.UserContext(), h.now().Format("2006-01-02"))
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"stats": stats})
}
