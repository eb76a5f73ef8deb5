package server

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/wichananm65/storefront-backend/internal/admin"
	"github.com/wichananm65/storefront-backend/internal/audit"
	"github.com/wichananm65/storefront-backend/internal/booking"
	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/mq"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/payment"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/profile"
)

// Deps are the long-lived clients created once at startup.
type Deps struct {
	DB        *sql.DB
	Cache     cache.Cache
	Events    mq.EventPublisher
	Processor payment.Processor
	Providers map[string]messaging.Provider
	Now       func() time.Time
}

// Handlers holds every feature handler. Fields left nil are skipped.
type Handlers struct {
	Profile   *profile.Handler
	Category  *category.Handler
	Product   *product.Handler
	Cart      *cart.Handler
	Order     *order.Handler
	Payment   *payment.Handler
	Booking   *booking.Handler
	Messaging *messaging.Handler
	Admin     *admin.Handler
}

func (h Handlers) list() []any {
	var out []any
	if h.Profile != nil {
		out = append(out, h.Profile)
	}
	if h.Category != nil {
		out = append(out, h.Category)
	}
	if h.Product != nil {
		out = append(out, h.Product)
	}
	if h.Cart != nil {
		out = append(out, h.Cart)
	}
	if h.Order != nil {
		out = append(out, h.Order)
	}
	if h.Payment != nil {
		out = append(out, h.Payment)
	}
	if h.Booking != nil {
		out = append(out, h.Booking)
	}
	if h.Messaging != nil {
		out = append(out, h.Messaging)
	}
	if h.Admin != nil {
		out = append(out, h.Admin)
	}
	return out
}

// Wire builds the Postgres-backed services and their handlers.
func Wire(cfg config.Config, logger *slog.Logger, deps Deps) Handlers {
	if deps.Events == nil {
		deps.Events = mq.LogPublisher{Logger: logger}
	}
	if deps.Processor == nil {
		deps.Processor = payment.DisabledProcessor{}
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache()
	}
	recorder := audit.NewPostgresRecorder(deps.DB)

	profiles := profile.NewService(profile.NewPostgresRepository(deps.DB), recorder, logger)
	categories := category.NewService(category.NewPostgresRepository(deps.DB), deps.Cache, cfg.CategoryCacheTTL, logger)
	products := product.NewService(product.NewPostgresRepository(deps.DB))
	carts := cart.NewService(cart.NewPostgresRepository(deps.DB), products)
	orders := order.NewService(order.NewPostgresRepository(deps.DB), carts, products, recorder, logger)
	bookings := booking.NewService(booking.NewPostgresRepository(deps.DB), booking.Options{
		Slots:    cfg.BookingSlots,
		Cache:    deps.Cache,
		CacheTTL: cfg.SlotCacheTTL,
		Audit:    recorder,
		Events:   deps.Events,
		Logger:   logger,
		Now:      deps.Now,
	})
	payments := payment.NewService(deps.Processor, orders, bookings, profiles, deps.Events, payment.Config{
		Currency:  cfg.PaymentCurrency,
		ReturnURI: strings.TrimRight(cfg.PublicAppURL, "/") + "/payment/complete",
	}, logger)
	messages := messaging.NewService(messaging.NewPostgresRepository(deps.DB), deps.Providers, logger)

	return Handlers{
		Profile: profile.NewHandler(profiles, profile.HandlerConfig{
			JWTSecret:     cfg.JWTSecret,
			JWTExpire:     cfg.JWTExpire,
			ProfileSecret: cfg.ProfileSecret,
		}, logger),
		Category: category.NewHandler(categories, logger),
		Product:  product.NewHandler(products, logger),
		Cart:     cart.NewHandler(carts, logger),
		Order:    order.NewHandler(orders, logger),
		Payment:  payment.NewHandler(payments, logger),
		Booking:  booking.NewHandler(bookings, logger),
		Messaging: messaging.NewHandler(messages, messaging.HandlerConfig{
			WebhookSecret:    cfg.WebhookSecret,
			WebhookTolerance: cfg.WebhookTolerance,
			Now:              deps.Now,
		}, logger),
		Admin: admin.NewHandler(admin.NewPostgresStats(deps.DB), logger),
	}
}

// Providers picks the real email and SMS providers when credentials are
// configured. Missing channels fall back to logging inside messaging.
func Providers(cfg config.Config) map[string]messaging.Provider {
	out := map[string]messaging.Provider{}
	if cfg.ResendAPIKey != "" {
		out[messaging.ChannelEmail] = messaging.NewResendProvider(cfg.ResendAPIKey, cfg.MailFrom)
	}
	if cfg.SMSAccountSID != "" && cfg.SMSAuthToken != "" {
		out[messaging.ChannelSMS] = messaging.NewSMSProvider(cfg.SMSAPIURL, cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFrom)
	}
	return out
}
