package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds environment-driven configuration for the API server and the
// notification worker.
type Config struct {
	Addr         string `envconfig:"APP_ADDR" default:":8080"`
	PublicAppURL string `envconfig:"PUBLIC_APP_URL" default:"http://localhost:3000"`
	AllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	ChatWidgetID string `envconfig:"CHAT_WIDGET_ID"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Auth
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpire     time.Duration `envconfig:"JWT_EXPIRE" default:"72h"`
	ProfileSecret string        `envconfig:"PROFILE_SECRET"`

	// Webhooks
	WebhookSecret    string        `envconfig:"WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `envconfig:"WEBHOOK_TOLERANCE" default:"5m"`

	// Cache
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	CategoryCacheTTL time.Duration `envconfig:"CATEGORY_CACHE_TTL" default:"1h"`
	SlotCacheTTL     time.Duration `envconfig:"SLOT_CACHE_TTL" default:"5m"`

	// Broker
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"storefront.events"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"storefront.notifications"`
	NotifyPrefetch int    `envconfig:"NOTIFY_PREFETCH" default:"8"`

	// Payment
	OmisePublicKey  string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string `envconfig:"OMISE_SECRET_KEY"`
	PaymentCurrency string `envconfig:"PAYMENT_CURRENCY" default:"thb"`

	// Messaging
	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	MailFrom      string `envconfig:"MAIL_FROM" default:"Storefront <no-reply@example.com>"`
	SMSAPIURL     string `envconfig:"SMS_API_URL"`
	SMSAccountSID string `envconfig:"SMS_ACCOUNT_SID"`
	SMSAuthToken  string `envconfig:"SMS_AUTH_TOKEN"`
	SMSFrom       string `envconfig:"SMS_FROM"`

	// Booking
	BookingSlots []string `envconfig:"BOOKING_SLOTS" default:"09:00,10:00,11:00,12:00,13:00,14:00,15:00,16:00,17:00"`

	Logger LoggerSettings `ignored:"true"`
}

// Load reads a .env file when one exists, then processes environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	logger, err := LoadLoggerSettings()
	if err != nil {
		return Config{}, err
	}
	c.Logger = logger
	return c, nil
}
