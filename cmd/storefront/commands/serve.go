package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/database"
	"github.com/wichananm65/storefront-backend/internal/mq"
	"github.com/wichananm65/storefront-backend/internal/payment"
	"github.com/wichananm65/storefront-backend/internal/server"
)

var (
	// Serve flags
	addr        string
	autoMigrate bool
)

// serveCmd runs the API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides APP_ADDR)")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Ensure the schema exists before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if autoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient == nil {
		log.Warn("redis unavailable, using in-process cache", "addr", cfg.RedisAddr)
	} else {
		defer redisClient.Close()
	}

	var events mq.EventPublisher = mq.LogPublisher{Logger: log}
	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, events will only be logged", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	var processor payment.Processor = payment.DisabledProcessor{}
	if cfg.OmiseSecretKey != "" {
		p, err := payment.NewOmiseProcessor(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			return fmt.Errorf("omise client: %w", err)
		}
		processor = p
	} else {
		log.Warn("OMISE_SECRET_KEY not set, payments are disabled")
	}

	handlers := server.Wire(cfg, log, server.Deps{
		DB:        db,
		Cache:     cache.New(redisClient, "storefront:"),
		Events:    events,
		Processor: processor,
		Providers: server.Providers(cfg),
	})
	app := server.New(cfg, log, handlers)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
