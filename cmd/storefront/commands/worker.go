package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/database"
	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/mq"
	"github.com/wichananm65/storefront-backend/internal/notify"
	"github.com/wichananm65/storefront-backend/internal/server"
)

const maxBackoff = 30 * time.Second

var workerTag string

// workerCmd consumes booking and payment events
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume domain events and send notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerTag, "tag", "storefront-notify", "Consumer tag")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(parent context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is not set")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	sender := messaging.NewService(messaging.NewPostgresRepository(db), server.Providers(cfg), log)
	worker := notify.NewWorker(sender, log)

	backoff := time.Second
	for {
		err := consume(ctx, cfg, worker, log)
		if ctx.Err() != nil {
			log.Info("worker stopped")
			return nil
		}
		if err == nil {
			backoff = time.Second
		}
		log.Warn("consumer disconnected, reconnecting", "error", err, "in", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume runs one connection's worth of deliveries. It returns when the
// broker connection drops or ctx is cancelled.
func consume(ctx context.Context, cfg config.Config, worker *notify.Worker, log *slog.Logger) error {
	consumer, err := mq.Dial(mq.ConsumerConfig{
		URL:                cfg.RabbitURL,
		Exchange:           cfg.EventsExchange,
		Queue:              cfg.NotifyQueue,
		Bindings:           notify.Bindings,
		Prefetch:           cfg.NotifyPrefetch,
		DeadLetterExchange: cfg.EventsExchange + ".dlx",
		Tag:                workerTag,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries, err := consumer.Deliveries(runCtx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	closed := consumer.NotifyClose()
	log.Info("consuming", "queue", cfg.NotifyQueue, "bindings", notify.Bindings)

	done := make(chan error, 1)
	go func() { done <- worker.Run(runCtx, deliveries) }()

	select {
	case err := <-done:
		return err
	case amqpErr := <-closed:
		cancel()
		<-done
		if amqpErr != nil {
			return amqpErr
		}
		return errors.New("connection closed")
	}
}
