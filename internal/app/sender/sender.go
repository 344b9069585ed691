// Package sender содержит приложение доставки уведомлений из очереди
// на браузеры владельцев через Web Push.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/lib/webpush"
	"github.com/magabrotheeeer/sublist/internal/rabbitmq"
	"github.com/magabrotheeeer/sublist/internal/remote/supabase"
	notification "github.com/magabrotheeeer/sublist/internal/services/notification"
	"github.com/magabrotheeeer/sublist/internal/storage/repository"
)

// App приложение отправителя.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *repository.Storage
	queue         string
	senderService *notification.SenderService
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправителя.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger, queue: cfg.RabbitMQQueue}

	var repo notification.PushRepository
	switch cfg.Remote {
	case config.RemoteSupabase:
		repo = supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	default:
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to connect storage: %w", err)
		}
		app.db = db
		repo = db
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.conn = conn

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.TopologyFromConfig(cfg.RabbitMQ))
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	app.ch = ch

	app.senderService = notification.NewSenderService(repo, webpush.NewTransport(cfg.Push, nil), logger, prometheus.DefaultRegisterer)
	return app, nil
}

// Run потребляет очередь уведомлений до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, a.queue, a.logger, func(body []byte) error {
		return a.senderService.HandleMessage(ctx, body)
	})
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.queue), sl.Err(err))
		a.close()
		return err
	}

	<-ctx.Done()
	<-done
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
