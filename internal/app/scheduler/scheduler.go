// Package scheduler содержит приложение ежедневной рассылки сводок
// о предстоящих оплатах.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sublist/internal/cache"
	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/rabbitmq"
	"github.com/magabrotheeeer/sublist/internal/remote/supabase"
	notification "github.com/magabrotheeeer/sublist/internal/services/notification"
	"github.com/magabrotheeeer/sublist/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *notification.SchedulerService
	conn             *amqp.Connection
	ch               *amqp.Channel
	db               *repository.Storage
	cache            *cache.Cache
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.conn = conn

	topo := rabbitmq.TopologyFromConfig(cfg.RabbitMQ)
	ch, err := rabbitmq.SetupChannel(conn, topo)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	app.ch = ch

	var repo notification.SubscriptionRepository
	switch cfg.Remote {
	case config.RemoteSupabase:
		repo = supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	default:
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("failed to connect storage: %w", err)
		}
		app.db = db
		if err := waitForDB(ctx, db); err != nil {
			app.closeResources()
			return nil, err
		}
		repo = db
	}

	// без Redis сводка может уйти повторно при перезапуске в тот же день
	var marker notification.Marker
	if cfg.RedisAddress != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		app.cache = cacheRedis
		marker = cacheRedis
	}

	app.schedulerService = notification.NewSchedulerService(
		repo,
		rabbitmq.NewPublisher(ch, topo),
		marker,
		cfg.Location(),
		cfg.SchedulerInterval,
		logger,
	)
	return app, nil
}

func (a *App) closeResources() {
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
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
}

// Run запускает планировщик до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	a.closeResources()
	return nil
}

// RunOnce выполняет одну рассылку и завершает работу.
func (a *App) RunOnce(ctx context.Context) error {
	defer a.closeResources()

	published, err := a.schedulerService.RunOnce(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("single run finished", slog.Int("published", published))
	return nil
}
