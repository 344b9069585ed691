package sublist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/sublist/internal/cache"
	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/lib/jwt"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/lib/webpush"
	"github.com/magabrotheeeer/sublist/internal/migrations"
	"github.com/magabrotheeeer/sublist/internal/models"
	"github.com/magabrotheeeer/sublist/internal/remote/supabase"
	authservice "github.com/magabrotheeeer/sublist/internal/services/auth"
	notification "github.com/magabrotheeeer/sublist/internal/services/notification"
	pushservice "github.com/magabrotheeeer/sublist/internal/services/push"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
	"github.com/magabrotheeeer/sublist/internal/snapshot"
	"github.com/magabrotheeeer/sublist/internal/storage/repository"
)

// Remote удалённое хранилище: подписки и push-подписки браузеров.
type Remote interface {
	subservice.RemoteStore
	UpsertPushEndpoint(ctx context.Context, ep models.PushEndpoint) error
	ListPushEndpoints(ctx context.Context, ownerID string) ([]models.PushEndpoint, error)
	DeletePushEndpoint(ctx context.Context, id string) error
}

// App основное приложение.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  *subservice.Store
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение по конфигу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	remote, remoteAuth, ready, err := app.connectRemote(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := app.snapshotBackend(ctx, cfg)
	if err != nil {
		app.close()
		return nil, err
	}
	snapshotter := snapshot.New(backend, logger)

	store := subservice.NewStore(remote, logger,
		subservice.WithState(snapshotter.Load(ctx)),
		subservice.WithMetrics(subservice.NewMetrics(prometheus.DefaultRegisterer)),
	)
	store.Subscribe(snapshotter.Listener(ctx))
	app.store = store

	authService := authservice.NewAuthService(cfg.SupabaseURL, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), remoteAuth, logger)
	authService.OnSessionChange(func(ctx context.Context, ev authservice.Event) {
		if !ev.SignedIn {
			store.SignOut()
			return
		}
		if res := store.ReconcileOnLogin(ctx, ev.Account); !res.OK() {
			logger.Warn("reconcile on login finished with error", sl.Owner(ev.Account.Owner()), sl.Err(res.Err))
		}
	})

	sender := notification.NewSenderService(remote, webpush.NewTransport(cfg.Push, nil), logger, prometheus.DefaultRegisterer)
	inbox := notification.NewInPageQueue()

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Store:      store,
		Auth:       authService,
		Push:       pushservice.NewPushService(remote, cfg.RegisterTimeout, logger),
		Dispatcher: notification.NewDispatcher(notification.NewPushChannel(sender), inbox, logger),
		Inbox:      inbox,
		Limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		Location:   cfg.Location(),
		WeekStart:  cfg.WeekStartDay(),
		Now:        time.Now,
		Ready:      ready,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// connectRemote выбирает удалённое хранилище. Для Supabase выход из сессии
// также закрывает её на стороне сервиса авторизации.
func (a *App) connectRemote(cfg *config.Config) (Remote, authservice.RemoteAuth, func() error, error) {
	switch cfg.Remote {
	case config.RemoteSupabase:
		client := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		return client, client, nil, nil
	default:
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect storage: %w", err)
		}
		if err := migrations.Run(db.DB, "./migrations"); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		a.db = db
		return db, nil, func() error { return repository.CheckDatabaseReady(db) }, nil
	}
}

func (a *App) snapshotBackend(ctx context.Context, cfg *config.Config) (snapshot.Backend, error) {
	if cfg.SnapshotBackend != config.SnapshotRedis {
		return snapshot.NewFileBackend(cfg.SnapshotPath), nil
	}
	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	a.cache = cacheRedis
	return snapshot.NewRedisBackend(cacheRedis, cfg.SnapshotKey), nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
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
