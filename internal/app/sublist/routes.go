// Package sublist собирает основное приложение: хранилище подписок, сессию,
// локальный снимок, уведомления и HTTP API.
package sublist

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/sublist/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/auth/session"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/dashboard/summary"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/dashboard/week"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/health"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/notification/banner"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/preferences"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/push/register"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/reset"
	"github.com/magabrotheeeer/sublist/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/sublist/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/sublist/internal/services/auth"
	notification "github.com/magabrotheeeer/sublist/internal/services/notification"
	pushservice "github.com/magabrotheeeer/sublist/internal/services/push"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// Services зависимости обработчиков.
type Services struct {
	Store      *subservice.Store
	Auth       *authservice.AuthService
	Push       *pushservice.PushService
	Dispatcher *notification.Dispatcher
	Inbox      *notification.InPageQueue
	Limiter    *rate.Limiter
	Location   *time.Location
	WeekStart  time.Weekday
	Now        func() time.Time
	Ready      func() error
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/health", health.New(logger, s.Ready).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))

		r.Get("/subscriptions", list.New(logger, s.Store).ServeHTTP)
		r.Post("/subscriptions", create.New(logger, s.Store).ServeHTTP)
		r.Delete("/subscriptions", reset.New(logger, s.Store).ServeHTTP)
		r.Get("/subscriptions/{id}", read.New(logger, s.Store).ServeHTTP)
		r.Patch("/subscriptions/{id}", update.New(logger, s.Store).ServeHTTP)
		r.Delete("/subscriptions/{id}", remove.New(logger, s.Store).ServeHTTP)

		r.Get("/dashboard", summary.New(logger, s.Store, s.Location, s.WeekStart, s.Now).ServeHTTP)
		r.Get("/dashboard/week", week.New(logger, s.Store, s.Location, s.WeekStart, s.Now).ServeHTTP)
		r.Get("/notifications/banner", banner.New(logger, s.Store, s.Dispatcher, s.Inbox, s.Location, s.Now).ServeHTTP)

		prefs := preferences.New(logger, s.Store)
		r.Get("/preferences", prefs.Get)
		r.Patch("/preferences", prefs.Update)

		r.Post("/auth/signin", signin.New(logger, s.Auth).ServeHTTP)
		r.Get("/auth/session", session.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/session", login.New(logger, s.Auth, s.Store).ServeHTTP)
		r.Delete("/auth/session", logout.New(logger, s.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Post("/push/subscriptions", register.New(logger, s.Push).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
