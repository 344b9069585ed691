// Package logout реализует HTTP-обработчик закрытия сессии.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
)

// Service описывает закрытие сессии.
type Service interface {
	SignOut(ctx context.Context)
}

// Handler обрабатывает запросы на выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Закрыть сессию
// @Description Выход выполняется всегда, даже если внешний сервис недоступен. Записи аккаунта убираются из локального списка.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /auth/session [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.service.SignOut(r.Context())

	log.Info("session closed")
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
