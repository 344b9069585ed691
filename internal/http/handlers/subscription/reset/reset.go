// Package reset реализует HTTP-обработчик удаления всех подписок.
package reset

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// Handler управляет HTTP-запросами на очистку списка.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс очистки списка подписок.
type Service interface {
	ResetAll(ctx context.Context) subservice.Result
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить все подписки
// @Description Очищает локальный список, для вошедшего пользователя удаляет и его записи в удалённом хранилище. Локальный список не восстанавливается при ошибке.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Удалённое удаление не удалось"
// @Router /subscriptions [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.reset"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if res := h.service.ResetAll(r.Context()); !res.OK() {
		log.Error("failed to remove remote subscriptions", sl.Err(res.Err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("local list cleared, remote removal failed"))
		return
	}

	log.Info("all subscriptions removed")
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
