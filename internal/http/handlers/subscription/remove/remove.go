// Package remove реализует HTTP-обработчик удаления подписки.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// Handler управляет HTTP-запросами на удаление подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления подписки.
type Service interface {
	Remove(ctx context.Context, id models.ID) subservice.Result
	Subscriptions() []models.Subscription
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить подписку
// @Description Удаляет подписку. При ошибке удалённого хранилища запись возвращается на прежнее место.
// @Tags Subscriptions
// @Produce  json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response "Удалённая подписка"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 502 {object} response.ErrorResponse "Удалённое хранилище отклонило удаление"
// @Router /subscriptions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := models.ID(chi.URLParam(r, "id"))
	if id == "" {
		log.Error("empty id in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	res := h.service.Remove(r.Context(), id)
	switch {
	case errors.Is(res.Err, subservice.ErrNotFound):
		log.Warn("subscription not found", sl.ID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	case res.Err != nil:
		log.Error("failed to remove subscription", sl.ID(id), sl.Err(res.Err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.ErrorWithData("could not remove subscription", h.service.Subscriptions()))
		return
	}

	log.Info("subscription removed", sl.ID(id))
	render.JSON(w, r, response.OKWithData(res.Subscription))
}
