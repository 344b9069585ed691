// Package read реализует HTTP-обработчик получения подписки по ID.
// Временный ID уже подтверждённой записи тоже находит её.
package read

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Handler обрабатывает запросы на получение подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает поиск подписки в локальном списке.
type Service interface {
	Find(id models.ID) (models.Subscription, bool)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить подписку
// @Description Возвращает подписку по ID
// @Tags Subscriptions
// @Produce  json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /subscriptions/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
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

	sub, ok := h.service.Find(id)
	if !ok {
		log.Warn("subscription not found", sl.ID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}

	log.Debug("subscription found", sl.ID(sub.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entry": sub,
	}))
}
