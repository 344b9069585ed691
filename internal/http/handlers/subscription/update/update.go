// Package update реализует HTTP-обработчик частичного изменения подписки.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// Handler управляет HTTP-запросами на изменение подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики изменения подписки.
type Service interface {
	Update(ctx context.Context, id models.ID, patch models.Patch) subservice.Result
	Subscriptions() []models.Subscription
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменить подписку
// @Description Применяет только переданные поля. При ошибке удалённого хранилища изменение откатывается.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path string true "ID подписки"
// @Param request body models.Patch true "Изменяемые поля"
// @Success 200 {object} response.Response "Изменённая подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Удалённое хранилище отклонило изменение"
// @Router /subscriptions/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"
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

	var req models.Patch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if req.IsEmpty() {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("nothing to update"))
		return
	}
	req = req.Normalize()
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res := h.service.Update(r.Context(), id, req)
	switch {
	case errors.Is(res.Err, subservice.ErrNotFound):
		log.Warn("subscription not found", sl.ID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	case res.Err != nil:
		log.Error("failed to update subscription", sl.ID(id), sl.Err(res.Err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.ErrorWithData("could not update subscription", h.service.Subscriptions()))
		return
	}

	log.Info("subscription updated", sl.ID(id))
	render.JSON(w, r, response.OKWithData(res.Subscription))
}
