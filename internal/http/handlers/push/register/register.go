// Package register реализует HTTP-обработчик регистрации push-подписки браузера.
//
// Обработчик доступен только с токеном доступа: аккаунт берётся из контекста,
// который заполняет middlewarectx.JWTMiddleware.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sublist/internal/http/middlewarectx"
	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
	pushservice "github.com/magabrotheeeer/sublist/internal/services/push"
)

// Service описывает регистрацию push-подписки.
type Service interface {
	Register(ctx context.Context, owner models.Owner, dummy models.DummyPushEndpoint) (models.PushEndpoint, error)
}

// Handler обрабатывает регистрацию браузера.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
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
// @Summary Зарегистрировать push-подписку
// @Description Сохраняет push-подписку браузера; подписка с тем же endpoint перезаписывается.
// @Tags Push
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyPushEndpoint true "Push-подписка браузера"
// @Success 201 {object} response.Response "Сохранённая подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 504 {object} response.ErrorResponse "Хранилище не ответило вовремя"
// @Router /push/subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.push.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPushEndpoint
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	account, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		log.Error("account not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	ep, err := h.service.Register(r.Context(), account.Owner(), req)
	switch {
	case errors.Is(err, pushservice.ErrNotAuthenticated):
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	case errors.Is(err, pushservice.ErrRegistrationTimeout):
		log.Warn("push registration timed out", sl.Owner(account.Owner()))
		w.WriteHeader(http.StatusGatewayTimeout)
		render.JSON(w, r, response.Error(pushservice.ErrRegistrationTimeout.Error()))
		return
	case err != nil:
		log.Error("failed to register push endpoint", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not register push subscription"))
		return
	}

	log.Info("push endpoint registered", sl.Owner(account.Owner()))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(ep))
}
