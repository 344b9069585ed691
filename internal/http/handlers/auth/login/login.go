// Package login реализует HTTP-обработчик открытия сессии по access token
// внешнего сервиса авторизации.
//
// При первом входе хранилище подписок переносит локальные записи в аккаунт
// и загружает его список; ответ содержит аккаунт и итоговый список.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Request: access token, полученный после OAuth-перенаправления.
type Request struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// Service описывает открытие сессии.
type Service interface {
	Login(ctx context.Context, accessToken string) (models.AccountInfo, error)
}

// Store описывает источник списка подписок после входа.
type Store interface {
	Subscriptions() []models.Subscription
}

// Handler обрабатывает HTTP-запросы для входа.
type Handler struct {
	log      *slog.Logger
	service  Service
	store    Store
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, store Store) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		store:    store,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Открыть сессию
// @Description Проверяет access token и открывает сессию. Локальные подписки переносятся в аккаунт.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Access token"
// @Success 200 {object} map[string]any "Аккаунт и список подписок"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Недействительный токен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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

	account, err := h.service.Login(r.Context(), req.AccessToken)
	if err != nil {
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired token"))
		return
	}

	log.Info("login success", sl.Owner(account.Owner()))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"account":       account,
		"subscriptions": h.store.Subscriptions(),
	}))
}
