// Package signin реализует HTTP-обработчик начала входа через OAuth-провайдера.
//
// Обработчик возвращает адрес страницы авторизации внешнего сервиса,
// на который клиент перенаправляет пользователя.
package signin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	authservice "github.com/magabrotheeeer/sublist/internal/services/auth"
)

// Request: провайдер и адрес возврата после входа.
type Request struct {
	Provider   string `json:"provider" validate:"required,oneof=google kakao github apple"`
	RedirectTo string `json:"redirect_to" validate:"required,url"`
}

// Service описывает построение адреса авторизации.
type Service interface {
	SignIn(provider, redirect string) (string, error)
}

// Handler обрабатывает запросы на вход.
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
// @Summary Начать вход через OAuth
// @Description Возвращает адрес страницы авторизации провайдера.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Провайдер и адрес возврата"
// @Success 200 {object} map[string]any "Адрес авторизации"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/signin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signin"
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

	url, err := h.service.SignIn(req.Provider, req.RedirectTo)
	if err != nil {
		log.Error("failed to build authorize url", sl.Err(err))
		status := http.StatusInternalServerError
		if errors.Is(err, authservice.ErrUnknownProvider) || errors.Is(err, authservice.ErrInvalidRedirect) {
			status = http.StatusUnprocessableEntity
		}
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"url": url,
	}))
}
