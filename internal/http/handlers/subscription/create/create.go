// Package create реализует HTTP-обработчик для создания новых подписок.
//
// Handler принимает JSON-запрос с данными подписки, валидирует их и добавляет
// запись через хранилище подписок. Если удалённое хранилище отклонило запись,
// локальный список уже откатан, и клиент получает его текущее состояние.
package create

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
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// Handler управляет HTTP-запросами на создание новых подписок.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Хранилище подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, draft models.Draft) subservice.Result
	Subscriptions() []models.Subscription
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать новую подписку
// @Description Добавляет подписку в начало списка. Для вошедшего пользователя запись сохраняется в удалённом хранилище.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.Draft true "Данные новой подписки"
// @Success 201 {object} response.Response "Созданная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Удалённое хранилище отклонило запись"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.Draft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Debug("request body decoded", slog.Any("request", req))

	// проверяется уже очищенный ввод
	req = req.Normalize()
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res := h.service.Create(r.Context(), req)
	if !res.OK() {
		log.Error("failed to create subscription", sl.Err(res.Err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.ErrorWithData("could not save subscription", h.service.Subscriptions()))
		return
	}

	log.Info("subscription created", sl.ID(res.Subscription.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res.Subscription))
}
