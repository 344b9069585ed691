// Package preferences реализует HTTP-обработчики чтения и изменения
// пользовательских настроек, которые сохраняются вместе со снимком состояния.
package preferences

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Request изменяемые настройки; отсутствующие поля не меняются.
type Request struct {
	DarkMode             *bool `json:"dark_mode,omitempty"`
	HasSeenTutorial      *bool `json:"has_seen_tutorial,omitempty"`
	NotificationsEnabled *bool `json:"notifications_enabled,omitempty"`
}

func (req Request) apply(p models.Preferences) models.Preferences {
	if req.DarkMode != nil {
		p.DarkMode = *req.DarkMode
	}
	if req.HasSeenTutorial != nil {
		p.HasSeenTutorial = *req.HasSeenTutorial
	}
	if req.NotificationsEnabled != nil {
		p.NotificationsEnabled = *req.NotificationsEnabled
	}
	return p
}

// Service описывает хранение настроек.
type Service interface {
	Preferences() models.Preferences
	SetPreferences(p models.Preferences)
}

// Handler обрабатывает запросы к настройкам.
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

// Get godoc
// @Summary Настройки пользователя
// @Tags Preferences
// @Produce  json
// @Success 200 {object} response.Response{data=models.Preferences}
// @Router /preferences [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.service.Preferences()))
}

// Update godoc
// @Summary Изменить настройки
// @Tags Preferences
// @Accept  json
// @Produce  json
// @Param request body Request true "Изменяемые настройки"
// @Success 200 {object} response.Response{data=models.Preferences}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Router /preferences [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.preferences.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	prefs := req.apply(h.service.Preferences())
	h.service.SetPreferences(prefs)

	log.Debug("preferences updated", slog.Any("preferences", prefs))
	render.JSON(w, r, response.OKWithData(prefs))
}
