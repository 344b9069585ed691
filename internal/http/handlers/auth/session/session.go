// Package session реализует HTTP-обработчик текущей сессии.
package session

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Service описывает чтение текущей сессии.
type Service interface {
	Session() (models.AccountInfo, bool)
}

// Handler отдаёт текущий аккаунт.
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
// @Summary Текущая сессия
// @Tags Auth
// @Produce  json
// @Success 200 {object} map[string]any "signed_in и аккаунт"
// @Router /auth/session [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	account, ok := h.service.Session()
	h.log.Debug("session requested", slog.Bool("signed_in", ok))
	data := map[string]any{"signed_in": ok}
	if ok {
		data["account"] = account
	}
	render.JSON(w, r, response.OKWithData(data))
}
