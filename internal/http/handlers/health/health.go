package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
)

// Handler сообщает о готовности сервиса. ready может быть nil.
type Handler struct {
	log   *slog.Logger
	ready func() error
}

func New(log *slog.Logger, ready func() error) *Handler {
	return &Handler{
		log:   log,
		ready: ready,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if h.ready != nil {
		if err := h.ready(); err != nil {
			h.log.Error("remote store is not ready", slog.String("op", op), sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("remote store is not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
