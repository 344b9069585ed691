// Package summary реализует HTTP-обработчик сводки дашборда: ближайшие
// оплаты и месячный отчёт по активным подпискам.
package summary

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/billing"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Service описывает источник списка подписок.
type Service interface {
	Subscriptions() []models.Subscription
}

// Handler считает сводку на текущий день в часовом поясе loc.
type Handler struct {
	log       *slog.Logger
	service   Service
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

// Dashboard тело ответа.
type Dashboard struct {
	Upcoming billing.Summary `json:"upcoming"`
	Report   billing.Report  `json:"report"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, loc *time.Location, weekStart time.Weekday, now func() time.Time) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		loc:       loc,
		weekStart: weekStart,
		now:       now,
	}
}

// ServeHTTP godoc
// @Summary Сводка дашборда
// @Description Оплаты сегодня, иначе оставшиеся оплаты недели, и месячный отчёт по категориям.
// @Tags Dashboard
// @Produce  json
// @Success 200 {object} response.Response{data=Dashboard}
// @Router /dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subs := h.service.Subscriptions()
	today := h.now().In(h.loc)

	dashboard := Dashboard{
		Upcoming: billing.DashboardSummary(subs, today, h.weekStart),
		Report:   billing.NewReport(subs),
	}

	log.Debug("dashboard computed", slog.String("kind", string(dashboard.Upcoming.Kind)), slog.Int("items", len(dashboard.Upcoming.Items)))
	render.JSON(w, r, response.OKWithData(dashboard))
}
