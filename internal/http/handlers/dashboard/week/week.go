// Package week реализует HTTP-обработчик календаря оплат текущей недели.
package week

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/billing"
	"github.com/magabrotheeeer/sublist/internal/lib/month"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Service описывает источник списка подписок.
type Service interface {
	Subscriptions() []models.Subscription
}

// Handler отдаёт оплаты календарной недели, содержащей сегодняшний день.
type Handler struct {
	log       *slog.Logger
	service   Service
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

// Week тело ответа.
type Week struct {
	Start time.Time     `json:"start"`
	Items []billing.Due `json:"items"`
	Total int64         `json:"total"`
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
// @Summary Оплаты текущей недели
// @Description Активные подписки с оплатой в текущей неделе, по дате оплаты. Прошедшие дни недели включены.
// @Tags Dashboard
// @Produce  json
// @Success 200 {object} response.Response{data=Week}
// @Router /dashboard/week [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.week"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	today := h.now().In(h.loc)
	items := billing.DueWithinCurrentWeek(h.service.Subscriptions(), today, h.weekStart)
	if items == nil {
		items = []billing.Due{}
	}

	week := Week{
		Start: month.StartOfWeek(today, h.weekStart),
		Items: items,
	}
	for _, item := range items {
		week.Total += item.Subscription.Price
	}

	log.Debug("week computed", slog.Int("items", len(items)))
	render.JSON(w, r, response.OKWithData(week))
}
