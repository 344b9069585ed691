// Package list реализует HTTP-обработчик выдачи списка подписок
// с фильтрацией, поиском и сортировкой.
package list

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Handler управляет HTTP-запросами на получение списка.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает источник списка подписок.
type Service interface {
	Subscriptions() []models.Subscription
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Description Возвращает подписки, новые первыми. Фильтры status и category необязательны.
// @Tags Subscriptions
// @Produce  json
// @Param status query string false "active или disabled"
// @Param category query string false "OTT, Work, Music, Shopping, Cloud, Etc"
// @Param q query string false "Поиск по названию, способу оплаты и категориям"
// @Param sort query string false "price, billing_date или service_name"
// @Param order query string false "asc или desc"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный фильтр"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var status models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			log.Error("invalid status filter", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid status filter"))
			return
		}
		status = parsed
	}
	category := models.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		log.Error("invalid category filter", slog.String("category", string(category)))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid category filter"))
		return
	}

	compare, ok := sorters[r.URL.Query().Get("sort")]
	if !ok {
		log.Error("invalid sort key", slog.String("sort", r.URL.Query().Get("sort")))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid sort key"))
		return
	}
	order := r.URL.Query().Get("order")
	if order != "" && order != "asc" && order != "desc" {
		log.Error("invalid sort order", slog.String("order", order))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid sort order"))
		return
	}
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	entries := lo.Filter(h.service.Subscriptions(), func(s models.Subscription, _ int) bool {
		if status != "" && s.Status != status {
			return false
		}
		if category != "" && !slices.Contains(s.Categories, category) {
			return false
		}
		return query == "" || matches(s, query)
	})
	if compare != nil {
		slices.SortStableFunc(entries, func(a, b models.Subscription) int {
			if order == "desc" {
				return compare(b, a)
			}
			return compare(a, b)
		})
	}

	activeTotal := lo.SumBy(entries, func(s models.Subscription) int64 {
		if !s.IsActive() {
			return 0
		}
		return s.Price
	})

	log.Debug("list entries", slog.Int("count", len(entries)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count":   len(entries),
		"active_total": activeTotal,
		"entries":      entries,
	}))
}

// sorters ключи сортировки; пустой ключ оставляет порядок хранилища.
var sorters = map[string]func(a, b models.Subscription) int{
	"": nil,
	"price": func(a, b models.Subscription) int {
		return cmp.Compare(a.Price, b.Price)
	},
	"billing_date": func(a, b models.Subscription) int {
		da, _ := a.BillingDay()
		db, _ := b.BillingDay()
		return cmp.Compare(da, db)
	},
	"service_name": func(a, b models.Subscription) int {
		return cmp.Compare(strings.ToLower(a.ServiceName), strings.ToLower(b.ServiceName))
	},
}

// matches ищет подстроку без учёта регистра в названии, способе оплаты и категориях.
func matches(s models.Subscription, query string) bool {
	if strings.Contains(strings.ToLower(s.ServiceName), query) ||
		strings.Contains(strings.ToLower(s.PaymentMethod), query) {
		return true
	}
	return lo.SomeBy(s.Categories, func(c models.Category) bool {
		return strings.Contains(strings.ToLower(string(c)), query)
	})
}
