// Package banner реализует HTTP-обработчик ежедневной проверки завтрашних оплат.
//
// Проверка выполняется не чаще раза в день при включённых уведомлениях.
// Уведомление уходит через диспетчер: Web Push, если у аккаунта есть браузеры,
// иначе в очередь уведомлений внутри приложения, которая отдаётся в ответе.
package banner

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sublist/internal/http/response"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
	notification "github.com/magabrotheeeer/sublist/internal/services/notification"
)

// Store описывает состояние клиента, нужное для проверки.
type Store interface {
	Subscriptions() []models.Subscription
	Owner() models.Owner
	Preferences() models.Preferences
	SetPreferences(p models.Preferences)
}

// Dispatcher доставляет уведомление ровно в один канал.
type Dispatcher interface {
	Dispatch(ctx context.Context, owner models.Owner, p models.PushPayload) (string, error)
}

// Inbox очередь уведомлений внутри приложения.
type Inbox interface {
	Drain() []models.PushPayload
}

// Result тело ответа.
type Result struct {
	Show    bool                 `json:"show"`
	Heading string               `json:"heading,omitempty"`
	Banner  *notification.Banner `json:"banner,omitempty"`
	Channel string               `json:"channel,omitempty"`
	InPage  []models.PushPayload `json:"in_page"`
}

// Handler выполняет проверку для текущего дня в часовом поясе loc.
type Handler struct {
	log        *slog.Logger
	store      Store
	dispatcher Dispatcher
	inbox      Inbox
	loc        *time.Location
	now        func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, store Store, dispatcher Dispatcher, inbox Inbox, loc *time.Location, now func() time.Time) *Handler {
	return &Handler{
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		inbox:      inbox,
		loc:        loc,
		now:        now,
	}
}

// ServeHTTP godoc
// @Summary Проверить завтрашние оплаты
// @Description Раз в день формирует баннер о завтрашних оплатах и отправляет уведомление. Возвращает накопленные уведомления внутри приложения.
// @Tags Notifications
// @Produce  json
// @Success 200 {object} response.Response{data=Result}
// @Router /notifications/banner [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.banner"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	owner := h.store.Owner()
	b, prefs, show := notification.CheckBanner(h.store.Subscriptions(), h.store.Preferences(), h.now().In(h.loc))

	res := Result{Show: show}
	if show {
		h.store.SetPreferences(prefs)
		res.Heading = b.Heading()
		res.Banner = &b

		channel, err := h.dispatcher.Dispatch(r.Context(), owner, b.Payload())
		if err != nil {
			log.Warn("banner notification not delivered", sl.Owner(owner), sl.Err(err))
		}
		res.Channel = channel
	}
	res.InPage = h.inbox.Drain()

	render.JSON(w, r, response.OKWithData(res))
}
