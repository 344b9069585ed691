// Package services собирает уведомления о предстоящих оплатах: выборку подписок
// на сегодня и завтра, тексты push-уведомлений и баннера, доставку через
// доступный канал, а также ежедневную рассылку через очередь.
package services

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/magabrotheeeer/sublist/internal/lib/billing"
	"github.com/magabrotheeeer/sublist/internal/lib/month"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// CalendarURL страница, открываемая по нажатию на уведомление.
const CalendarURL = "/calendar"

const (
	pushTitle        = "구독 결제 예정 알림"
	bannerTitleToday = "오늘 결제 예정 알림"
	bannerTitleLater = "내일 결제 예정 알림"
)

var wonPrinter = message.NewPrinter(language.Korean)

// Digest подписки с оплатой сегодня и завтра. Подписка не попадает в оба списка.
type Digest struct {
	Today    []models.Subscription
	Tomorrow []models.Subscription
}

// Empty сообщает, что уведомлять не о чем.
func (d Digest) Empty() bool {
	return len(d.Today) == 0 && len(d.Tomorrow) == 0
}

// Len общее число подписок в сводке.
func (d Digest) Len() int {
	return len(d.Today) + len(d.Tomorrow)
}

// Upcoming отбирает активные подписки с оплатой в день now или на следующий день.
// Если подписка подходит под оба дня, она остаётся в Today.
func Upcoming(subs []models.Subscription, now time.Time) Digest {
	today := month.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	var d Digest
	for _, sub := range subs {
		switch {
		case billing.IsDueOn(sub, today):
			d.Today = append(d.Today, sub)
		case billing.IsDueOn(sub, tomorrow):
			d.Tomorrow = append(d.Tomorrow, sub)
		}
	}
	return d
}

// BuildPayload собирает push-уведомление по сводке. ok == false для пустой сводки.
func BuildPayload(d Digest) (models.PushPayload, bool) {
	if d.Empty() {
		return models.PushPayload{}, false
	}

	todayCount, tomorrowCount := len(d.Today), len(d.Tomorrow)

	var body string
	switch {
	case todayCount > 0 && tomorrowCount > 0:
		body = fmt.Sprintf("오늘 %d건, 내일 %d건의 결제가 예정되어 있습니다.", todayCount, tomorrowCount)
	case todayCount == 1:
		body = fmt.Sprintf("오늘 %s 결제 예정", d.Today[0].ServiceName)
	case todayCount > 1:
		body = fmt.Sprintf("오늘 총 %d건의 결제 예정", todayCount)
	case tomorrowCount == 1:
		body = fmt.Sprintf("내일 %s 결제 예정", d.Tomorrow[0].ServiceName)
	default:
		body = fmt.Sprintf("내일 총 %d건의 결제 예정", tomorrowCount)
	}

	return models.PushPayload{
		Title: pushTitle,
		Body:  body,
		URL:   CalendarURL,
	}, true
}

// Banner содержимое уведомления внутри приложения.
type Banner struct {
	Title   string                `json:"title"`
	Body    string                `json:"body"`
	Total   int64                 `json:"total"`
	IsToday bool                  `json:"is_today"`
	Items   []models.Subscription `json:"items"`
}

// BuildBanner собирает баннер о предстоящих оплатах. ok == false, если items пуст.
func BuildBanner(items []models.Subscription, isToday bool) (Banner, bool) {
	if len(items) == 0 {
		return Banner{}, false
	}

	total := lo.SumBy(items, func(s models.Subscription) int64 { return s.Price })
	when := "내일"
	if isToday {
		when = "오늘"
	}

	b := Banner{
		Total:   total,
		IsToday: isToday,
		Items:   models.CloneAll(items),
	}
	if len(items) == 1 {
		b.Title = fmt.Sprintf("%s 결제 예정: %s", when, items[0].ServiceName)
		b.Body = fmt.Sprintf("%s원이 결제될 예정입니다.", FormatWon(items[0].Price))
	} else {
		b.Title = fmt.Sprintf("%s %d건의 결제가 예정되어 있어요!", when, len(items))
		b.Body = fmt.Sprintf("총 %s원이 결제됩니다. 잔액을 확인하세요.", FormatWon(total))
	}
	return b, true
}

// Heading заголовок карточки баннера.
func (b Banner) Heading() string {
	if b.IsToday {
		return bannerTitleToday
	}
	return bannerTitleLater
}

// Payload переводит баннер в формат уведомления.
func (b Banner) Payload() models.PushPayload {
	return models.PushPayload{Title: b.Title, Body: b.Body, URL: CalendarURL}
}

// FormatWon форматирует сумму с разделителями разрядов: 17000 -> "17,000".
func FormatWon(v int64) string {
	return wonPrinter.Sprintf("%d", v)
}
