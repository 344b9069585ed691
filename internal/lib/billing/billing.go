// Package billing реализует расчёт ежемесячного цикла оплаты подписки:
// ближайшую дату оплаты по дню месяца, попадание оплаты на дату и в текущую
// неделю, а также сводку для дашборда.
//
// Все функции чистые: не хранят состояние и не изменяют входные данные.
package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/sublist/internal/lib/month"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// ErrInvalidBillingDay возвращается для дня оплаты вне диапазона 1–31.
var ErrInvalidBillingDay = errors.New("billing day must be within 1..31")

// NextPaymentDate возвращает ближайшую дату оплаты, не раньше начала дня ref.
// День больше длины месяца прижимается к последнему дню месяца
// (31 в феврале: 28 или 29 февраля).
func NextPaymentDate(billingDay int, ref time.Time) (time.Time, error) {
	const op = "billing.NextPaymentDate"
	if billingDay < 1 || billingDay > 31 {
		return time.Time{}, fmt.Errorf("%s: %w: %d", op, ErrInvalidBillingDay, billingDay)
	}
	start := month.StartOfDay(ref)
	loc := start.Location()

	candidate := month.DayInMonth(start.Year(), start.Month(), billingDay, loc)
	if candidate.Before(start) {
		candidate = month.DayInMonth(start.Year(), start.Month()+1, billingDay, loc)
	}
	return candidate, nil
}

// NextPaymentFor возвращает ближайшую дату оплаты подписки.
// ok == false, если день оплаты не удаётся разобрать: такая подписка никогда не «к оплате».
func NextPaymentFor(sub models.Subscription, ref time.Time) (time.Time, bool) {
	day, ok := sub.BillingDay()
	if !ok {
		return time.Time{}, false
	}
	next, err := NextPaymentDate(day, ref)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// IsDueOn сообщает, что активная подписка оплачивается ровно в день date.
func IsDueOn(sub models.Subscription, date time.Time) bool {
	if !sub.IsActive() {
		return false
	}
	day := month.StartOfDay(date)
	next, ok := NextPaymentFor(sub, day)
	return ok && month.SameDay(next, day)
}

// Due подписка с датой оплаты, попавшей в рассматриваемый период.
type Due struct {
	Subscription models.Subscription `json:"subscription"`
	Date         time.Time           `json:"date"`
}

// DueWithinCurrentWeek возвращает активные подписки, оплата которых попадает
// в календарную неделю, содержащую today. Неделя начинается с weekStart.
// Результат отсортирован по дате оплаты; подписки вне недели не переносятся
// на следующую.
func DueWithinCurrentWeek(subs []models.Subscription, today time.Time, weekStart time.Weekday) []Due {
	start := month.StartOfWeek(today, weekStart)

	var out []Due
	for _, sub := range subs {
		if !sub.IsActive() {
			continue
		}
		// месяц длиннее недели, поэтому оплата попадает в неё не более одного раза
		for i := range 7 {
			day := start.AddDate(0, 0, i)
			if IsDueOn(sub, day) {
				out = append(out, Due{Subscription: sub.Clone(), Date: day})
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// SummaryKind тип сводки дашборда.
type SummaryKind string

const (
	SummaryToday SummaryKind = "today"
	SummaryWeek  SummaryKind = "week"
	SummaryNone  SummaryKind = "none"
)

// Summary сводка ближайших оплат для баннера дашборда.
type Summary struct {
	Kind  SummaryKind `json:"kind"`
	Items []Due       `json:"items"`
	Total int64       `json:"total"`
}

// DashboardSummary возвращает оплаты сегодня, если они есть; иначе оставшиеся
// (сегодня или позже) оплаты текущей недели; иначе SummaryNone.
// Прошедшие оплаты недели не показываются как предстоящие.
func DashboardSummary(subs []models.Subscription, today time.Time, weekStart time.Weekday) Summary {
	day := month.StartOfDay(today)

	var todays []Due
	for _, sub := range subs {
		if IsDueOn(sub, day) {
			todays = append(todays, Due{Subscription: sub.Clone(), Date: day})
		}
	}
	if len(todays) > 0 {
		return newSummary(SummaryToday, todays)
	}

	var remaining []Due
	for _, due := range DueWithinCurrentWeek(subs, day, weekStart) {
		if !due.Date.Before(day) {
			remaining = append(remaining, due)
		}
	}
	if len(remaining) > 0 {
		return newSummary(SummaryWeek, remaining)
	}
	return Summary{Kind: SummaryNone, Items: []Due{}}
}

func newSummary(kind SummaryKind, items []Due) Summary {
	var total int64
	for _, item := range items {
		total += item.Subscription.Price
	}
	return Summary{Kind: kind, Items: items, Total: total}
}

// ParseWeekday разбирает название дня начала недели ("monday", "sunday", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("billing.ParseWeekday: unknown weekday %q", s)
}
