// Package month содержит календарные помощники для расчёта дат оплаты:
// длина месяца, начало дня, начало недели и дата с ограничением по последнему дню.
package month

import (
	"time"
)

// DaysIn возвращает количество дней в месяце.
func DaysIn(year int, m time.Month, loc *time.Location) int {
	// нулевой день следующего месяца равен последнему дню текущего
	return time.Date(year, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay возвращает полночь того же дня в той же зоне.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayInMonth возвращает полночь дня day в указанном месяце.
// Если в месяце меньше дней, берётся последний день месяца.
// Месяц может выходить за 1..12, год нормализуется.
func DayInMonth(year int, m time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, m, 1, 0, 0, 0, 0, loc)
	last := DaysIn(first.Year(), first.Month(), loc)
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// StartOfWeek возвращает полночь первого дня недели, содержащей t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// SameDay сообщает, что два момента приходятся на один календарный день.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
