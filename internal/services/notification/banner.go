package services

import (
	"time"

	"github.com/magabrotheeeer/sublist/internal/lib/month"
	"github.com/magabrotheeeer/sublist/internal/models"
)

const checkDayLayout = "2006-01-02"

// CheckBanner решает, показывать ли баннер о завтрашних оплатах.
// Баннер показывается не чаще раза в календарный день и только при включённых
// уведомлениях. Возвращает обновлённые настройки с отметкой о проверке.
func CheckBanner(subs []models.Subscription, prefs models.Preferences, now time.Time) (Banner, models.Preferences, bool) {
	if !prefs.NotificationsEnabled {
		return Banner{}, prefs, false
	}

	day := month.StartOfDay(now).Format(checkDayLayout)
	if prefs.LastNotificationCheck == day {
		return Banner{}, prefs, false
	}

	digest := Upcoming(subs, now)
	banner, ok := BuildBanner(digest.Tomorrow, false)
	if !ok {
		return Banner{}, prefs, false
	}

	prefs.LastNotificationCheck = day
	return banner, prefs, true
}
