package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sublist/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sub(id string, day int, price int64, status models.Status) models.Subscription {
	return models.Subscription{
		ID:          models.ID(id),
		ServiceName: "service-" + id,
		Categories:  []models.Category{models.CategoryOTT},
		BillingDate: models.FormatBillingDate(day),
		Price:       price,
		Status:      status,
	}
}

func TestNextPaymentDate_TableTests(t *testing.T) {
	tests := []struct {
		name string
		day  int
		ref  time.Time
		want time.Time
	}{
		{
			name: "day 31 in february of a common year",
			day:  31,
			ref:  date(2025, time.February, 10),
			want: date(2025, time.February, 28),
		},
		{
			name: "day 31 in february of a leap year",
			day:  31,
			ref:  date(2024, time.February, 10),
			want: date(2024, time.February, 29),
		},
		{
			name: "day already passed moves to next month",
			day:  15,
			ref:  date(2025, time.January, 20),
			want: date(2025, time.February, 15),
		},
		{
			name: "day later this month",
			day:  15,
			ref:  date(2025, time.January, 10),
			want: date(2025, time.January, 15),
		},
		{
			name: "same day with time of day is still due today",
			day:  15,
			ref:  time.Date(2025, time.January, 15, 23, 59, 0, 0, time.UTC),
			want: date(2025, time.January, 15),
		},
		{
			name: "december rolls into next year",
			day:  5,
			ref:  date(2025, time.December, 20),
			want: date(2026, time.January, 5),
		},
		{
			name: "clamped day 31 equals last day of 30-day month",
			day:  31,
			ref:  date(2025, time.April, 30),
			want: date(2025, time.April, 30),
		},
		{
			name: "day 30 after january 30 resolves to clamped february",
			day:  30,
			ref:  date(2025, time.January, 31),
			want: date(2025, time.February, 28),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPaymentDate(tt.day, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextPaymentDate_InvalidDay(t *testing.T) {
	for _, day := range []int{0, -1, 32} {
		_, err := NextPaymentDate(day, date(2025, time.March, 1))
		assert.ErrorIs(t, err, ErrInvalidBillingDay)
	}
}

func TestNextPaymentDate_KeepsLocation(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	got, err := NextPaymentDate(1, time.Date(2025, time.May, 31, 22, 0, 0, 0, kst))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, kst), got)
}

func TestIsDueOn(t *testing.T) {
	s := sub("1", 5, 1000, models.StatusActive)

	for _, m := range []time.Month{time.January, time.February, time.June, time.December} {
		assert.True(t, IsDueOn(s, date(2025, m, 5)), "due on the 5th of %s", m)
		assert.False(t, IsDueOn(s, date(2025, m, 4)), "not due on the 4th of %s", m)
		assert.False(t, IsDueOn(s, date(2025, m, 6)), "not due on the 6th of %s", m)
	}

	disabled := sub("2", 5, 1000, models.StatusDisabled)
	assert.False(t, IsDueOn(disabled, date(2025, time.January, 5)))

	noDigits := s
	noDigits.BillingDate = "매달 일"
	assert.False(t, IsDueOn(noDigits, date(2025, time.January, 5)))
}

func TestIsDueOn_ClampedDayDoesNotDisappear(t *testing.T) {
	s := sub("1", 31, 1000, models.StatusActive)

	assert.True(t, IsDueOn(s, date(2025, time.February, 28)))
	assert.True(t, IsDueOn(s, date(2024, time.February, 29)))
	assert.False(t, IsDueOn(s, date(2024, time.February, 28)))
	assert.True(t, IsDueOn(s, date(2025, time.April, 30)))
}

func TestDueWithinCurrentWeek(t *testing.T) {
	// 2025-10-16: четверг, неделя 13–19 октября
	today := time.Date(2025, time.October, 16, 10, 0, 0, 0, time.UTC)
	subs := []models.Subscription{
		sub("sat", 18, 100, models.StatusActive),
		sub("tue", 14, 200, models.StatusActive),
		sub("next-week", 20, 300, models.StatusActive),
		sub("disabled", 15, 400, models.StatusDisabled),
		sub("mon", 13, 500, models.StatusActive),
	}

	got := DueWithinCurrentWeek(subs, today, time.Monday)

	require.Len(t, got, 3)
	assert.Equal(t, models.ID("mon"), got[0].Subscription.ID)
	assert.Equal(t, date(2025, time.October, 13), got[0].Date)
	assert.Equal(t, models.ID("tue"), got[1].Subscription.ID)
	assert.Equal(t, models.ID("sat"), got[2].Subscription.ID)
	assert.Equal(t, date(2025, time.October, 18), got[2].Date)
}

func TestDueWithinCurrentWeek_SpansMonths(t *testing.T) {
	// неделя 27 октября – 2 ноября 2025
	today := date(2025, time.October, 30)
	subs := []models.Subscription{
		sub("first", 1, 100, models.StatusActive),
		sub("last", 31, 200, models.StatusActive),
		sub("mid", 15, 300, models.StatusActive),
	}

	got := DueWithinCurrentWeek(subs, today, time.Monday)

	require.Len(t, got, 2)
	assert.Equal(t, models.ID("last"), got[0].Subscription.ID)
	assert.Equal(t, date(2025, time.October, 31), got[0].Date)
	assert.Equal(t, models.ID("first"), got[1].Subscription.ID)
	assert.Equal(t, date(2025, time.November, 1), got[1].Date)
}

func TestDueWithinCurrentWeek_FebruaryClamp(t *testing.T) {
	// неделя 24 февраля – 2 марта 2025
	got := DueWithinCurrentWeek([]models.Subscription{sub("31", 31, 100, models.StatusActive)},
		date(2025, time.February, 27), time.Monday)

	require.Len(t, got, 1)
	assert.Equal(t, date(2025, time.February, 28), got[0].Date)
}

func TestDueWithinCurrentWeek_SundayStart(t *testing.T) {
	// при начале недели с воскресенья неделя 12–18 октября
	today := date(2025, time.October, 16)
	subs := []models.Subscription{
		sub("sun", 12, 100, models.StatusActive),
		sub("sun-next", 19, 100, models.StatusActive),
	}

	got := DueWithinCurrentWeek(subs, today, time.Sunday)

	require.Len(t, got, 1)
	assert.Equal(t, models.ID("sun"), got[0].Subscription.ID)
}

func TestDashboardSummary_TodayOnlyActive(t *testing.T) {
	subs := []models.Subscription{
		sub("active", 1, 1000, models.StatusActive),
		sub("disabled", 1, 5000, models.StatusDisabled),
	}

	got := DashboardSummary(subs, date(2025, time.October, 1), time.Monday)

	assert.Equal(t, SummaryToday, got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, models.ID("active"), got.Items[0].Subscription.ID)
	assert.Equal(t, int64(1000), got.Total)
}

func TestDashboardSummary_WeekSkipsPastItems(t *testing.T) {
	subs := []models.Subscription{
		sub("passed", 13, 1000, models.StatusActive),
		sub("upcoming", 18, 2000, models.StatusActive),
	}

	got := DashboardSummary(subs, date(2025, time.October, 16), time.Monday)

	assert.Equal(t, SummaryWeek, got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, models.ID("upcoming"), got.Items[0].Subscription.ID)
	assert.Equal(t, int64(2000), got.Total)
}

func TestDashboardSummary_None(t *testing.T) {
	subs := []models.Subscription{
		sub("passed", 13, 1000, models.StatusActive),
		sub("later", 25, 2000, models.StatusActive),
	}

	got := DashboardSummary(subs, date(2025, time.October, 16), time.Monday)

	assert.Equal(t, SummaryNone, got.Kind)
	assert.Empty(t, got.Items)
	assert.Zero(t, got.Total)
}

func TestDashboardSummary_Idempotent(t *testing.T) {
	subs := []models.Subscription{
		sub("a", 16, 1000, models.StatusActive),
		sub("b", 16, 3000, models.StatusActive),
		sub("c", 18, 2000, models.StatusActive),
	}
	before := models.CloneAll(subs)
	today := date(2025, time.October, 16)

	first := DashboardSummary(subs, today, time.Monday)
	second := DashboardSummary(subs, today, time.Monday)

	assert.Equal(t, first, second)
	assert.Equal(t, before, subs)
	assert.Equal(t, int64(4000), first.Total)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday(" sunday ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("funday")
	assert.Error(t, err)
}
