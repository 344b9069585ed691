package billing

import (
	"sort"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// CategoryShare доля расходов по основной категории.
type CategoryShare struct {
	Category   models.Category `json:"category"`
	Value      int64           `json:"value"`
	Percentage float64         `json:"percentage"`
}

// Report месячный отчёт дашборда по активным подпискам.
type Report struct {
	TotalCost         int64           `json:"total_cost"`
	ActiveCount       int             `json:"active_count"`
	MaxExpenseService string          `json:"max_expense_service"`
	CategoryBreakdown []CategoryShare `json:"category_breakdown"`
}

// NewReport считает сумму, количество активных подписок, самую дорогую
// подписку и распределение по основной категории (по убыванию суммы).
func NewReport(subs []models.Subscription) Report {
	active := lo.Filter(subs, func(s models.Subscription, _ int) bool {
		return s.IsActive()
	})

	report := Report{
		TotalCost:         lo.SumBy(active, func(s models.Subscription) int64 { return s.Price }),
		ActiveCount:       len(active),
		MaxExpenseService: "-",
		CategoryBreakdown: []CategoryShare{},
	}
	if len(active) == 0 {
		return report
	}

	top := lo.MaxBy(active, func(a, b models.Subscription) bool {
		return a.Price > b.Price
	})
	if top.ServiceName != "" {
		report.MaxExpenseService = top.ServiceName
	}

	// порядок первого появления сохраняется для равных сумм
	var order []models.Category
	sums := make(map[models.Category]int64)
	for _, s := range active {
		c := s.PrimaryCategory()
		if _, seen := sums[c]; !seen {
			order = append(order, c)
		}
		sums[c] += s.Price
	}
	for _, c := range order {
		share := CategoryShare{Category: c, Value: sums[c]}
		if report.TotalCost > 0 {
			share.Percentage = float64(sums[c]) / float64(report.TotalCost) * 100
		}
		report.CategoryBreakdown = append(report.CategoryBreakdown, share)
	}
	sort.SliceStable(report.CategoryBreakdown, func(i, j int) bool {
		return report.CategoryBreakdown[i].Value > report.CategoryBreakdown[j].Value
	})
	return report
}
