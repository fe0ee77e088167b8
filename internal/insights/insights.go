// Package insights derives spending summaries and recommendations from
// stored movements. Rule-based insights are deterministic; an optional
// Gemini-backed narrative adds free-text commentary on top.
package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/dvloznov/gastomail/internal/domain"
)

// DefaultUSDRate converts USD amounts into the base currency when
// aggregating mixed-currency movements.
const DefaultUSDRate = 950

const (
	subscriptionShareThreshold = 0.15
	topCategoryShareThreshold  = 0.4
	savingsSpendCeiling        = 500000
	maxInsights                = 3
)

// Insight is a single recommendation shown to the user.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CategoryTotal is the aggregated spend for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Summary aggregates expense movements for a period.
type Summary struct {
	TotalSpent     float64         `json:"total_spent"`
	CategoryTotals []CategoryTotal `json:"category_totals"`
	Insights       []Insight       `json:"insights"`
}

// Options tunes the aggregation. Zero values select the defaults.
type Options struct {
	// USDRate is the USD to base-currency conversion rate.
	USDRate float64
}

// Aggregate summarizes the expenses among movements and derives up to three
// rule-based insights. Discarded movements and income are excluded.
func Aggregate(movements []domain.Movement, opts Options) Summary {
	rate := opts.USDRate
	if rate == 0 {
		rate = DefaultUSDRate
	}

	totals := make(map[string]float64)
	for _, m := range movements {
		if m.Status == domain.StatusDiscarded || m.Direction != domain.DirectionExpense {
			continue
		}
		amount := m.Amount
		if m.Currency == "USD" {
			amount *= rate
		}
		totals[m.Category] += amount
	}

	if len(totals) == 0 {
		return Summary{Insights: []Insight{{
			Title:       "Esperando datos",
			Description: "Sincroniza tus correos para recibir recomendaciones financieras personalizadas.",
		}}}
	}

	byCategory := make([]CategoryTotal, 0, len(totals))
	totalSpent := 0.0
	for category, amount := range totals {
		byCategory = append(byCategory, CategoryTotal{Category: category, Amount: amount})
		totalSpent += amount
	}
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].Amount != byCategory[j].Amount {
			return byCategory[i].Amount > byCategory[j].Amount
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	return Summary{
		TotalSpent:     totalSpent,
		CategoryTotals: byCategory,
		Insights:       deriveInsights(byCategory, totalSpent),
	}
}

func deriveInsights(byCategory []CategoryTotal, totalSpent float64) []Insight {
	var insights []Insight

	var subSpent float64
	for _, ct := range byCategory {
		if ct.Category == domain.CategorySuscripciones {
			subSpent = ct.Amount
			break
		}
	}
	if subSpent > totalSpent*subscriptionShareThreshold {
		share := int(math.Round(subSpent / totalSpent * 100))
		insights = append(insights, Insight{
			Title: "Optimiza Suscripciones",
			Description: fmt.Sprintf(
				"Tus suscripciones representan un %d%% de tus gastos. Considera revisar servicios que no usas.", share),
		})
	}

	top := byCategory[0]
	if top.Amount > totalSpent*topCategoryShareThreshold {
		insights = append(insights, Insight{
			Title:       fmt.Sprintf("Gasto en %s", top.Category),
			Description: "Has concentrado casi la mitad de tus gastos en esta categoría. ¿Es un gasto planificado?",
		})
	}

	if totalSpent < savingsSpendCeiling {
		insights = append(insights, Insight{
			Title:       "Capacidad de Ahorro",
			Description: "Tus gastos están bajo control este periodo. Buen momento para mover un excedente a inversión.",
		})
	}

	if len(insights) < maxInsights {
		insights = append(insights, Insight{
			Title:       "Análisis de Patrones",
			Description: "Sigue registrando tus gastos manuales para una visión 360 de tu salud financiera.",
		})
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}
