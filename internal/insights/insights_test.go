package insights

import (
	"strings"
	"testing"

	"github.com/dvloznov/gastomail/internal/domain"
)

func expense(category string, amount float64) domain.Movement {
	return domain.Movement{
		Direction: domain.DirectionExpense,
		Category:  category,
		Amount:    amount,
		Currency:  "CLP",
		Status:    domain.StatusConfirmed,
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, Options{})
	if got.TotalSpent != 0 {
		t.Errorf("TotalSpent = %v, want 0", got.TotalSpent)
	}
	if len(got.Insights) != 1 || got.Insights[0].Title != "Esperando datos" {
		t.Errorf("expected waiting-for-data insight, got %+v", got.Insights)
	}
}

func TestAggregate_ExcludesDiscardedAndIncome(t *testing.T) {
	movements := []domain.Movement{
		expense(domain.CategoryAlimentacion, 10000),
		{Direction: domain.DirectionIncome, Category: domain.CategoryOther, Amount: 99999, Currency: "CLP"},
		{
			Direction: domain.DirectionExpense,
			Category:  domain.CategoryAlimentacion,
			Amount:    50000,
			Currency:  "CLP",
			Status:    domain.StatusDiscarded,
		},
	}

	got := Aggregate(movements, Options{})
	if got.TotalSpent != 10000 {
		t.Errorf("TotalSpent = %v, want 10000", got.TotalSpent)
	}
}

func TestAggregate_USDConversion(t *testing.T) {
	movements := []domain.Movement{
		{Direction: domain.DirectionExpense, Category: domain.CategorySuscripciones, Amount: 10, Currency: "USD"},
	}

	got := Aggregate(movements, Options{})
	if got.TotalSpent != 10*DefaultUSDRate {
		t.Errorf("TotalSpent = %v, want %v", got.TotalSpent, 10*DefaultUSDRate)
	}

	custom := Aggregate(movements, Options{USDRate: 800})
	if custom.TotalSpent != 8000 {
		t.Errorf("TotalSpent with custom rate = %v, want 8000", custom.TotalSpent)
	}
}

func TestAggregate_CategoryTotalsSorted(t *testing.T) {
	movements := []domain.Movement{
		expense(domain.CategoryTransporte, 20000),
		expense(domain.CategoryAlimentacion, 50000),
		expense(domain.CategoryServicios, 30000),
	}

	got := Aggregate(movements, Options{})
	want := []string{domain.CategoryAlimentacion, domain.CategoryServicios, domain.CategoryTransporte}
	for i, ct := range got.CategoryTotals {
		if ct.Category != want[i] {
			t.Errorf("CategoryTotals[%d] = %s, want %s", i, ct.Category, want[i])
		}
	}
}

func TestDeriveInsights_SubscriptionShare(t *testing.T) {
	// Subscriptions at 20% of total, above the 15% threshold.
	movements := []domain.Movement{
		expense(domain.CategorySuscripciones, 200000),
		expense(domain.CategoryAlimentacion, 400000),
		expense(domain.CategoryTransporte, 400000),
	}

	got := Aggregate(movements, Options{})
	if len(got.Insights) == 0 || got.Insights[0].Title != "Optimiza Suscripciones" {
		t.Fatalf("expected subscription insight first, got %+v", got.Insights)
	}
	if !strings.Contains(got.Insights[0].Description, "20%") {
		t.Errorf("expected rounded share in description: %s", got.Insights[0].Description)
	}
}

func TestDeriveInsights_TopCategoryAlert(t *testing.T) {
	movements := []domain.Movement{
		expense(domain.CategoryAlimentacion, 450000),
		expense(domain.CategoryTransporte, 150000),
	}

	got := Aggregate(movements, Options{})
	found := false
	for _, in := range got.Insights {
		if in.Title == "Gasto en "+domain.CategoryAlimentacion {
			found = true
		}
	}
	if !found {
		t.Errorf("expected top-category alert, got %+v", got.Insights)
	}
}

func TestDeriveInsights_SavingsAndDefault(t *testing.T) {
	// Low total spend, evenly spread: savings insight plus the default filler.
	movements := []domain.Movement{
		expense(domain.CategoryAlimentacion, 100000),
		expense(domain.CategoryTransporte, 100000),
		expense(domain.CategoryServicios, 100000),
	}

	got := Aggregate(movements, Options{})
	if len(got.Insights) != 2 {
		t.Fatalf("expected 2 insights, got %+v", got.Insights)
	}
	if got.Insights[0].Title != "Capacidad de Ahorro" {
		t.Errorf("first insight = %s, want Capacidad de Ahorro", got.Insights[0].Title)
	}
	if got.Insights[1].Title != "Análisis de Patrones" {
		t.Errorf("second insight = %s, want Análisis de Patrones", got.Insights[1].Title)
	}
}

func TestDeriveInsights_CapThree(t *testing.T) {
	// Subscriptions dominant and total low: three rules fire, capped at 3.
	movements := []domain.Movement{
		expense(domain.CategorySuscripciones, 200000),
		expense(domain.CategoryAlimentacion, 50000),
	}

	got := Aggregate(movements, Options{})
	if len(got.Insights) != 3 {
		t.Fatalf("expected exactly 3 insights, got %d", len(got.Insights))
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain json",
			raw:  `{"narrative": "ok"}`,
			want: `{"narrative": "ok"}`,
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"narrative\": \"ok\"}\n```",
			want: `{"narrative": "ok"}`,
		},
		{
			name: "leading prose",
			raw:  "Here you go: {\"narrative\": \"ok\"} thanks",
			want: `{"narrative": "ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON = %q, want %q", got, tt.want)
			}
		})
	}
}
