package parser

import (
	"testing"

	"github.com/dvloznov/gastomail/internal/domain"
)

func TestScoreConfidence(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name     string
		amount   float64
		merchant string
		content  string
		want     float64
	}{
		{"base only", 0.0, domain.MerchantUnknown, "hola", 0.1},
		{"amount only", 5000, domain.MerchantUnknown, "hola", 0.7},
		{"amount and merchant", 5000, "Enel", "hola", 0.9},
		{"all signals clamp to one", 5000, "Enel", "total a pagar hoy", 1.0},
		{"merchant too short does not count", 5000, "ab", "hola", 0.7},
		// The zero-amount override wins even with every other signal.
		{"zero amount forces low score", 0, "Enel", "total a pagar hoy", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.scoreConfidence(tt.amount, tt.merchant, tt.content)
			if !almostEqual(got, tt.want) {
				t.Errorf("scoreConfidence(%v, %q, %q) = %v, want %v", tt.amount, tt.merchant, tt.content, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("score %v outside [0,1]", got)
			}
		})
	}
}
