package parser

import (
	"math"
	"strings"

	"github.com/dvloznov/gastomail/internal/domain"
)

// scoreConfidence estimates how trustworthy the extraction is. Base 0.4,
// plus 0.3 for a positive amount, 0.2 for a real merchant name, 0.2 for a
// bill keyword in the content. A zero amount overrides everything down to
// 0.1: an un-amounted record is never trustworthy.
func (p *Parser) scoreConfidence(amount float64, merchant, content string) float64 {
	score := 0.4

	if amount > 0 {
		score += 0.3
	}
	if merchant != domain.MerchantUnknown && len(merchant) > 2 {
		score += 0.2
	}
	for _, kw := range p.tables.BillKeywords {
		if strings.Contains(content, kw) {
			score += 0.2
			break
		}
	}

	if amount == 0 {
		score = 0.1
	}

	return math.Max(0, math.Min(score, 1))
}
