package parser

import (
	"strings"

	"github.com/dvloznov/gastomail/internal/domain"
)

// inferCategory resolves the category in two passes over the rules, both in
// taxonomy order: first against the merchant name alone, then against the
// normalized content. The merchant pass runs to completion before the content
// pass starts, so a recognized merchant always wins over an incidental keyword
// hit in the message text. No match falls back to CategoryOther.
func (p *Parser) inferCategory(merchant, content string) string {
	lowerMerchant := strings.ToLower(merchant)
	for _, rule := range p.tables.Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowerMerchant, kw) {
				return rule.Name
			}
		}
	}
	for _, rule := range p.tables.Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(content, kw) {
				return rule.Name
			}
		}
	}
	return domain.CategoryOther
}
