package parser

import (
	"strings"

	"github.com/dvloznov/gastomail/internal/domain"
)

// inferDirection classifies the movement as income or expense. Income
// markers are checked first; with no signal either way, expense is the
// conservative default for a personal-finance tracker — unflagged mail is
// more often a bill than a windfall.
func (p *Parser) inferDirection(content string) domain.Direction {
	for _, kw := range p.tables.IncomeKeywords {
		if strings.Contains(content, kw) {
			return domain.DirectionIncome
		}
	}
	for _, kw := range p.tables.ExpenseKeywords {
		if strings.Contains(content, kw) {
			return domain.DirectionExpense
		}
	}
	return domain.DirectionExpense
}
