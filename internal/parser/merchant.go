package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dvloznov/gastomail/internal/domain"
)

// extractMerchant derives a merchant name from the sender header and the
// subject line, in priority order: known service providers, subject
// extraction patterns, sender display name, local part of the address.
func (p *Parser) extractMerchant(sender, subject string) string {
	senderName := strings.TrimSpace(strings.ReplaceAll(strings.SplitN(sender, "<", 2)[0], `"`, ""))
	lowerSender := strings.ToLower(senderName)
	lowerSubject := strings.ToLower(subject)

	for _, provider := range p.tables.ServiceProviders {
		if strings.Contains(lowerSender, provider) || strings.Contains(lowerSubject, provider) {
			return capitalize(provider)
		}
	}

	for _, pat := range p.tables.MerchantPatterns {
		m := pat.FindStringSubmatch(subject)
		if m == nil {
			continue
		}
		found := strings.TrimSpace(m[1])
		// Reject generic captures: too short, too long, or the word "pago"
		// itself leaked into the name. Length limits count runes, not bytes,
		// so accented names are not penalized.
		n := utf8.RuneCountInString(found)
		if n > 2 && n < 30 && !strings.Contains(strings.ToLower(found), "pago") {
			return found
		}
	}

	if senderName != "" && !strings.Contains(senderName, "@") {
		return senderName
	}
	if local := strings.SplitN(senderName, "@", 2)[0]; local != "" {
		return local
	}
	return domain.MerchantUnknown
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
