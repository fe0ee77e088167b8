package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches three shapes of monetary mention: a currency
// symbol/code followed by a number, a number followed by a currency
// symbol/code, and a keyword anchor ("pago", "total", ...) followed by a
// number. Exactly one of the capture groups is set per match.
var amountPattern = regexp.MustCompile(
	`(?i)(?:[R$£€]|CLP|USD|BRL|EUR|ARS|MXN)\s?([\d.,]+)` +
		`|([\d.,]{3,})\s?(?:[R$£€]|CLP|USD|BRL|EUR|ARS|MXN)` +
		`|\b(?:pago|total|monto|monto pagado|boleta|factura|clp)\b[:\s]*(\d[\d.,]*\d|\d)`)

// subjectAmountPattern detects a symbol-prefixed amount in the subject line.
// Bank and merchant notification subjects routinely state the total, so a
// subject hit outranks every body candidate.
var subjectAmountPattern = regexp.MustCompile(`(?i)(?:\$|CLP)\s?([\d.,]+)`)

// extractAmount scans the normalized content plus the original subject and
// returns the single best amount candidate with the detected currency.
// Zero means no amount could be extracted.
func (p *Parser) extractAmount(content, subject string) (float64, string) {
	// Currency first, independent of the amount. Explicit codes and symbol
	// variants outrank a bare "$", which resolves to the configured default.
	currency := p.opts.DefaultCurrency
	switch {
	case strings.Contains(content, "usd") || strings.Contains(content, "u$s"):
		currency = "USD"
	case strings.Contains(content, "r$") || strings.Contains(content, "brl"):
		currency = "BRL"
	case strings.Contains(content, "€") || strings.Contains(content, "eur"):
		currency = "EUR"
	}

	combined := subject + "\n" + content
	matches := amountPattern.FindAllStringSubmatch(combined, -1)
	if len(matches) == 0 {
		return 0, currency
	}

	var candidates []float64
	for _, m := range matches {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if raw == "" {
			raw = m[3]
		}
		if raw == "" {
			continue
		}
		if v := p.parseLocalizedNumber(raw, currency); v > 0 {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return 0, currency
	}

	// 1. Subject-embedded amount wins outright.
	if m := subjectAmountPattern.FindStringSubmatch(subject); m != nil {
		s := strings.NewReplacer(".", "", ",", "").Replace(m[1])
		if v := parseFloatPrefix(s); v > 0 {
			return v, currency
		}
	}

	// 2. Otherwise pick the largest plausible candidate: the grand total is
	// usually the biggest number in a receipt, line items are smaller.
	var plausible []float64
	for _, v := range candidates {
		if v > p.opts.MinPlausibleAmount && v < p.opts.MaxPlausibleAmount && !p.looksLikeYear(v) {
			plausible = append(plausible, v)
		}
	}
	if len(plausible) > 0 {
		max := plausible[0]
		for _, v := range plausible[1:] {
			if v > max {
				max = v
			}
		}
		return max, currency
	}

	// 3. Nothing plausible; keep the first raw candidate rather than drop
	// the signal entirely.
	return candidates[0], currency
}

// parseLocalizedNumber normalizes separators according to the detected
// currency's convention, then parses the value.
//
// Default-currency amounts (CLP-like, no decimals in consumer use) treat
// every "." and "," as a thousands separator. International amounts keep the
// rightmost separator as the decimal point; a lone "," is decimal only when
// exactly two digits follow it ("1,99"), otherwise it separates thousands.
func (p *Parser) parseLocalizedNumber(raw, currency string) float64 {
	val := strings.ReplaceAll(raw, " ", "")

	if currency == p.opts.DefaultCurrency {
		val = strings.ReplaceAll(val, ".", "")
		val = strings.ReplaceAll(val, ",", "")
		return parseFloatPrefix(val)
	}

	hasDot := strings.Contains(val, ".")
	hasComma := strings.Contains(val, ",")
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(val, ".") > strings.LastIndex(val, ",") {
			val = strings.ReplaceAll(val, ",", "")
		} else {
			val = strings.ReplaceAll(val, ".", "")
			val = strings.Replace(val, ",", ".", 1)
		}
	case hasComma:
		if i := strings.LastIndex(val, ","); len(val)-i-1 == 2 {
			val = strings.Replace(val, ",", ".", 1)
		} else {
			val = strings.ReplaceAll(val, ",", "")
		}
	}
	return parseFloatPrefix(val)
}

func (p *Parser) looksLikeYear(v float64) bool {
	for _, y := range p.opts.YearLikeAmounts {
		if v == y {
			return true
		}
	}
	return false
}

var floatPrefixPattern = regexp.MustCompile(`^\d+(?:\.\d*)?`)

// parseFloatPrefix parses the leading numeric portion of s, ignoring any
// trailing garbage left over after separator normalization. Returns 0 when
// no number is present.
func parseFloatPrefix(s string) float64 {
	m := floatPrefixPattern.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0
	}
	return v
}
