package parser

import "strings"

// normalizeContent produces the lower-cased blob every keyword stage matches
// against. The original-case subject is kept separately because the merchant
// patterns rely on capitalization cues.
func normalizeContent(subject, sender, body string) string {
	return strings.ToLower(subject + "\n" + sender + "\n" + body)
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
