// Package parser turns raw transactional emails of unknown structure and
// locale into structured Movement records. It is a pure, stateless
// computation: no I/O, no clock dependence beyond the injectable date
// fallback, and it never fails — degraded input degrades to sentinel values
// (zero amount, "Desconocido" merchant, "Otros" category) with a low
// confidence score instead of an error.
package parser

import (
	"strings"
	"time"

	"github.com/dvloznov/gastomail/internal/domain"
)

// Defaults for the amount plausibility filter. The bounds and the year list
// are tuned to the primary deployment currency and time window; both are
// overridable via Options for other locales.
const (
	DefaultCurrency     = "CLP"
	DefaultMinPlausible = 10
	DefaultMaxPlausible = 2_000_000
	rawExtractMaxRunes  = 500
	confirmedAboveScore = 0.8
)

// Options configures a Parser. The zero value is usable; missing fields are
// filled from the defaults above.
type Options struct {
	// DefaultCurrency is assumed when the message carries no currency
	// marker, or only a bare "$".
	DefaultCurrency string

	// MinPlausibleAmount and MaxPlausibleAmount bound the candidate filter:
	// values outside (min, max) are discarded as implausible for a personal
	// expense when a better candidate exists.
	MinPlausibleAmount float64
	MaxPlausibleAmount float64

	// YearLikeAmounts are literal values discarded because they are almost
	// always a date, not a price.
	YearLikeAmounts []float64

	// Now supplies the fallback date for messages with an empty or
	// unparseable date header. Defaults to time.Now.
	Now func() time.Time

	// Tables overrides the built-in lookup tables.
	Tables *Tables
}

// Parser is the transaction-extraction engine. Safe for concurrent use:
// Parse reads only its arguments and the fixed tables.
type Parser struct {
	opts   Options
	tables *Tables
}

// New builds a Parser, applying defaults for any unset option.
func New(opts Options) *Parser {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultCurrency
	}
	if opts.MinPlausibleAmount == 0 {
		opts.MinPlausibleAmount = DefaultMinPlausible
	}
	if opts.MaxPlausibleAmount == 0 {
		opts.MaxPlausibleAmount = DefaultMaxPlausible
	}
	if opts.YearLikeAmounts == nil {
		opts.YearLikeAmounts = []float64{2023, 2024, 2025, 2026}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	tables := opts.Tables
	if tables == nil {
		tables = DefaultTables()
	}
	return &Parser{opts: opts, tables: tables}
}

// Parse extracts a Movement from one email. It never fails: a message with
// no extractable signal still yields a fully-formed record with sentinel
// values and confidence 0.1.
//
// The review status is decided here, once, from the confidence score; the
// parser never recomputes it afterwards.
func (p *Parser) Parse(messageID, subject, body, sender, date string) domain.Movement {
	content := normalizeContent(subject, sender, body)

	amount, currency := p.extractAmount(content, subject)
	direction := p.inferDirection(content)
	merchant := p.extractMerchant(sender, subject)
	category := p.inferCategory(merchant, content)
	score := p.scoreConfidence(amount, merchant, content)

	status := domain.StatusPendingReview
	if score > confirmedAboveScore {
		status = domain.StatusConfirmed
	}

	return domain.Movement{
		ID:              messageID,
		Date:            p.normalizeDate(date),
		Amount:          amount,
		Currency:        currency,
		Direction:       direction,
		Category:        category,
		Merchant:        merchant,
		Description:     subject,
		Source:          domain.SourceEmailIngested,
		SourceMessageID: messageID,
		ConfidenceScore: score,
		RawExtract:      truncateRunes(body, rawExtractMaxRunes),
		Status:          status,
	}
}

// normalizeDate coerces the incoming date string to ISO YYYY-MM-DD,
// substituting the injected clock's today for anything empty or
// unparseable.
func (p *Parser) normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err == nil {
			return date
		}
		for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
			if t, err := time.Parse(layout, date); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return p.opts.Now().Format("2006-01-02")
}
