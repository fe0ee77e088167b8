package domain

// Direction indicates whether a movement represents money leaving or
// entering the user's accounts.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// ReviewStatus is the human-in-the-loop state of a movement. It is derived
// from the confidence score exactly once, at parse time; every later change
// comes from the review UI, never from the parser.
type ReviewStatus string

const (
	StatusPendingReview ReviewStatus = "pending_review"
	StatusConfirmed     ReviewStatus = "confirmed"
	StatusDiscarded     ReviewStatus = "discarded"
)

// Valid reports whether s is one of the known review states.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPendingReview, StatusConfirmed, StatusDiscarded:
		return true
	}
	return false
}

// SourceChannel identifies how a movement entered the system.
type SourceChannel string

const (
	SourceEmailIngested SourceChannel = "email_ingested"
	SourceManualEntry   SourceChannel = "manual_entry"
)

// Category labels. The taxonomy is fixed; CategoryOther is the fallback
// when nothing matches.
const (
	CategoryServicios     = "Servicios"
	CategorySuscripciones = "Suscripciones"
	CategoryAlimentacion  = "Alimentación"
	CategoryTransporte    = "Transporte"
	CategoryFinanzas      = "Finanzas"
	CategoryCompras       = "Compras"
	CategoryOther         = "Otros"
)

// MerchantUnknown is the sentinel merchant name when nothing could be
// derived from the sender or subject.
const MerchantUnknown = "Desconocido"

// Movement is one parsed financial transaction derived from an email.
// This is a domain struct, not a BigQuery row; the movement repository maps
// it into the finance.movements table schema.
type Movement struct {
	// ID equals the source email message ID. Re-parsing the same email
	// overwrites the prior record instead of duplicating it.
	ID string `json:"id"`

	// Date is the calendar date in ISO YYYY-MM-DD form.
	Date string `json:"date"`

	// Amount is a non-negative magnitude. Zero means no amount could be
	// extracted from the message.
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	Direction Direction `json:"direction"`
	Category  string    `json:"category"`

	// Merchant is a best-effort name, MerchantUnknown when nothing matched.
	Merchant string `json:"merchant"`

	// Description preserves the original subject line verbatim.
	Description string `json:"description"`

	Source          SourceChannel `json:"source"`
	SourceMessageID string        `json:"source_message_id,omitempty"`

	// ConfidenceScore in [0,1] gates auto-confirmation vs human review.
	ConfidenceScore float64 `json:"confidence_score"`

	// RawExtract keeps the first 500 characters of the body for audit and
	// debugging. It is never used in any computation.
	RawExtract string `json:"raw_extract,omitempty"`

	Status ReviewStatus `json:"status"`
}
