package bigquery

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/gastomail/internal/domain"
)

// MovementRow maps a domain movement into the finance.movements table
// schema.
type MovementRow struct {
	MovementID string `bigquery:"movement_id"` // REQUIRED, equals the source email message ID

	MovementDate civil.Date `bigquery:"movement_date"` // REQUIRED
	Amount       float64    `bigquery:"amount"`        // REQUIRED, >= 0
	Currency     string     `bigquery:"currency"`      // REQUIRED

	Direction string `bigquery:"direction"`
	Category  string `bigquery:"category"`
	Merchant  string `bigquery:"merchant"`

	Description string `bigquery:"description"` // original subject line

	Source          string `bigquery:"source"`
	SourceMessageID string `bigquery:"source_message_id"`

	ConfidenceScore float64             `bigquery:"confidence_score"`
	RawExtract      bigquery.NullString `bigquery:"raw_extract"`

	ReviewStatus string `bigquery:"review_status"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// RowFromMovement converts a domain movement into its table row.
func RowFromMovement(m domain.Movement, now time.Time) (MovementRow, error) {
	date, err := civil.ParseDate(m.Date)
	if err != nil {
		return MovementRow{}, fmt.Errorf("movement %s: invalid date %q: %w", m.ID, m.Date, err)
	}

	row := MovementRow{
		MovementID:      m.ID,
		MovementDate:    date,
		Amount:          m.Amount,
		Currency:        m.Currency,
		Direction:       string(m.Direction),
		Category:        m.Category,
		Merchant:        m.Merchant,
		Description:     m.Description,
		Source:          string(m.Source),
		SourceMessageID: m.SourceMessageID,
		ConfidenceScore: m.ConfidenceScore,
		ReviewStatus:    string(m.Status),
		CreatedTS:       now,
	}
	if m.RawExtract != "" {
		row.RawExtract = bigquery.NullString{StringVal: m.RawExtract, Valid: true}
	}
	return row, nil
}

// Movement converts the row back into the domain struct.
func (r MovementRow) Movement() domain.Movement {
	return domain.Movement{
		ID:              r.MovementID,
		Date:            r.MovementDate.String(),
		Amount:          r.Amount,
		Currency:        r.Currency,
		Direction:       domain.Direction(r.Direction),
		Category:        r.Category,
		Merchant:        r.Merchant,
		Description:     r.Description,
		Source:          domain.SourceChannel(r.Source),
		SourceMessageID: r.SourceMessageID,
		ConfidenceScore: r.ConfidenceScore,
		RawExtract:      r.RawExtract.StringVal,
		Status:          domain.ReviewStatus(r.ReviewStatus),
	}
}
