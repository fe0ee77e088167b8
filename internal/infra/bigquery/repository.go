// Package bigquery persists movements to the finance dataset. Upserts key on
// the movement ID (the source email message ID) so re-parsing the same email
// overwrites the prior record instead of duplicating it.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/gastomail/internal/domain"
)

// MovementFilter restricts ListMovements.
type MovementFilter struct {
	Status domain.ReviewStatus // empty matches all
	Limit  int                 // 0 means no limit
}

// MovementRepository is the storage interface the pipeline and the API
// consume. The BigQuery implementation below is the production one; tests
// substitute in-memory fakes.
type MovementRepository interface {
	UpsertMovements(ctx context.Context, movements []domain.Movement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]domain.Movement, error)
	UpdateReviewStatus(ctx context.Context, movementID string, status domain.ReviewStatus) error
	Close() error
}

// Repository is the BigQuery-backed MovementRepository.
type Repository struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewRepository creates a repository against the given project, dataset and
// table. Application Default Credentials are assumed.
func NewRepository(ctx context.Context, projectID, dataset, table string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("movements repository: bigquery client: %w", err)
	}
	return &Repository{client: client, dataset: dataset, table: table}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

// UpsertMovements MERGEs each movement by ID. One statement per movement
// keeps the SQL simple; sync batches are small (max ~100 messages).
func (r *Repository) UpsertMovements(ctx context.Context, movements []domain.Movement) error {
	for _, m := range movements {
		row, err := RowFromMovement(m, time.Now())
		if err != nil {
			return err
		}
		if err := r.upsertRow(ctx, row); err != nil {
			return fmt.Errorf("upsert movement %s: %w", m.ID, err)
		}
	}
	return nil
}

func (r *Repository) upsertRow(ctx context.Context, row MovementRow) error {
	q := r.client.Query(fmt.Sprintf(`
		MERGE %s.%s t
		USING (SELECT @movement_id AS movement_id) s
		ON t.movement_id = s.movement_id
		WHEN MATCHED THEN UPDATE SET
			movement_date = @movement_date,
			amount = @amount,
			currency = @currency,
			direction = @direction,
			category = @category,
			merchant = @merchant,
			description = @description,
			source = @source,
			source_message_id = @source_message_id,
			confidence_score = @confidence_score,
			raw_extract = @raw_extract,
			review_status = @review_status,
			updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (
			movement_id, movement_date, amount, currency, direction, category,
			merchant, description, source, source_message_id, confidence_score,
			raw_extract, review_status, created_ts
		) VALUES (
			@movement_id, @movement_date, @amount, @currency, @direction, @category,
			@merchant, @description, @source, @source_message_id, @confidence_score,
			@raw_extract, @review_status, CURRENT_TIMESTAMP()
		)`, r.dataset, r.table))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "movement_id", Value: row.MovementID},
		{Name: "movement_date", Value: row.MovementDate},
		{Name: "amount", Value: row.Amount},
		{Name: "currency", Value: row.Currency},
		{Name: "direction", Value: row.Direction},
		{Name: "category", Value: row.Category},
		{Name: "merchant", Value: row.Merchant},
		{Name: "description", Value: row.Description},
		{Name: "source", Value: row.Source},
		{Name: "source_message_id", Value: row.SourceMessageID},
		{Name: "confidence_score", Value: row.ConfidenceScore},
		{Name: "raw_extract", Value: row.RawExtract.StringVal},
		{Name: "review_status", Value: row.ReviewStatus},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run merge: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for merge: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}

// ListMovements returns movements, newest first, optionally filtered by
// review status.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]domain.Movement, error) {
	sql := fmt.Sprintf(`
		SELECT movement_id, movement_date, amount, currency, direction, category,
			merchant, description, source, source_message_id, confidence_score,
			raw_extract, review_status, created_ts, updated_ts
		FROM %s.%s`, r.dataset, r.table)

	var params []bigquery.QueryParameter
	if filter.Status != "" {
		sql += ` WHERE review_status = @review_status`
		params = append(params, bigquery.QueryParameter{Name: "review_status", Value: string(filter.Status)})
	}
	sql += ` ORDER BY movement_date DESC, created_ts DESC`
	if filter.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	var movements []domain.Movement
	for {
		var row MovementRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list movements: iterate: %w", err)
		}
		movements = append(movements, row.Movement())
	}
	return movements, nil
}

// UpdateReviewStatus records the human review decision for one movement.
// This is the only mutation of review_status after parse time.
func (r *Repository) UpdateReviewStatus(ctx context.Context, movementID string, status domain.ReviewStatus) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET review_status = @review_status, updated_ts = CURRENT_TIMESTAMP()
		WHERE movement_id = @movement_id`, r.dataset, r.table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "review_status", Value: string(status)},
		{Name: "movement_id", Value: movementID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	st, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("update review status: wait: %w", err)
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	return nil
}

var _ MovementRepository = (*Repository)(nil)
