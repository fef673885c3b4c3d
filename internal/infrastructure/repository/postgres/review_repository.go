package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// ReviewRepository is the manual-review queue.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// EnqueueReview is idempotent on the event id so a redelivered escalation does
// not create a second queue item.
func (r *ReviewRepository) EnqueueReview(ctx context.Context, item domain.ReviewItem) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO review_queue (
	id, filename, storage_key, predicted_label, predicted_confidence, min_confidence, status, resolved_as, escalated_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`,
		item.ID, item.Filename, item.StorageKey, nullString(item.PredictedLabel), item.PredictedConfidence,
		item.MinConfidence, string(item.Status), nullString(item.ResolvedAs), item.EscalatedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

const reviewColumns = `id, filename, storage_key, predicted_label, predicted_confidence, min_confidence, status, resolved_as, escalated_at, created_at, updated_at`

func (r *ReviewRepository) GetReview(ctx context.Context, id string) (*domain.ReviewItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_queue WHERE id = $1`, id)
	item, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReviewNotFound, "get review", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan review item: %w", err)
	}
	return item, nil
}

func (r *ReviewRepository) ListPendingReviews(ctx context.Context, limit int) ([]domain.ReviewItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+reviewColumns+`
FROM review_queue
WHERE status = $1
ORDER BY escalated_at ASC
LIMIT $2
`, string(domain.ReviewPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending reviews: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ReviewItem, 0, limit)
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending reviews: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*domain.ReviewItem, error) {
	var item domain.ReviewItem
	var label, resolvedAs sql.NullString
	var status string
	err := row.Scan(
		&item.ID, &item.Filename, &item.StorageKey, &label, &item.PredictedConfidence, &item.MinConfidence,
		&status, &resolvedAs, &item.EscalatedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.PredictedLabel = label.String
	item.ResolvedAs = resolvedAs.String
	item.Status = domain.ReviewStatus(status)
	return &item, nil
}
