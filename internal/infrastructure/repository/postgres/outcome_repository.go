package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// OutcomeRepository keeps the audit trail of classification runs.
type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

func (r *OutcomeRepository) RecordOutcome(ctx context.Context, o domain.Outcome) error {
	step := sql.NullInt16{Int16: int16(o.Step), Valid: o.Step != 0}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO classification_outcomes (
	id, filename, extension, content_type, success, label, step, code, confidence, review_key, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		o.ID, o.Filename, o.Extension, nullString(o.ContentType), o.Success, nullString(o.Label), step,
		nullString(o.Code), o.Confidence, nullString(o.ReviewKey), float64(o.Duration.Microseconds())/1000.0, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}
