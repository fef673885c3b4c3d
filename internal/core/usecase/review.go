package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
)

const defaultReviewListLimit = 50

// ReviewQueueUseCase turns escalation events into manual-review queue items
// and serves the queue to operators.
type ReviewQueueUseCase struct {
	repo ports.ReviewRepository
	now  func() time.Time
}

func NewReviewQueueUseCase(repo ports.ReviewRepository) *ReviewQueueUseCase {
	return &ReviewQueueUseCase{repo: repo, now: time.Now}
}

func (uc *ReviewQueueUseCase) RecordEscalation(ctx context.Context, event domain.ReviewEscalation) error {
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.StorageKey) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record escalation", errors.New("event id and storage key are required"))
	}

	now := uc.now().UTC()
	item := domain.ReviewItem{
		ReviewEscalation: event,
		Status:           domain.ReviewPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if item.EscalatedAt.IsZero() {
		item.EscalatedAt = now
	}

	if err := uc.repo.EnqueueReview(ctx, item); err != nil {
		return fmt.Errorf("enqueue review %s: %w", event.ID, err)
	}
	return nil
}

func (uc *ReviewQueueUseCase) ListPending(ctx context.Context, limit int) ([]domain.ReviewItem, error) {
	if limit <= 0 {
		limit = defaultReviewListLimit
	}
	items, err := uc.repo.ListPendingReviews(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	return items, nil
}

func (uc *ReviewQueueUseCase) Get(ctx context.Context, id string) (*domain.ReviewItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get review", errors.New("id is required"))
	}
	return uc.repo.GetReview(ctx, id)
}
