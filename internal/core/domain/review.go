package domain

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

// ReviewEscalation is published when a document is handed to manual review.
type ReviewEscalation struct {
	ID                  string    `json:"id"`
	Filename            string    `json:"filename"`
	StorageKey          string    `json:"storage_key"`
	PredictedLabel      string    `json:"predicted_label,omitempty"`
	PredictedConfidence float64   `json:"predicted_confidence"`
	MinConfidence       float64   `json:"min_confidence"`
	EscalatedAt         time.Time `json:"escalated_at"`
}

type ReviewItem struct {
	ReviewEscalation
	Status     ReviewStatus `json:"status"`
	ResolvedAs string       `json:"resolved_as,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Outcome is the audit record of one classification run.
type Outcome struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Extension   string        `json:"extension"`
	ContentType string        `json:"content_type,omitempty"`
	Success     bool          `json:"success"`
	Label       string        `json:"label,omitempty"`
	Step        Step          `json:"step,omitempty"`
	Code        string        `json:"code,omitempty"`
	Confidence  float64       `json:"confidence"`
	ReviewKey   string        `json:"review_key,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}
