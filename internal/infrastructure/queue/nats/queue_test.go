package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func TestHandleMessageDecodesEscalation(t *testing.T) {
	var got domain.ReviewEscalation
	handleMessage(context.Background(),
		[]byte(`{"id":"r-1","filename":"scan.png","storage_key":"scan.png","predicted_label":"invoice","predicted_confidence":0.41,"min_confidence":0.8,"escalated_at":"2026-03-01T12:00:00Z"}`),
		func(_ context.Context, event domain.ReviewEscalation) error {
			got = event
			return nil
		})
	if got.ID != "r-1" || got.PredictedLabel != "invoice" || got.PredictedConfidence != 0.41 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if !got.EscalatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", got.EscalatedAt)
	}
}

func TestHandleMessageDropsMalformedPayload(t *testing.T) {
	called := false
	handleMessage(context.Background(), []byte("r-1"), func(context.Context, domain.ReviewEscalation) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("malformed payload must not reach the handler")
	}
}

func TestHandleMessageSurvivesHandlerError(t *testing.T) {
	calls := 0
	handleMessage(context.Background(), []byte(`{"id":"r-1"}`), func(context.Context, domain.ReviewEscalation) error {
		calls++
		return errors.New("postgres down")
	})
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
}

func TestMessageHandlerProcessesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		got       domain.ReviewEscalation
		handlerOK bool
	)
	deliver := messageHandler(ctx, func(handlerCtx context.Context, event domain.ReviewEscalation) error {
		got = event
		handlerOK = handlerCtx.Err() == nil
		return nil
	})

	// Shutdown has begun; buffered messages still drain through the handler.
	cancel()
	deliver(&nats.Msg{Data: []byte(`{"id":"r-9","filename":"scan.png"}`)})

	if got.ID != "r-9" {
		t.Fatalf("buffered escalation was dropped: %+v", got)
	}
	if !handlerOK {
		t.Fatalf("handler context must outlive subscription shutdown")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if !classifyNATSError(nats.ErrNoServers).Retryable {
		t.Fatalf("no servers must be retryable")
	}
	if classifyNATSError(nats.ErrBadSubject).Retryable {
		t.Fatalf("bad subject must not be retryable")
	}
	if !domain.IsKind(wrapTemporaryIfNeeded(nats.ErrTimeout), domain.ErrTemporary) {
		t.Fatalf("timeouts must be marked temporary")
	}
	if wrapTemporaryIfNeeded(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
