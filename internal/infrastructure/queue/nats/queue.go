package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/infrastructure/resilience"
)

// DefaultReviewSubject carries manual-review escalations.
const DefaultReviewSubject = "triage.review.escalated"

const workerQueueGroup = "review-workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Queue, error) {
	if subject == "" {
		subject = DefaultReviewSubject
	}
	clientName := options.ClientName
	if clientName == "" {
		clientName = "document-triage"
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishEscalation(ctx context.Context, event domain.ReviewEscalation) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeEscalations delivers events to handler through a queue group, so
// several workers share the stream. It blocks until ctx ends, then drains:
// messages already buffered are still handled before it returns.
func (q *Queue) SubscribeEscalations(ctx context.Context, handler func(context.Context, domain.ReviewEscalation) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, messageHandler(ctx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := waitDrained(sub, drainTimeout); err != nil {
		return err
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

const drainTimeout = 30 * time.Second

// messageHandler detaches handlers from ctx cancellation. Core NATS does not
// redeliver, so an escalation dropped during drain would never reach review.
func messageHandler(ctx context.Context, handler func(context.Context, domain.ReviewEscalation) error) nats.MsgHandler {
	handlerCtx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		handleMessage(handlerCtx, msg.Data, handler)
	}
}

func waitDrained(sub *nats.Subscription, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return fmt.Errorf("nats drain subscription: not finished after %s", timeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// handleMessage decodes one escalation and runs handler on it. Malformed
// payloads are logged and dropped; redelivering them would never succeed.
func handleMessage(ctx context.Context, data []byte, handler func(context.Context, domain.ReviewEscalation) error) {
	var event domain.ReviewEscalation
	if err := json.Unmarshal(data, &event); err != nil {
		slog.ErrorContext(ctx, "escalation_decode_failed", "error", err, "bytes", len(data))
		return
	}

	if err := handler(ctx, event); err != nil {
		slog.ErrorContext(ctx, "escalation_handler_failed", "review_id", event.ID, "error", err)
	}
}
