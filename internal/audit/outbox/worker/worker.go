// Package worker relays audit outbox entries to Kafka.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"firmgate/internal/audit/outbox"
	"firmgate/internal/audit/outbox/metrics"
	"firmgate/internal/platform/kafka/producer"
)

// Publisher is satisfied by *producer.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// TxRunner scopes one batch so row locks taken by FetchUnprocessed hold
// until the batch is marked.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Worker struct {
	store        outbox.Store
	publisher    Publisher
	tx           TxRunner
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithTx(runner TxRunner) Option {
	return func(w *Worker) { w.tx = runner }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        "firmgate.audit",
		batchSize:    100,
		pollInterval: time.Second,
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a short
// grace period.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			if _, err := w.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "audit outbox poll failed", "error", err)
			}
		}
	}
}

// PollOnce publishes at most one batch and reports how many entries were
// marked processed.
func (w *Worker) PollOnce(ctx context.Context) (int, error) {
	start := time.Now()
	published := 0
	err := w.inTx(ctx, func(ctx context.Context) error {
		entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
		if err != nil {
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		if w.metrics != nil {
			w.metrics.ObserveBatchSize(len(entries))
		}
		for _, entry := range entries {
			if err := w.publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish audit outbox entry",
					"id", entry.ID, "event_type", entry.EventType, "error", err)
				if w.metrics != nil {
					w.metrics.IncPublishFailures()
				}
				continue
			}
			// A publish that is not marked is re-sent next poll; consumers
			// dedupe on the outbox_id header.
			if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
				w.logger.ErrorContext(ctx, "failed to mark audit outbox entry processed", "id", entry.ID, "error", err)
				continue
			}
			published++
			if w.metrics != nil {
				w.metrics.IncPublished()
			}
		}
		return nil
	})
	if w.metrics != nil {
		w.metrics.ObservePollDuration(time.Since(start).Seconds())
	}
	return published, err
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	err := w.publisher.Produce(ctx, &producer.Message{
		Topic: w.topic,
		// Keyed by entity so every entry for one firm or token lands on the
		// same partition in order.
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"outbox_id":   entry.ID.String(),
			"entity_type": entry.AggregateType,
			"entity_id":   entry.AggregateID,
			"action":      entry.EventType,
		},
	})
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return nil
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	w.logger.Info("draining audit outbox")
	for {
		n, err := w.PollOnce(ctx)
		if err != nil {
			w.logger.Error("audit outbox drain stopped", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}

// UpdatePendingDepth refreshes the backlog gauge.
func (w *Worker) UpdatePendingDepth(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	n, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(n)
	return nil
}

func (w *Worker) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if w.tx == nil {
		return fn(ctx)
	}
	return w.tx.RunInTx(ctx, fn)
}
