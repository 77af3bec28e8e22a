// Package audit records one append-only entry per state transition. Record
// runs inside the caller's transaction, so a failed write fails the
// operation that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"firmgate/internal/audit/models"
	"firmgate/internal/audit/outbox"
	"firmgate/internal/platform/ids"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/privacy"
	"firmgate/pkg/requestcontext"
)

// Store persists entries. Reads return newest first.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	ListByEntity(ctx context.Context, entityID string) ([]*models.Entry, error)
	ListByActor(ctx context.Context, actor string) ([]*models.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Entry, error)
}

// OutboxAppender receives a copy of every entry for asynchronous relay.
type OutboxAppender interface {
	Append(ctx context.Context, entry *outbox.Entry) error
}

// Record is the input to Writer.Record. Entries are stamped with the request
// time; nil Network means the client metadata carried by ctx.
type Record struct {
	Action     models.Action
	EntityType models.EntityType
	EntityID   string
	Actor      string
	ActorType  models.ActorType
	Details    models.Details
	Network    *models.NetworkContext
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type Writer struct {
	store  Store
	outbox OutboxAppender
	logger *slog.Logger
}

type Option func(*Writer)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// WithOutbox mirrors entries into the outbox in the same transaction.
func WithOutbox(o OutboxAppender) Option {
	return func(w *Writer) { w.outbox = o }
}

func NewWriter(store Store, opts ...Option) *Writer {
	w := &Writer{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Record(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	network := r.Network
	if network == nil {
		network = &models.NetworkContext{
			IPAddress: requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			RequestID: requestcontext.RequestID(ctx),
		}
	}
	if network.IsZero() {
		network = nil
	}

	entry := &models.Entry{
		ID:         ids.New(now),
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Actor:      r.Actor,
		ActorType:  r.ActorType,
		Details:    r.Details,
		Network:    network,
		Timestamp:  now,
	}
	if err := w.store.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}

	if w.outbox != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit entry")
		}
		ob := outbox.NewEntry(string(entry.EntityType), entry.EntityID, string(entry.Action), payload, now)
		if err := w.outbox.Append(ctx, ob); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue audit entry")
		}
	}

	w.logger.InfoContext(ctx, string(entry.Action),
		"log_type", "audit",
		"audit_id", entry.ID,
		"entity_type", string(entry.EntityType),
		"entity_id", entry.EntityID,
		"actor_type", string(entry.ActorType),
		"actor", privacy.MaskEmail(entry.Actor),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (r Record) validate() error {
	switch {
	case !r.Action.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unknown audit action %q", r.Action))
	case !r.EntityType.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unknown audit entity type %q", r.EntityType))
	case !r.ActorType.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unknown audit actor type %q", r.ActorType))
	case r.EntityID == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "audit entity id is required")
	case r.Actor == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "audit actor is required")
	}
	return nil
}

func (w *Writer) ListByEntity(ctx context.Context, entityID string) ([]*models.Entry, error) {
	entries, err := w.store.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (w *Writer) ListByActor(ctx context.Context, actor string) ([]*models.Entry, error) {
	entries, err := w.store.ListByActor(ctx, actor)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListRecent clamps limit to [1, MaxListLimit], defaulting to DefaultListLimit.
func (w *Writer) ListRecent(ctx context.Context, limit int) ([]*models.Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	entries, err := w.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
