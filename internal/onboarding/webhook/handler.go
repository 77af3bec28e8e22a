// Package webhook receives signed account lifecycle events from the identity
// provider and feeds them to onboarding reconciliation.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	svix "github.com/svix/svix-webhooks/go"

	"firmgate/internal/onboarding/models"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
	"firmgate/pkg/platform/privacy"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	maxPayloadBytes = 1 << 20
	DefaultClaimTTL = 24 * time.Hour
)

type Reconciler interface {
	HandleAccountFinalized(ctx context.Context, email, identityRef string) (*models.ReconcileResult, error)
}

// Verifier checks a delivery signature. *svix.Webhook satisfies it.
type Verifier interface {
	Verify(payload []byte, headers http.Header) error
}

// Deduper claims delivery ids so a retried delivery is processed once.
type Deduper interface {
	Claim(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, deliveryID string) error
}

type Handler struct {
	reconciler Reconciler
	verifier   Verifier
	dedupe     Deduper
	claimTTL   time.Duration
	logger     *slog.Logger
}

// NewSvixVerifier builds a Verifier from a "whsec_" signing secret.
func NewSvixVerifier(secret string) (Verifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid webhook signing secret")
	}
	return wh, nil
}

func New(reconciler Reconciler, verifier Verifier, dedupe Deduper, logger *slog.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		verifier:   verifier,
		dedupe:     dedupe,
		claimTTL:   DefaultClaimTTL,
		logger:     logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/identity", h.HandleIdentityEvent)
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandleIdentityEvent answers 400 for anything the provider should not retry
// and 500 when a retry could succeed.
func (h *Handler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	deliveryID := r.Header.Get(headerID)
	if deliveryID == "" || r.Header.Get(headerTimestamp) == "" || r.Header.Get(headerSignature) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing webhook signature headers"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable webhook payload"))
		return
	}
	if err := h.verifier.Verify(payload, r.Header); err != nil {
		h.logger.WarnContext(ctx, "webhook signature rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook signature"))
		return
	}

	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook payload"))
		return
	}
	if evt.Type != EventUserCreated {
		httputil.WriteJSON(w, http.StatusOK, ackResponse{Status: "ignored"})
		return
	}
	email := evt.Data.PrimaryEmail()
	if email == "" || evt.Data.ID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user.created event without primary email or user id"))
		return
	}

	claimed, err := h.dedupe.Claim(ctx, deliveryID, h.claimTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook dedupe claim failed", "error", err, "delivery_id", deliveryID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "dedupe unavailable"))
		return
	}
	if !claimed {
		h.logger.InfoContext(ctx, "duplicate webhook delivery", "delivery_id", deliveryID)
		httputil.WriteJSON(w, http.StatusOK, ackResponse{Status: "duplicate"})
		return
	}

	res, err := h.reconciler.HandleAccountFinalized(ctx, email, evt.Data.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "account finalized reconciliation failed",
			"error", err,
			"delivery_id", deliveryID,
			"email", privacy.MaskEmail(email),
			"request_id", requestID,
		)
		if relErr := h.dedupe.Release(ctx, deliveryID); relErr != nil {
			h.logger.WarnContext(ctx, "webhook dedupe release failed", "error", relErr, "delivery_id", deliveryID)
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "reconciliation failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ackResponse{Status: string(res.Status)})
}
