// Package handler serves the public firm signup flow. Routes are
// unauthenticated and rate limited per client IP by the router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"firmgate/internal/onboarding/models"
	tokenmodels "firmgate/internal/token/models"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
)

type Service interface {
	Begin(ctx context.Context, token string) tokenmodels.ValidationResult
	SubmitCredential(ctx context.Context, token, password string) (*models.Outcome, error)
	VerifyCode(ctx context.Context, token, code string) (*models.Outcome, error)
	ResendCode(ctx context.Context, token string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/firm-signup", h.HandleBegin)
	r.Post("/firm-signup/credentials", h.HandleCredentials)
	r.Post("/firm-signup/verify", h.HandleVerify)
	r.Post("/firm-signup/resend", h.HandleResend)
}

// HandleBegin always answers 200; an unusable token is reported in the body.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	res := h.service.Begin(ctx, token)
	if !res.Valid {
		h.logger.InfoContext(ctx, "signup opened with unusable token",
			"reason", string(res.Reason),
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, toSignupStateResponse(res))
}

func (h *Handler) HandleCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	out, err := h.service.SubmitCredential(ctx, req.Token, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "credential submission failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if out.Status == models.OutcomeVerificationRequired {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, toOutcomeResponse(out))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	out, err := h.service.VerifyCode(ctx, req.Token, req.Code)
	if err != nil {
		h.logger.WarnContext(ctx, "verification failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOutcomeResponse(out))
}

func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ResendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.ResendCode(ctx, req.Token); err != nil {
		h.logger.WarnContext(ctx, "resend verification failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResendResponse{Sent: true})
}
