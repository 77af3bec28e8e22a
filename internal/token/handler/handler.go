// Package handler exposes token issuance and the admin token views.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
	"firmgate/pkg/requestcontext"
)

type Service interface {
	Generate(ctx context.Context, firmID id.FirmID, actorEmail string) (*models.IssuedToken, error)
	ForceGenerate(ctx context.Context, firmID id.FirmID, actorEmail string) (*models.IssuedToken, error)
	ListForFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error)
	ListAll(ctx context.Context) ([]models.TokenWithFirm, error)
	ListActive(ctx context.Context) ([]models.TokenWithFirm, error)
	OnboardingLink(value string) string
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/firms/{id}/tokens", h.HandleGenerate)
	r.Post("/admin/firms/{id}/tokens/force", h.HandleForceGenerate)
	r.Get("/admin/firms/{id}/tokens", h.HandleListForFirm)
	r.Get("/admin/tokens", h.HandleListAll)
	r.Get("/admin/tokens/active", h.HandleListActive)
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.service.Generate)
}

func (h *Handler) HandleForceGenerate(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.service.ForceGenerate)
}

type issueFunc func(ctx context.Context, firmID id.FirmID, actorEmail string) (*models.IssuedToken, error)

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, fn issueFunc) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	firmID, ok := firmIDParam(w, r)
	if !ok {
		return
	}

	issued, err := fn(ctx, firmID, principal.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "issue token failed", "error", err, "request_id", requestID, "firm_id", firmID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &IssuedTokenResponse{
		TokenID:     issued.TokenID.String(),
		Token:       issued.Token,
		Link:        h.service.OnboardingLink(issued.Token),
		ExpiresAt:   issued.ExpiresAt,
		Invalidated: issued.Invalidated,
	})
}

func (h *Handler) HandleListForFirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	firmID, ok := firmIDParam(w, r)
	if !ok {
		return
	}

	tokens, err := h.service.ListForFirm(ctx, firmID)
	if err != nil {
		h.logger.WarnContext(ctx, "list firm tokens failed", "error", err, "request_id", requestID, "firm_id", firmID.String())
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	resp := &TokenListResponse{Tokens: make([]*TokenResponse, 0, len(tokens))}
	for _, t := range tokens {
		resp.Tokens = append(resp.Tokens, toTokenResponse(t, now, h.service.OnboardingLink))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAll)
}

// HandleListActive lists unused tokens, expired ones included.
func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListActive)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fn func(context.Context) ([]models.TokenWithFirm, error)) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tokens, err := fn(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list tokens failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	resp := &TokenListResponse{Tokens: make([]*TokenResponse, 0, len(tokens))}
	for _, tw := range tokens {
		tr := toTokenResponse(tw.Token, now, h.service.OnboardingLink)
		if tw.Firm != nil {
			tr.Firm = &FirmSummaryResponse{ID: tw.Firm.ID.String(), Name: tw.Firm.Name, Email: tw.Firm.Email}
		}
		resp.Tokens = append(resp.Tokens, tr)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func firmIDParam(w http.ResponseWriter, r *http.Request) (id.FirmID, bool) {
	firmID, err := id.ParseFirmID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid firm id"))
		return id.FirmID{}, false
	}
	return firmID, true
}
