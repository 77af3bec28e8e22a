package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"firmgate/internal/admin/types"
	auditmodels "firmgate/internal/audit/models"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
)

type SessionService interface {
	EnsureAdminUser(ctx context.Context, email, identityRef string) (*types.AdminUser, bool, error)
	RecordLogin(ctx context.Context, email, identityRef string) error
}

type AuditReader interface {
	ListByEntity(ctx context.Context, entityID string) ([]*auditmodels.Entry, error)
	ListByActor(ctx context.Context, actor string) ([]*auditmodels.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]*auditmodels.Entry, error)
}

type Handler struct {
	sessions SessionService
	audit    AuditReader
	logger   *slog.Logger
}

func New(sessions SessionService, auditReader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		audit:    auditReader,
		logger:   logger,
	}
}

// Register mounts the admin routes. They sit behind the admin role gate.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/session", h.HandleSession)
	r.Get("/admin/audit", h.HandleAudit)
}

// HandleSession is called once per admin sign-in.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, created, err := h.sessions.EnsureAdminUser(ctx, principal.Email, principal.Subject)
	if err == nil && !created {
		err = h.sessions.RecordLogin(ctx, principal.Email, principal.Subject)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "admin session failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin signed in",
		"admin_user_id", user.ID.String(),
		"first_login", created,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, types.SessionResponse{
		AdminUserID: user.ID.String(),
		Email:       user.Email,
		FirstLogin:  created,
		CreatedAt:   user.CreatedAt,
	})
}

// HandleAudit filters by entity_id, else actor, else returns the most recent
// entries up to limit.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	q := r.URL.Query()

	var (
		entries []*auditmodels.Entry
		err     error
	)
	switch entityID, actor := strings.TrimSpace(q.Get("entity_id")), strings.TrimSpace(q.Get("actor")); {
	case entityID != "":
		entries, err = h.audit.ListByEntity(ctx, entityID)
	case actor != "":
		entries, err = h.audit.ListByActor(ctx, actor)
	default:
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
				return
			}
		}
		entries, err = h.audit.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit entries failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, types.ToAuditListResponse(entries))
}
