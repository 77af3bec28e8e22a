package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	firmhandler "firmgate/internal/firm/handler"
	firmmodels "firmgate/internal/firm/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
)

type FirmReader interface {
	Get(ctx context.Context, firmID id.FirmID) (*firmmodels.Firm, error)
}

type Handler struct {
	classifier *Classifier
	firms      FirmReader
	logger     *slog.Logger
}

func NewHandler(classifier *Classifier, firms FirmReader, logger *slog.Logger) *Handler {
	return &Handler{classifier: classifier, firms: firms, logger: logger}
}

// RegisterAuth mounts the routes any authenticated principal may call.
func (h *Handler) RegisterAuth(r chi.Router) {
	r.Get("/auth/redirect", h.HandleRedirect)
	r.Get("/auth/whoami", h.HandleWhoAmI)
}

// RegisterFirm mounts the firm self-service routes behind the firm gate.
func (h *Handler) RegisterFirm(r chi.Router) {
	r.Get("/firm/me", h.HandleFirmMe)
}

type WhoAmIResponse struct {
	Role   string `json:"role"`
	Email  string `json:"email"`
	FirmID string `json:"firm_id,omitempty"`
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request) (Classification, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return Classification{}, false
	}
	cls, err := h.classifier.Classify(ctx, principal.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "classification failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return Classification{}, false
	}
	return cls, true
}

func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	cls, ok := h.classify(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, DashboardPath(cls.Role), http.StatusSeeOther)
}

func (h *Handler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	cls, ok := h.classify(w, r)
	if !ok {
		return
	}
	resp := WhoAmIResponse{Role: string(cls.Role), Email: cls.Email}
	if !cls.FirmID.IsNil() {
		resp.FirmID = cls.FirmID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleFirmMe expects RequireRole(RoleFirm) to have run.
func (h *Handler) HandleFirmMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cls, ok := ClassificationFrom(ctx)
	if !ok || cls.Role != RoleFirm {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
		return
	}
	f, err := h.firms.Get(ctx, cls.FirmID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load own firm failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, firmhandler.ToFirmResponse(f))
}
