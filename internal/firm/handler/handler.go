// Package handler exposes the admin firm registry over HTTP. Routes are
// mounted behind the admin role gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"firmgate/internal/firm/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	request "firmgate/pkg/platform/middleware/request"
)

type Service interface {
	Create(ctx context.Context, cmd models.CreateFirmCommand, actorEmail string) (*models.Firm, error)
	Update(ctx context.Context, firmID id.FirmID, cmd models.UpdateFirmCommand, actorEmail string) (*models.Firm, error)
	List(ctx context.Context) ([]*models.Firm, error)
	Get(ctx context.Context, firmID id.FirmID) (*models.Firm, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/firms", h.HandleList)
	r.Post("/admin/firms", h.HandleCreate)
	r.Get("/admin/firms/{id}", h.HandleGet)
	r.Patch("/admin/firms/{id}", h.HandleUpdate)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	firms, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list firms failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFirmListResponse(firms))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateFirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	f, err := h.service.Create(ctx, req.ToCommand(), principal.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "create firm failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ToFirmResponse(f))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	firmID, ok := h.firmID(w, r)
	if !ok {
		return
	}

	f, err := h.service.Get(ctx, firmID)
	if err != nil {
		h.logger.WarnContext(ctx, "get firm failed", "error", err, "request_id", requestID, "firm_id", firmID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToFirmResponse(f))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	principal, err := httputil.RequirePrincipal(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	firmID, ok := h.firmID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateFirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	f, err := h.service.Update(ctx, firmID, req.ToCommand(), principal.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "update firm failed", "error", err, "request_id", requestID, "firm_id", firmID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToFirmResponse(f))
}

func (h *Handler) firmID(w http.ResponseWriter, r *http.Request) (id.FirmID, bool) {
	firmID, err := id.ParseFirmID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid firm id"))
		return id.FirmID{}, false
	}
	return firmID, true
}
