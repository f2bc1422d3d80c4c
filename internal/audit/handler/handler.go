// Package handler exposes the audit trail over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodian/internal/audit"
	"custodian/internal/domain"
	"custodian/pkg/platform/httputil"
	"custodian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the slice of the audit service the handler uses.
type Service interface {
	Append(ctx context.Context, rc requestcontext.RequestContext, in audit.Entry) (*domain.AuditEntry, error)
	Query(ctx context.Context, rc requestcontext.RequestContext, filter domain.AuditFilter, page, limit int) (*domain.AuditPage, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the audit routes. The router is expected to carry the auth
// middleware already.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.HandleQuery)
	r.Post("/audit", h.HandleAppend)
}

// HandleQuery handles GET /audit?resource_type=&action=&case_id=&page=&limit=.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	rc := requestcontext.Actor(ctx)

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.Query(ctx, rc, q.filter, q.page, q.limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query audit log",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

// HandleAppend handles POST /audit for mutations recorded by other parts of
// the application.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	rc := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[AppendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.Append(ctx, rc, req.toEntry())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to append audit entry",
			"request_id", requestID,
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEntryResponse(*entry))
}
