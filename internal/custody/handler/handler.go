// Package handler exposes the custody ledger and case actions over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodian/internal/custody"
	"custodian/internal/domain"
	id "custodian/pkg/domain"
	"custodian/pkg/platform/httputil"
	"custodian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the custody operations the handler exposes.
type Service interface {
	RecordCustodyAction(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, in custody.ActionInput) (*domain.CustodyRecord, error)
	ListCustodyRecords(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error)
	VerifyRecord(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, recordID id.CustodyRecordID) (*domain.CustodyRecord, error)
	VerifyLedger(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*custody.LedgerReport, error)
	ListCaseActions(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.CaseAction, error)
	CreateCaseAction(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, in custody.CaseActionInput) (*domain.CaseAction, error)
	DeleteCaseAction(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, actionID id.CaseActionID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts custody routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/evidence/{evidenceID}/custody", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleRecord)
		r.Get("/verify", h.HandleVerifyLedger)
		r.Get("/{recordID}/verify", h.HandleVerifyRecord)
	})
	r.Route("/cases/{caseID}/actions", func(r chi.Router) {
		r.Get("/", h.HandleListCaseActions)
		r.Post("/", h.HandleCreateCaseAction)
		r.Delete("/{actionID}", h.HandleDeleteCaseAction)
	})
}

// HandleRecord handles POST /evidence/{evidenceID}/custody.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.RecordCustodyAction(ctx, requestcontext.Actor(ctx), evidenceID, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(*rec))
}

// HandleList handles GET /evidence/{evidenceID}/custody.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.ListCustodyRecords(ctx, requestcontext.Actor(ctx), evidenceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list custody records",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLedgerResponse(records))
}

// HandleVerifyRecord handles GET /evidence/{evidenceID}/custody/{recordID}/verify.
// A failed check answers 409 integrity_failure, never 404.
func (h *Handler) HandleVerifyRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recordID, err := id.ParseCustodyRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.VerifyRecord(ctx, requestcontext.Actor(ctx), evidenceID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(*rec))
}

// HandleVerifyLedger handles GET /evidence/{evidenceID}/custody/verify.
func (h *Handler) HandleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.VerifyLedger(ctx, requestcontext.Actor(ctx), evidenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReportResponse(report))
}

// HandleListCaseActions handles GET /cases/{caseID}/actions.
func (h *Handler) HandleListCaseActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actions, err := h.service.ListCaseActions(ctx, requestcontext.Actor(ctx), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]CaseActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, toCaseActionResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": out})
}

// HandleCreateCaseAction handles POST /cases/{caseID}/actions.
func (h *Handler) HandleCreateCaseAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateCaseActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	action, err := h.service.CreateCaseAction(ctx, requestcontext.Actor(ctx), caseID, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseActionResponse(*action))
}

// HandleDeleteCaseAction handles DELETE /cases/{caseID}/actions/{actionID}.
func (h *Handler) HandleDeleteCaseAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actionID, err := id.ParseCaseActionID(chi.URLParam(r, "actionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCaseAction(ctx, requestcontext.Actor(ctx), caseID, actionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
