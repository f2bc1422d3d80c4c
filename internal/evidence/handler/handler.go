// Package handler exposes the evidence registry and case counters over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodian/internal/domain"
	"custodian/internal/evidence"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/httputil"
	"custodian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// DefaultMaxUpload bounds a single evidence binary upload.
const DefaultMaxUpload int64 = 64 << 30

// Service defines the registry operations the handler exposes.
type Service interface {
	CreateEvidence(ctx context.Context, rc requestcontext.RequestContext, in evidence.CreateInput) (*domain.Evidence, error)
	GetEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*domain.Evidence, error)
	ListCaseEvidence(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.Evidence, error)
	UpdateEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, in evidence.UpdateInput) (*domain.Evidence, error)
	DeleteEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) error
	AttachFile(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, ext string, r io.Reader) (*domain.Evidence, error)
	VerifyContentHash(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*evidence.HashReport, error)
	GetCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*domain.Case, error)
	RecountCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*evidence.RecountReport, error)
}

type Handler struct {
	service   Service
	logger    *slog.Logger
	maxUpload int64
}

func New(service Service, logger *slog.Logger, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{service: service, logger: logger, maxUpload: maxUpload}
}

// Register mounts evidence and case routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{caseID}", h.HandleGetCase)
	r.Post("/cases/{caseID}/recount", h.HandleRecount)
	r.Get("/cases/{caseID}/evidence", h.HandleList)
	r.Post("/cases/{caseID}/evidence", h.HandleCreate)
	r.Get("/evidence/{evidenceID}", h.HandleGet)
	r.Patch("/evidence/{evidenceID}", h.HandleUpdate)
	r.Delete("/evidence/{evidenceID}", h.HandleDelete)
	r.Put("/evidence/{evidenceID}/file", h.HandleUpload)
	r.Get("/evidence/{evidenceID}/file/verify", h.HandleVerifyHash)
}

// HandleCreate handles POST /cases/{caseID}/evidence.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateEvidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ev, err := h.service.CreateEvidence(ctx, requestcontext.Actor(ctx), req.toInput(caseID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEvidenceResponse(*ev))
}

// HandleList handles GET /cases/{caseID}/evidence.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.service.ListCaseEvidence(ctx, requestcontext.Actor(ctx), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]EvidenceResponse, 0, len(items))
	for _, ev := range items {
		out = append(out, toEvidenceResponse(ev))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"evidence": out})
}

// HandleGet handles GET /evidence/{evidenceID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.service.GetEvidence(ctx, requestcontext.Actor(ctx), evidenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEvidenceResponse(*ev))
}

// HandleUpdate handles PATCH /evidence/{evidenceID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateEvidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ev, err := h.service.UpdateEvidence(ctx, requestcontext.Actor(ctx), evidenceID, req.in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEvidenceResponse(*ev))
}

// HandleDelete handles DELETE /evidence/{evidenceID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteEvidence(ctx, requestcontext.Actor(ctx), evidenceID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpload handles PUT /evidence/{evidenceID}/file?ext=.dd. The body is
// the raw binary.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ext := r.URL.Query().Get("ext")
	if ext == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ext query parameter is required"))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	ev, err := h.service.AttachFile(ctx, requestcontext.Actor(ctx), evidenceID, ext, body)
	if err != nil {
		h.logger.WarnContext(ctx, "evidence upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEvidenceResponse(*ev))
}

// HandleVerifyHash handles GET /evidence/{evidenceID}/file/verify.
func (h *Handler) HandleVerifyHash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.VerifyContentHash(ctx, requestcontext.Actor(ctx), evidenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHashResponse(report))
}

// HandleGetCase handles GET /cases/{caseID}.
func (h *Handler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCase(ctx, requestcontext.Actor(ctx), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(*c))
}

// HandleRecount handles POST /cases/{caseID}/recount.
func (h *Handler) HandleRecount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.RecountCase(ctx, requestcontext.Actor(ctx), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecountResponse(report))
}
