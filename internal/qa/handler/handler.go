// Package handler exposes QA templates and case checklists over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodian/internal/domain"
	"custodian/internal/qa"
	id "custodian/pkg/domain"
	"custodian/pkg/platform/httputil"
	"custodian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the checklist operations the handler exposes.
type Service interface {
	CreateTemplate(ctx context.Context, rc requestcontext.RequestContext, in qa.TemplateInput) (*domain.QATemplate, error)
	ApplyTemplate(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, templateID id.TemplateID) (*qa.ApplyResult, error)
	ReplaceTemplate(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, templateID id.TemplateID) (*qa.ApplyResult, error)
	UpdateResponse(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, responseID id.ResponseID, in qa.ResponseUpdate) (*domain.ChecklistResponse, error)
	ListResponses(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.ChecklistResponse, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/qa/templates", h.HandleCreateTemplate)
	r.Route("/cases/{caseID}/qa", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/apply", h.HandleApply)
		r.Patch("/{responseID}", h.HandleUpdateResponse)
	})
}

// HandleCreateTemplate handles POST /qa/templates.
func (h *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTemplateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	t, err := h.service.CreateTemplate(ctx, requestcontext.Actor(ctx), req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTemplateResponse(t))
}

// HandleApply handles POST /cases/{caseID}/qa/apply.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApplyTemplateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	apply := h.service.ApplyTemplate
	if req.Replace {
		apply = h.service.ReplaceTemplate
	}
	res, err := apply(ctx, requestcontext.Actor(ctx), caseID, req.templateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toApplyResponse(res))
}

// HandleList handles GET /cases/{caseID}/qa.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	responses, err := h.service.ListResponses(ctx, requestcontext.Actor(ctx), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(responses))
}

// HandleUpdateResponse handles PATCH /cases/{caseID}/qa/{responseID}.
func (h *Handler) HandleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	responseID, err := id.ParseResponseID(chi.URLParam(r, "responseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateResponseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	resp, err := h.service.UpdateResponse(ctx, requestcontext.Actor(ctx), caseID, responseID, req.toUpdate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toChecklistResponse(*resp))
}
