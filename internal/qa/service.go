// Package qa runs the per-case QA checklist: templates of checklist items are
// applied to a case as pending responses, which examiners complete or reopen.
package qa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"custodian/internal/audit"
	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

const (
	maxTemplateName = 200
	maxItemTitle    = 500
	maxItemDesc     = 2000
	maxTemplateSize = 200
	maxNotesLength  = 5000
)

// Store is the persistence the checklist workflow needs.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindCase(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) (*domain.Case, error)
	CreateTemplate(ctx context.Context, t *domain.QATemplate) error
	FindTemplate(ctx context.Context, orgID id.OrganizationID, templateID id.TemplateID) (*domain.QATemplate, error)
	CreateResponses(ctx context.Context, responses []domain.ChecklistResponse) error
	DeleteResponsesForItems(ctx context.Context, caseID id.CaseID, itemIDs []id.ChecklistItemID) (int, error)
	FindResponse(ctx context.Context, caseID id.CaseID, responseID id.ResponseID) (*domain.ChecklistResponse, error)
	UpdateResponse(ctx context.Context, r *domain.ChecklistResponse) error
	ListResponses(ctx context.Context, caseID id.CaseID) ([]domain.ChecklistResponse, error)
}

// AuditRecorder is the secondary audit write path.
type AuditRecorder interface {
	Record(ctx context.Context, rc requestcontext.RequestContext, in audit.Entry)
}

type ItemInput struct {
	Title       string
	Description string
}

type TemplateInput struct {
	Name  string
	Items []ItemInput
}

// ResponseUpdate sets the completion state. A nil Notes leaves notes as is.
type ResponseUpdate struct {
	Completed bool
	Notes     *string
}

// ApplyResult is what applying or replacing a template produced.
type ApplyResult struct {
	Template  *domain.QATemplate
	Responses []domain.ChecklistResponse
	Replaced  int
}

type Service struct {
	store   Store
	auditor AuditRecorder
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, auditor AuditRecorder, opts ...Option) *Service {
	s := &Service{store: store, auditor: auditor}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (in TemplateInput) normalize() (TemplateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return in, dErrors.New(dErrors.CodeValidation, "template name is required")
	case utf8.RuneCountInString(in.Name) > maxTemplateName:
		return in, dErrors.New(dErrors.CodeValidation, "template name is too long")
	case len(in.Items) == 0:
		return in, dErrors.New(dErrors.CodeValidation, "template needs at least one item")
	case len(in.Items) > maxTemplateSize:
		return in, dErrors.New(dErrors.CodeValidation, "template has too many items")
	}
	items := make([]ItemInput, len(in.Items))
	for i, it := range in.Items {
		it.Title = strings.TrimSpace(it.Title)
		it.Description = strings.TrimSpace(it.Description)
		if it.Title == "" {
			return in, dErrors.New(dErrors.CodeValidation, "item title is required")
		}
		if utf8.RuneCountInString(it.Title) > maxItemTitle || utf8.RuneCountInString(it.Description) > maxItemDesc {
			return in, dErrors.New(dErrors.CodeValidation, "item text is too long")
		}
		items[i] = it
	}
	in.Items = items
	return in, nil
}

// CreateTemplate stores an organization template. Item order follows input order.
func (s *Service) CreateTemplate(ctx context.Context, rc requestcontext.RequestContext, in TemplateInput) (*domain.QATemplate, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	t := &domain.QATemplate{ID: id.NewTemplateID(), OrganizationID: rc.OrganizationID, Name: in.Name}
	for i, it := range in.Items {
		templateID := t.ID
		t.Items = append(t.Items, domain.ChecklistItem{
			ID:             id.NewChecklistItemID(),
			OrganizationID: rc.OrganizationID,
			TemplateID:     &templateID,
			Title:          it.Title,
			Description:    it.Description,
			Order:          i,
		})
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.CreateTemplate(ctx, t)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create template")
	}

	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditQATemplateCreated,
		ResourceType: domain.ResourceQATemplate,
		ResourceID:   t.ID.String(),
		Details:      map[string]any{"name": t.Name, "items": len(t.Items)},
	})
	return t, nil
}

// ApplyTemplate creates one pending response per template item, all or
// nothing. Applying the same template twice yields duplicate responses; use
// ReplaceTemplate to start over instead.
func (s *Service) ApplyTemplate(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, templateID id.TemplateID) (*ApplyResult, error) {
	return s.apply(ctx, rc, caseID, templateID, false)
}

// ReplaceTemplate deletes the case's responses for the template's items and
// applies the template afresh, in one transaction.
func (s *Service) ReplaceTemplate(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, templateID id.TemplateID) (*ApplyResult, error) {
	return s.apply(ctx, rc, caseID, templateID, true)
}

func (s *Service) apply(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, templateID id.TemplateID, replace bool) (*ApplyResult, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return nil, err
	}
	t, err := s.store.FindTemplate(ctx, rc.OrganizationID, templateID)
	if err != nil {
		return nil, translateNotFound(err, "template not found")
	}
	if len(t.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "template has no checklist items")
	}

	now := requestcontext.Now(ctx).UTC()
	result := &ApplyResult{Template: t, Responses: make([]domain.ChecklistResponse, 0, len(t.Items))}
	itemIDs := make([]id.ChecklistItemID, 0, len(t.Items))
	for i := range t.Items {
		item := t.Items[i]
		itemIDs = append(itemIDs, item.ID)
		result.Responses = append(result.Responses, domain.ChecklistResponse{
			ID:        id.NewResponseID(),
			CaseID:    caseID,
			ItemID:    item.ID,
			Item:      &item,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if replace {
			n, err := s.store.DeleteResponsesForItems(ctx, caseID, itemIDs)
			if err != nil {
				return err
			}
			result.Replaced = n
		}
		return s.store.CreateResponses(ctx, result.Responses)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to apply QA template",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID.String(),
			"template_id", templateID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply template")
	}

	action := domain.AuditQATemplateApplied
	if replace {
		action = domain.AuditQATemplateReplaced
	}
	s.metrics.addResponsesCreated(len(result.Responses))
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       action,
		ResourceType: domain.ResourceQATemplate,
		ResourceID:   templateID.String(),
		CaseID:       &caseID,
		Details: map[string]any{
			"template": t.Name,
			"created":  len(result.Responses),
			"replaced": result.Replaced,
		},
	})
	return result, nil
}

// UpdateResponse completes or reopens a response. Completing records the
// actor and time; reopening clears both. Setting the state it already has
// only updates notes.
func (s *Service) UpdateResponse(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, responseID id.ResponseID, in ResponseUpdate) (*domain.ChecklistResponse, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if utf8.RuneCountInString(notes) > maxNotesLength {
			return nil, dErrors.New(dErrors.CodeValidation, "notes are too long")
		}
		in.Notes = &notes
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return nil, err
	}

	var (
		resp       *domain.ChecklistResponse
		transition string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.store.FindResponse(ctx, caseID, responseID)
		if err != nil {
			return translateNotFound(err, "checklist response not found")
		}
		now := requestcontext.Now(ctx).UTC()
		switch {
		case in.Completed && !r.Completed:
			r.Complete(rc.ActorID, now)
			transition = "completed"
		case !in.Completed && r.Completed:
			r.Reopen(now)
			transition = "reopened"
		}
		if in.Notes != nil && *in.Notes != r.Notes {
			r.Notes = *in.Notes
			r.UpdatedAt = now
		}
		if err := s.store.UpdateResponse(ctx, r); err != nil {
			return translateNotFound(err, "checklist response not found")
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transition != "" {
		s.metrics.incTransition(transition)
	}
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditQAResponseUpdated,
		ResourceType: domain.ResourceQAResponse,
		ResourceID:   resp.ID.String(),
		CaseID:       &caseID,
		Details: map[string]any{
			"item_id": resp.ItemID.String(),
			"state":   string(resp.State()),
		},
	})
	return resp, nil
}

func (s *Service) ListResponses(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.ChecklistResponse, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return nil, err
	}
	out, err := s.store.ListResponses(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list checklist responses")
	}
	return out, nil
}

// Summary counts the case's responses by state.
func (s *Service) Summary(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (domain.QASummary, error) {
	responses, err := s.ListResponses(ctx, rc, caseID)
	if err != nil {
		return domain.QASummary{}, err
	}
	sum := domain.QASummary{Total: len(responses)}
	for _, r := range responses {
		if r.Completed {
			sum.Completed++
		}
	}
	return sum, nil
}

func (s *Service) findCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*domain.Case, error) {
	c, err := s.store.FindCase(ctx, rc.OrganizationID, caseID)
	if err != nil {
		return nil, translateNotFound(err, "case not found")
	}
	return c, nil
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
