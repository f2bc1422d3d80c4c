package handler

import (
	"strings"

	"custodian/internal/qa"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/httputil"
)

type TemplateItemRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateTemplateRequest is the body of POST /qa/templates.
type CreateTemplateRequest struct {
	Name  string                `json:"name" validate:"required,max=200"`
	Items []TemplateItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

func (r *CreateTemplateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	for i := range r.Items {
		r.Items[i].Title = strings.TrimSpace(r.Items[i].Title)
		r.Items[i].Description = strings.TrimSpace(r.Items[i].Description)
	}
	return httputil.ValidateStruct(r)
}

func (r *CreateTemplateRequest) toInput() qa.TemplateInput {
	in := qa.TemplateInput{Name: r.Name, Items: make([]qa.ItemInput, 0, len(r.Items))}
	for _, it := range r.Items {
		in.Items = append(in.Items, qa.ItemInput{Title: it.Title, Description: it.Description})
	}
	return in
}

// ApplyTemplateRequest is the body of POST /cases/{caseID}/qa/apply.
// Replace discards the case's earlier responses for the template first.
type ApplyTemplateRequest struct {
	TemplateID string `json:"template_id" validate:"required,uuid"`
	Replace    bool   `json:"replace"`

	templateID id.TemplateID
}

func (r *ApplyTemplateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	templateID, err := id.ParseTemplateID(r.TemplateID)
	if err != nil {
		return err
	}
	r.templateID = templateID
	return nil
}

// UpdateResponseRequest is the body of PATCH /cases/{caseID}/qa/{responseID}.
type UpdateResponseRequest struct {
	Completed *bool   `json:"completed" validate:"required"`
	Notes     *string `json:"notes" validate:"omitempty,max=5000"`
}

func (r *UpdateResponseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return httputil.ValidateStruct(r)
}

func (r *UpdateResponseRequest) toUpdate() qa.ResponseUpdate {
	return qa.ResponseUpdate{Completed: *r.Completed, Notes: r.Notes}
}
