package handler

import (
	"strings"

	"custodian/internal/custody"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/httputil"
)

// RecordActionRequest is the body of POST /evidence/{evidenceID}/custody.
// The action name is resolved against the case's actions by the service.
type RecordActionRequest struct {
	Action   string `json:"action" validate:"required,max=100"`
	Reason   string `json:"reason" validate:"max=2000"`
	Location string `json:"location" validate:"max=255"`
}

func (r *RecordActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Action = strings.TrimSpace(r.Action)
	r.Reason = strings.TrimSpace(r.Reason)
	r.Location = strings.TrimSpace(r.Location)
	return httputil.ValidateStruct(r)
}

func (r *RecordActionRequest) toInput() custody.ActionInput {
	return custody.ActionInput{Action: r.Action, Reason: r.Reason, Location: r.Location}
}

// CreateCaseActionRequest is the body of POST /cases/{caseID}/actions.
type CreateCaseActionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Order       *int   `json:"order" validate:"omitempty,gte=0,lte=1000"`
}

func (r *CreateCaseActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	return httputil.ValidateStruct(r)
}

func (r *CreateCaseActionRequest) toInput() custody.CaseActionInput {
	return custody.CaseActionInput{Name: r.Name, Description: r.Description, Order: r.Order}
}
