package domain

import (
	"time"

	id "custodian/pkg/domain"
)

// QATemplate groups checklist items that are applied to a case together.
type QATemplate struct {
	ID             id.TemplateID
	OrganizationID id.OrganizationID
	Name           string
	Items          []ChecklistItem
}

// ChecklistItem is an organization- or template-scoped checklist definition.
type ChecklistItem struct {
	ID             id.ChecklistItemID
	OrganizationID id.OrganizationID
	TemplateID     *id.TemplateID
	Title          string
	Description    string
	Order          int
}

// ResponseState is derived from Completed; kept as a type for display.
type ResponseState string

const (
	ResponsePending   ResponseState = "pending"
	ResponseCompleted ResponseState = "completed"
)

// ChecklistResponse is the per-case completion state of one checklist item.
// Invariant: CompletedBy/CompletedAt are set iff Completed is true.
type ChecklistResponse struct {
	ID          id.ResponseID
	CaseID      id.CaseID
	ItemID      id.ChecklistItemID
	Item        *ChecklistItem
	Completed   bool
	CompletedBy *id.ActorID
	CompletedAt *time.Time
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r ChecklistResponse) State() ResponseState {
	if r.Completed {
		return ResponseCompleted
	}
	return ResponsePending
}

// Complete marks the response completed by actor at now.
func (r *ChecklistResponse) Complete(actor id.ActorID, now time.Time) {
	r.Completed = true
	r.CompletedBy = &actor
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// Reopen reverts the response to pending.
func (r *ChecklistResponse) Reopen(now time.Time) {
	r.Completed = false
	r.CompletedBy = nil
	r.CompletedAt = nil
	r.UpdatedAt = now
}

// QASummary counts responses for a case.
type QASummary struct {
	Total     int
	Completed int
}
