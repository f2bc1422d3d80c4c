package handler

import (
	"time"

	"custodian/internal/domain"
	"custodian/internal/qa"
)

type ItemResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type TemplateResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []ItemResponse `json:"items"`
}

type ChecklistResponse struct {
	ID          string        `json:"id"`
	CaseID      string        `json:"case_id"`
	ItemID      string        `json:"item_id"`
	Item        *ItemResponse `json:"item,omitempty"`
	State       string        `json:"state"`
	Completed   bool          `json:"completed"`
	CompletedBy string        `json:"completed_by,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Notes       string        `json:"notes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ApplyResponse struct {
	TemplateID string              `json:"template_id"`
	Created    int                 `json:"created"`
	Replaced   int                 `json:"replaced"`
	Responses  []ChecklistResponse `json:"responses"`
}

type ChecklistListResponse struct {
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Responses []ChecklistResponse `json:"responses"`
}

func toItemResponse(it domain.ChecklistItem) ItemResponse {
	return ItemResponse{ID: it.ID.String(), Title: it.Title, Description: it.Description, Order: it.Order}
}

func toTemplateResponse(t *domain.QATemplate) TemplateResponse {
	resp := TemplateResponse{ID: t.ID.String(), Name: t.Name, Items: make([]ItemResponse, 0, len(t.Items))}
	for _, it := range t.Items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	return resp
}

func toChecklistResponse(r domain.ChecklistResponse) ChecklistResponse {
	resp := ChecklistResponse{
		ID:          r.ID.String(),
		CaseID:      r.CaseID.String(),
		ItemID:      r.ItemID.String(),
		State:       string(r.State()),
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Item != nil {
		item := toItemResponse(*r.Item)
		resp.Item = &item
	}
	if r.CompletedBy != nil {
		resp.CompletedBy = r.CompletedBy.String()
	}
	return resp
}

func toChecklistResponses(in []domain.ChecklistResponse) []ChecklistResponse {
	out := make([]ChecklistResponse, 0, len(in))
	for _, r := range in {
		out = append(out, toChecklistResponse(r))
	}
	return out
}

func toApplyResponse(r *qa.ApplyResult) ApplyResponse {
	return ApplyResponse{
		TemplateID: r.Template.ID.String(),
		Created:    len(r.Responses),
		Replaced:   r.Replaced,
		Responses:  toChecklistResponses(r.Responses),
	}
}

// toListResponse counts from the listed responses so totals match the body.
func toListResponse(in []domain.ChecklistResponse) ChecklistListResponse {
	resp := ChecklistListResponse{Total: len(in), Responses: toChecklistResponses(in)}
	for _, r := range in {
		if r.Completed {
			resp.Completed++
		}
	}
	return resp
}
