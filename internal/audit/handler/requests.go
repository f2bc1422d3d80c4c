package handler

import (
	"net/url"
	"strconv"
	"strings"

	"custodian/internal/audit"
	"custodian/internal/domain"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/httputil"
)

// AppendRequest is the body of POST /audit.
type AppendRequest struct {
	Action       string         `json:"action" validate:"required,max=100"`
	ResourceType string         `json:"resource_type" validate:"required,max=50"`
	ResourceID   string         `json:"resource_id" validate:"max=100"`
	CaseID       string         `json:"case_id" validate:"omitempty,uuid"`
	Details      map[string]any `json:"details"`

	caseID *id.CaseID
}

func (r *AppendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Action = strings.TrimSpace(r.Action)
	r.ResourceType = strings.TrimSpace(r.ResourceType)
	r.ResourceID = strings.TrimSpace(r.ResourceID)
	r.CaseID = strings.TrimSpace(r.CaseID)
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	if r.CaseID != "" {
		caseID, err := id.ParseCaseID(r.CaseID)
		if err != nil {
			return err
		}
		r.caseID = &caseID
	}
	return nil
}

func (r *AppendRequest) toEntry() audit.Entry {
	return audit.Entry{
		Action:       domain.AuditAction(r.Action),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		CaseID:       r.caseID,
		Details:      r.Details,
	}
}

type auditQuery struct {
	filter domain.AuditFilter
	page   int
	limit  int
}

// parseQuery reads the filter and paging parameters. Out-of-range paging is
// clamped by the service; only unparseable values are rejected here.
func parseQuery(v url.Values) (auditQuery, error) {
	q := auditQuery{
		filter: domain.AuditFilter{
			ResourceType: strings.TrimSpace(v.Get("resource_type")),
			Action:       strings.TrimSpace(v.Get("action")),
		},
	}
	if raw := strings.TrimSpace(v.Get("case_id")); raw != "" {
		caseID, err := id.ParseCaseID(raw)
		if err != nil {
			return auditQuery{}, err
		}
		q.filter.CaseID = &caseID
	}
	var err error
	if q.page, err = intParam(v, "page"); err != nil {
		return auditQuery{}, err
	}
	if q.limit, err = intParam(v, "limit"); err != nil {
		return auditQuery{}, err
	}
	return q, nil
}

func intParam(v url.Values, name string) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}
