package handler

import (
	"time"

	"custodian/internal/custody"
	"custodian/internal/domain"
)

type ActorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type RecordResponse struct {
	ID            string        `json:"id"`
	EvidenceID    string        `json:"evidence_id"`
	Sequence      int64         `json:"sequence"`
	Action        string        `json:"action"`
	Reason        string        `json:"reason"`
	Location      string        `json:"location"`
	ChangesDigest string        `json:"changes_digest,omitempty"`
	Signature     string        `json:"signature"`
	Integrity     string        `json:"integrity"`
	Actor         ActorResponse `json:"actor"`
	CreatedAt     time.Time     `json:"created_at"`
}

type LedgerResponse struct {
	Records         []RecordResponse `json:"records"`
	IntegrityFailed int              `json:"integrity_failed"`
}

type ReportResponse struct {
	EvidenceID    string   `json:"evidence_id"`
	Valid         bool     `json:"valid"`
	Records       int      `json:"records"`
	FailedRecords []string `json:"failed_records"`
	OutOfOrder    []int64  `json:"out_of_order"`
	Status        string   `json:"status"`
	DerivedStatus string   `json:"derived_status"`
}

type CaseActionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRecordResponse(r domain.CustodyRecord) RecordResponse {
	resp := RecordResponse{
		ID:            r.ID.String(),
		EvidenceID:    r.EvidenceID.String(),
		Sequence:      r.Sequence,
		Action:        r.Action,
		Reason:        r.Reason,
		Location:      r.Location,
		ChangesDigest: r.ChangesDigest,
		Signature:     r.Signature,
		Integrity:     string(r.Integrity),
		Actor:         ActorResponse{ID: r.ActorID.String()},
		CreatedAt:     r.CreatedAt,
	}
	if resp.Integrity == "" {
		resp.Integrity = "unchecked"
	}
	if r.Actor != nil {
		resp.Actor.Name = r.Actor.Name
		resp.Actor.Email = r.Actor.Email
	}
	return resp
}

func toLedgerResponse(records []domain.CustodyRecord) LedgerResponse {
	resp := LedgerResponse{Records: make([]RecordResponse, 0, len(records))}
	for _, r := range records {
		if r.Integrity == domain.IntegrityFailed {
			resp.IntegrityFailed++
		}
		resp.Records = append(resp.Records, toRecordResponse(r))
	}
	return resp
}

func toReportResponse(r *custody.LedgerReport) ReportResponse {
	resp := ReportResponse{
		EvidenceID:    r.EvidenceID.String(),
		Valid:         r.Valid(),
		Records:       r.Records,
		FailedRecords: make([]string, 0, len(r.Failed)),
		OutOfOrder:    r.OutOfOrder,
		Status:        string(r.Status),
		DerivedStatus: string(r.DerivedStatus),
	}
	if resp.OutOfOrder == nil {
		resp.OutOfOrder = []int64{}
	}
	for _, recID := range r.Failed {
		resp.FailedRecords = append(resp.FailedRecords, recID.String())
	}
	return resp
}

func toCaseActionResponse(a domain.CaseAction) CaseActionResponse {
	return CaseActionResponse{
		ID:          a.ID.String(),
		Name:        a.Name,
		Description: a.Description,
		IsDefault:   a.IsDefault,
		Order:       a.Order,
		CreatedAt:   a.CreatedAt,
	}
}
