package handler

import (
	"strconv"
	"time"

	"custodian/internal/domain"
	"custodian/internal/evidence"
)

type TypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CustomFieldResponse struct {
	FieldID string `json:"field_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
}

type CustodyResponse struct {
	ID        string    `json:"id"`
	Sequence  int64     `json:"sequence"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	Location  string    `json:"location"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	Integrity string    `json:"integrity"`
	CreatedAt time.Time `json:"created_at"`
}

// EvidenceResponse renders sizes as decimal strings; 64-bit values do not
// round-trip through JSON numbers in every client.
type EvidenceResponse struct {
	ID              string                `json:"id"`
	CaseID          string                `json:"case_id"`
	Number          string                `json:"number"`
	Type            *TypeResponse         `json:"type,omitempty"`
	Description     string                `json:"description"`
	Status          string                `json:"status"`
	Location        string                `json:"location"`
	StorageLocation string                `json:"storage_location"`
	MD5             string                `json:"md5,omitempty"`
	SHA256          string                `json:"sha256,omitempty"`
	Size            string                `json:"size"`
	HasFile         bool                  `json:"has_file"`
	CollectedAt     *time.Time            `json:"collected_at,omitempty"`
	CustomFields    []CustomFieldResponse `json:"custom_fields"`
	Custody         []CustodyResponse     `json:"custody,omitempty"`
	CreatedBy       string                `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type CaseResponse struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Title         string `json:"title"`
	EvidenceCount int64  `json:"evidence_count"`
	StorageTotal  string `json:"storage_total"`
	ActiveTasks   int64  `json:"active_tasks"`
}

type AggregatesResponse struct {
	EvidenceCount int64  `json:"evidence_count"`
	StorageTotal  string `json:"storage_total"`
	ActiveTasks   int64  `json:"active_tasks"`
}

type RecountResponse struct {
	CaseID  string             `json:"case_id"`
	Drifted bool               `json:"drifted"`
	Before  AggregatesResponse `json:"before"`
	After   AggregatesResponse `json:"after"`
}

type HashResponse struct {
	EvidenceID  string `json:"evidence_id"`
	Valid       bool   `json:"valid"`
	MD5         string `json:"md5"`
	SHA256      string `json:"sha256"`
	Size        string `json:"size"`
	MD5Match    bool   `json:"md5_match"`
	SHA256Match bool   `json:"sha256_match"`
	SizeMatch   bool   `json:"size_match"`
}

func formatSize(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func toEvidenceResponse(ev domain.Evidence) EvidenceResponse {
	resp := EvidenceResponse{
		ID:              ev.ID.String(),
		CaseID:          ev.CaseID.String(),
		Number:          ev.Number,
		Description:     ev.Description,
		Status:          string(ev.Status),
		Location:        ev.Location,
		StorageLocation: ev.StorageLocation,
		MD5:             ev.MD5,
		SHA256:          ev.SHA256,
		Size:            formatSize(ev.Size),
		HasFile:         ev.FilePath != "",
		CollectedAt:     ev.CollectedAt,
		CustomFields:    make([]CustomFieldResponse, 0, len(ev.CustomFields)),
		CreatedBy:       ev.CreatedBy.String(),
		CreatedAt:       ev.CreatedAt,
		UpdatedAt:       ev.UpdatedAt,
	}
	if ev.Type != nil {
		resp.Type = &TypeResponse{ID: ev.Type.ID.String(), Name: ev.Type.Name}
	}
	for _, f := range ev.CustomFields {
		resp.CustomFields = append(resp.CustomFields, CustomFieldResponse{
			FieldID: f.FieldID.String(),
			Name:    f.Name,
			Type:    string(f.Type),
			Value:   f.Value,
		})
	}
	for _, r := range ev.Custody {
		c := CustodyResponse{
			ID:        r.ID.String(),
			Sequence:  r.Sequence,
			Action:    r.Action,
			Reason:    r.Reason,
			Location:  r.Location,
			ActorID:   r.ActorID.String(),
			Integrity: string(r.Integrity),
			CreatedAt: r.CreatedAt,
		}
		if c.Integrity == "" {
			c.Integrity = "unchecked"
		}
		if r.Actor != nil {
			c.ActorName = r.Actor.Name
		}
		resp.Custody = append(resp.Custody, c)
	}
	return resp
}

func toCaseResponse(c domain.Case) CaseResponse {
	return CaseResponse{
		ID:            c.ID.String(),
		Number:        c.Number,
		Title:         c.Title,
		EvidenceCount: c.EvidenceCount,
		StorageTotal:  formatSize(c.StorageTotal),
		ActiveTasks:   c.ActiveTasks,
	}
}

func toAggregatesResponse(a domain.CaseAggregates) AggregatesResponse {
	return AggregatesResponse{
		EvidenceCount: a.EvidenceCount,
		StorageTotal:  formatSize(a.StorageTotal),
		ActiveTasks:   a.ActiveTasks,
	}
}

func toRecountResponse(r *evidence.RecountReport) RecountResponse {
	return RecountResponse{
		CaseID:  r.CaseID.String(),
		Drifted: r.Drifted(),
		Before:  toAggregatesResponse(r.Before),
		After:   toAggregatesResponse(r.After),
	}
}

func toHashResponse(r *evidence.HashReport) HashResponse {
	return HashResponse{
		EvidenceID:  r.EvidenceID.String(),
		Valid:       r.Valid(),
		MD5:         r.Computed.MD5,
		SHA256:      r.Computed.SHA256,
		Size:        formatSize(r.Computed.Size),
		MD5Match:    r.MD5Match,
		SHA256Match: r.SHA256Match,
		SizeMatch:   r.SizeMatch,
	}
}
