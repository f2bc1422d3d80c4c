package handler

import (
	"time"

	"github.com/mssola/useragent"

	"custodian/internal/domain"
)

type ActorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ClientResponse is the parsed form of the recorded User-Agent.
type ClientResponse struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

type EntryResponse struct {
	ID           string          `json:"id"`
	Sequence     int64           `json:"sequence"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	CaseID       string          `json:"case_id,omitempty"`
	Details      map[string]any  `json:"details"`
	Actor        ActorResponse   `json:"actor"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	Client       *ClientResponse `json:"client,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PageResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

func toEntryResponse(e domain.AuditEntry) EntryResponse {
	resp := EntryResponse{
		ID:           e.ID.String(),
		Sequence:     e.Sequence,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		Actor:        ActorResponse{ID: e.ActorID.String()},
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Client:       parseClient(e.UserAgent),
		CreatedAt:    e.CreatedAt,
	}
	if resp.Details == nil {
		resp.Details = map[string]any{}
	}
	if e.CaseID != nil {
		resp.CaseID = e.CaseID.String()
	}
	if e.Actor != nil {
		resp.Actor.Name = e.Actor.Name
		resp.Actor.Email = e.Actor.Email
	}
	return resp
}

func parseClient(raw string) *ClientResponse {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return &ClientResponse{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

func toPageResponse(p *domain.AuditPage) PageResponse {
	entries := make([]EntryResponse, 0, len(p.Entries))
	for _, e := range p.Entries {
		entries = append(entries, toEntryResponse(e))
	}
	return PageResponse{Entries: entries, Total: p.Total, Page: p.Page, Limit: p.Limit}
}
