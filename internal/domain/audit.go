package domain

import (
	"time"

	id "custodian/pkg/domain"
)

// AuditAction is the verb recorded on an audit entry.
type AuditAction string

const (
	AuditEvidenceCreated    AuditAction = "evidence.created"
	AuditEvidenceUpdated    AuditAction = "evidence.updated"
	AuditEvidenceDeleted    AuditAction = "evidence.deleted"
	AuditEvidenceHashCheck  AuditAction = "evidence.hash_verified"
	AuditCustodyRecorded    AuditAction = "custody.recorded"
	AuditIntegrityFailure   AuditAction = "custody.integrity_failure"
	AuditCaseActionCreated  AuditAction = "case_action.created"
	AuditCaseActionDeleted  AuditAction = "case_action.deleted"
	AuditCaseRecounted      AuditAction = "case.recounted"
	AuditQATemplateCreated  AuditAction = "qa.template_created"
	AuditQATemplateApplied  AuditAction = "qa.template_applied"
	AuditQATemplateReplaced AuditAction = "qa.template_replaced"
	AuditQAResponseUpdated  AuditAction = "qa.response_updated"
)

// Resource types referenced by audit entries.
const (
	ResourceEvidence   = "evidence"
	ResourceCustody    = "custody_record"
	ResourceCase       = "case"
	ResourceCaseAction = "case_action"
	ResourceQATemplate = "qa_template"
	ResourceQAResponse = "qa_response"
)

// AuditEntry is an organization-scoped, immutable log line. Details is an
// opaque JSON object. Sequence gives a stable total order for pagination.
type AuditEntry struct {
	ID             id.AuditEntryID
	Sequence       int64
	OrganizationID id.OrganizationID
	ActorID        id.ActorID
	Actor          *UserSummary
	Action         string
	ResourceType   string
	ResourceID     string
	CaseID         *id.CaseID
	Details        map[string]any
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
}

// AuditFilter narrows an audit query. Empty fields do not filter.
type AuditFilter struct {
	ResourceType string
	Action       string
	CaseID       *id.CaseID
}

// AuditPage is one page of a reverse-chronological audit query.
type AuditPage struct {
	Entries []AuditEntry
	Total   int
	Page    int
	Limit   int
}

// IntegrityEvent is the security event raised when a stored custody record
// fails signature verification.
type IntegrityEvent struct {
	OrganizationID id.OrganizationID
	EvidenceID     id.EvidenceID
	RecordID       id.CustodyRecordID
	Sequence       int64
	DetectedBy     id.ActorID
	DetectedAt     time.Time
}
