package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "custodian/pkg/domain-errors"
)

// Typed identifiers keep case, evidence and organization ids from being mixed up
// at compile time. All of them are non-nil UUIDs once parsed. ActorID is the
// authenticated user performing an operation; OrganizationID is the tenant
// boundary every core query is scoped by.
type (
	ActorID           uuid.UUID
	OrganizationID    uuid.UUID
	CaseID            uuid.UUID
	EvidenceID        uuid.UUID
	EvidenceTypeID    uuid.UUID
	FieldDefinitionID uuid.UUID
	CustodyRecordID   uuid.UUID
	CaseActionID      uuid.UUID
	AuditEntryID      uuid.UUID
	TemplateID        uuid.UUID
	ChecklistItemID   uuid.UUID
	ResponseID        uuid.UUID
)

// parseUUID is the single trust-boundary parser shared by every ID type.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if !utf8.ValidString(s) || len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

// ParseActorID parses external input into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor_id")
	return ActorID(u), err
}

func NewActorID() ActorID { return ActorID(uuid.New()) }

func (id ActorID) String() string { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ActorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ActorID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseOrganizationID parses external input into an OrganizationID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization_id")
	return OrganizationID(u), err
}

func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }

func (id OrganizationID) String() string { return uuid.UUID(id).String() }

func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *OrganizationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseCaseID parses external input into a CaseID.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case_id")
	return CaseID(u), err
}

func NewCaseID() CaseID { return CaseID(uuid.New()) }

func (id CaseID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CaseID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CaseID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseEvidenceID parses external input into an EvidenceID.
func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s, "evidence_id")
	return EvidenceID(u), err
}

func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

func (id EvidenceID) String() string { return uuid.UUID(id).String() }

func (id EvidenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EvidenceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EvidenceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseEvidenceTypeID parses external input into an EvidenceTypeID.
func ParseEvidenceTypeID(s string) (EvidenceTypeID, error) {
	u, err := parseUUID(s, "evidence_type_id")
	return EvidenceTypeID(u), err
}

func NewEvidenceTypeID() EvidenceTypeID { return EvidenceTypeID(uuid.New()) }

func (id EvidenceTypeID) String() string { return uuid.UUID(id).String() }

func (id EvidenceTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EvidenceTypeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EvidenceTypeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseFieldDefinitionID parses external input into a FieldDefinitionID.
func ParseFieldDefinitionID(s string) (FieldDefinitionID, error) {
	u, err := parseUUID(s, "field_definition_id")
	return FieldDefinitionID(u), err
}

func NewFieldDefinitionID() FieldDefinitionID { return FieldDefinitionID(uuid.New()) }

func (id FieldDefinitionID) String() string { return uuid.UUID(id).String() }

func (id FieldDefinitionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id FieldDefinitionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *FieldDefinitionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseCustodyRecordID parses external input into a CustodyRecordID.
func ParseCustodyRecordID(s string) (CustodyRecordID, error) {
	u, err := parseUUID(s, "custody_record_id")
	return CustodyRecordID(u), err
}

func NewCustodyRecordID() CustodyRecordID { return CustodyRecordID(uuid.New()) }

func (id CustodyRecordID) String() string { return uuid.UUID(id).String() }

func (id CustodyRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CustodyRecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CustodyRecordID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseCaseActionID parses external input into a CaseActionID.
func ParseCaseActionID(s string) (CaseActionID, error) {
	u, err := parseUUID(s, "case_action_id")
	return CaseActionID(u), err
}

func NewCaseActionID() CaseActionID { return CaseActionID(uuid.New()) }

func (id CaseActionID) String() string { return uuid.UUID(id).String() }

func (id CaseActionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CaseActionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CaseActionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseAuditEntryID parses external input into an AuditEntryID.
func ParseAuditEntryID(s string) (AuditEntryID, error) {
	u, err := parseUUID(s, "audit_entry_id")
	return AuditEntryID(u), err
}

func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func (id AuditEntryID) String() string { return uuid.UUID(id).String() }

func (id AuditEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AuditEntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AuditEntryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseTemplateID parses external input into a TemplateID.
func ParseTemplateID(s string) (TemplateID, error) {
	u, err := parseUUID(s, "template_id")
	return TemplateID(u), err
}

func NewTemplateID() TemplateID { return TemplateID(uuid.New()) }

func (id TemplateID) String() string { return uuid.UUID(id).String() }

func (id TemplateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id TemplateID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TemplateID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseChecklistItemID parses external input into a ChecklistItemID.
func ParseChecklistItemID(s string) (ChecklistItemID, error) {
	u, err := parseUUID(s, "checklist_item_id")
	return ChecklistItemID(u), err
}

func NewChecklistItemID() ChecklistItemID { return ChecklistItemID(uuid.New()) }

func (id ChecklistItemID) String() string { return uuid.UUID(id).String() }

func (id ChecklistItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ChecklistItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ChecklistItemID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseResponseID parses external input into a ResponseID.
func ParseResponseID(s string) (ResponseID, error) {
	u, err := parseUUID(s, "response_id")
	return ResponseID(u), err
}

func NewResponseID() ResponseID { return ResponseID(uuid.New()) }

func (id ResponseID) String() string { return uuid.UUID(id).String() }

func (id ResponseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ResponseID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ResponseID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
