package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

// Case is the owner of evidence. Only the parts the custody subsystem needs are
// modelled; the aggregates are maintained incrementally in the same transaction
// as the evidence mutation that changes them.
type Case struct {
	ID             id.CaseID
	OrganizationID id.OrganizationID
	Number         string
	Title          string
	EvidenceCount  int64
	StorageTotal   uint64
	ActiveTasks    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CaseAggregates is the derivable form of the case counters, used by recount.
type CaseAggregates struct {
	EvidenceCount int64
	StorageTotal  uint64
	ActiveTasks   int64
}

// EvidenceType is an organization-scoped taxonomy entry.
type EvidenceType struct {
	ID             id.EvidenceTypeID
	OrganizationID id.OrganizationID
	Name           string
	Description    string
}

// Evidence is a physical or digital artifact tied to exactly one case.
// Invariant: Status equals the status derived from its custody ledger.
type Evidence struct {
	ID              id.EvidenceID
	OrganizationID  id.OrganizationID
	CaseID          id.CaseID
	Number          string
	TypeID          id.EvidenceTypeID
	Type            *EvidenceType
	Description     string
	Status          Status
	Location        string
	StorageLocation string
	MD5             string
	SHA256          string
	Size            uint64
	FilePath        string
	CollectedAt     *time.Time
	CustomFields    []CustomFieldValue
	CreatedBy       id.ActorID
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Custody []CustodyRecord
}

// FieldType is the declared type of an organization-defined custom field.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
)

// FieldDefinition is an organization-defined custom evidence field.
type FieldDefinition struct {
	ID             id.FieldDefinitionID
	OrganizationID id.OrganizationID
	Name           string
	Type           FieldType
	Required       bool
}

// CustomFieldValue is a typed key/value bound to a FieldDefinition. Value is
// stored in its canonical string form.
type CustomFieldValue struct {
	FieldID id.FieldDefinitionID
	Name    string
	Type    FieldType
	Value   string
}

// NormalizeValue checks raw against the field type and returns its canonical form.
func (d FieldDefinition) NormalizeValue(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if d.Required {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q is required", d.Name))
		}
		return "", nil
	}
	switch d.Type {
	case FieldText:
		return raw, nil
	case FieldNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q must be a number", d.Name))
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case FieldDate:
		t, err := ParseDate(raw)
		if err != nil {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q must be a date", d.Name))
		}
		return t.Format(time.RFC3339), nil
	case FieldBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q must be true or false", d.Name))
		}
		return strconv.FormatBool(b), nil
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown field type "+string(d.Type))
	}
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseSize parses a byte size from its decimal string form.
func ParseSize(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "size must be a non-negative integer")
	}
	return n, nil
}
