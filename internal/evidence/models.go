package evidence

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"custodian/internal/domain"
	"custodian/internal/filestore"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

const (
	maxNumberLength      = 100
	maxDescriptionLength = 5000
	maxLocationLength    = 255
	maxReasonLength      = 2000
)

var (
	md5Pattern    = regexp.MustCompile(`^[0-9a-f]{32}$`)
	sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// CreateInput describes an intake. An empty Number gets an EV-<timestamp>
// fallback; callers that need uniqueness guarantees supply their own.
type CreateInput struct {
	CaseID          id.CaseID
	Number          string
	TypeID          id.EvidenceTypeID
	Description     string
	Location        string
	StorageLocation string
	MD5             string
	SHA256          string
	Size            uint64
	FilePath        string
	CollectedAt     *time.Time
	CustomFields    map[string]string
	Reason          string
}

// UpdateInput is a metadata patch. Nil fields are left alone; CustomFields
// entries overlay the current values by field name.
type UpdateInput struct {
	Number          *string
	TypeID          *id.EvidenceTypeID
	Description     *string
	StorageLocation *string
	MD5             *string
	SHA256          *string
	Size            *uint64
	CollectedAt     *time.Time
	CustomFields    map[string]string
	Reason          string
}

// HashReport compares stored content hashes with the file on disk. Hashes
// that were never recorded are not compared.
type HashReport struct {
	EvidenceID  id.EvidenceID
	Path        string
	Computed    filestore.Written
	MD5Match    bool
	SHA256Match bool
	SizeMatch   bool
}

func (r HashReport) Valid() bool {
	return r.MD5Match && r.SHA256Match && r.SizeMatch
}

// RecountReport is the outcome of reconciling a case's counters.
type RecountReport struct {
	CaseID id.CaseID
	Before domain.CaseAggregates
	After  domain.CaseAggregates
}

func (r RecountReport) Drifted() bool {
	return r.Before != r.After
}

func (in CreateInput) normalize() (CreateInput, error) {
	in.Number = strings.TrimSpace(in.Number)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.StorageLocation = strings.TrimSpace(in.StorageLocation)
	in.MD5 = strings.ToLower(strings.TrimSpace(in.MD5))
	in.SHA256 = strings.ToLower(strings.TrimSpace(in.SHA256))
	in.FilePath = strings.TrimSpace(in.FilePath)
	in.Reason = strings.TrimSpace(in.Reason)

	if in.CaseID.IsNil() {
		return in, dErrors.New(dErrors.CodeValidation, "case_id is required")
	}
	if in.TypeID.IsNil() {
		return in, dErrors.New(dErrors.CodeValidation, "evidence type is required")
	}
	if err := checkLength("number", in.Number, maxNumberLength); err != nil {
		return in, err
	}
	if err := checkLength("description", in.Description, maxDescriptionLength); err != nil {
		return in, err
	}
	if err := checkLength("location", in.Location, maxLocationLength); err != nil {
		return in, err
	}
	if err := checkLength("storage_location", in.StorageLocation, maxLocationLength); err != nil {
		return in, err
	}
	if err := checkLength("reason", in.Reason, maxReasonLength); err != nil {
		return in, err
	}
	if err := checkHashes(in.MD5, in.SHA256); err != nil {
		return in, err
	}
	return in, nil
}

func (in UpdateInput) normalize() (UpdateInput, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := checkLength("reason", in.Reason, maxReasonLength); err != nil {
		return in, err
	}
	if in.Number != nil {
		n := strings.TrimSpace(*in.Number)
		if n == "" {
			return in, dErrors.New(dErrors.CodeValidation, "number cannot be empty")
		}
		if err := checkLength("number", n, maxNumberLength); err != nil {
			return in, err
		}
		in.Number = &n
	}
	if in.TypeID != nil && in.TypeID.IsNil() {
		return in, dErrors.New(dErrors.CodeValidation, "evidence type cannot be empty")
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if err := checkLength("description", d, maxDescriptionLength); err != nil {
			return in, err
		}
		in.Description = &d
	}
	if in.StorageLocation != nil {
		l := strings.TrimSpace(*in.StorageLocation)
		if err := checkLength("storage_location", l, maxLocationLength); err != nil {
			return in, err
		}
		in.StorageLocation = &l
	}
	var md5, sha string
	if in.MD5 != nil {
		md5 = strings.ToLower(strings.TrimSpace(*in.MD5))
		in.MD5 = &md5
	}
	if in.SHA256 != nil {
		sha = strings.ToLower(strings.TrimSpace(*in.SHA256))
		in.SHA256 = &sha
	}
	if err := checkHashes(md5, sha); err != nil {
		return in, err
	}
	return in, nil
}

func checkLength(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	return nil
}

func checkHashes(md5, sha string) error {
	if md5 != "" && !md5Pattern.MatchString(md5) {
		return dErrors.New(dErrors.CodeValidation, "md5 must be 32 hex characters")
	}
	if sha != "" && !sha256Pattern.MatchString(sha) {
		return dErrors.New(dErrors.CodeValidation, "sha256 must be 64 hex characters")
	}
	return nil
}

// resolveCustomFields overlays patch on current and checks every definition.
// Values are returned in definition order; empty optional values are dropped.
func resolveCustomFields(defs []domain.FieldDefinition, current []domain.CustomFieldValue, patch map[string]string) ([]domain.CustomFieldValue, error) {
	raw := make(map[string]string, len(current)+len(patch))
	for _, v := range current {
		raw[v.Name] = v.Value
	}
	known := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		known[d.Name] = struct{}{}
	}
	for name, v := range patch {
		if _, ok := known[name]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown custom field: "+name)
		}
		raw[name] = v
	}

	var out []domain.CustomFieldValue
	for _, d := range defs {
		v, err := d.NormalizeValue(raw[d.Name])
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		out = append(out, domain.CustomFieldValue{FieldID: d.ID, Name: d.Name, Type: d.Type, Value: v})
	}
	return out, nil
}
