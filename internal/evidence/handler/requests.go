package handler

import (
	"encoding/json"
	"strings"
	"time"

	"custodian/internal/domain"
	"custodian/internal/evidence"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/httputil"
)

// CreateEvidenceRequest is the body of POST /cases/{caseID}/evidence. Size is
// accepted as a JSON number or a decimal string so 64-bit values survive
// clients that cannot represent them as numbers.
type CreateEvidenceRequest struct {
	Number          string            `json:"number" validate:"max=100"`
	TypeID          string            `json:"type_id" validate:"required,uuid"`
	Description     string            `json:"description" validate:"max=5000"`
	Location        string            `json:"location" validate:"max=255"`
	StorageLocation string            `json:"storage_location" validate:"max=255"`
	MD5             string            `json:"md5" validate:"omitempty,len=32,hexadecimal"`
	SHA256          string            `json:"sha256" validate:"omitempty,len=64,hexadecimal"`
	Size            json.Number       `json:"size"`
	FilePath        string            `json:"file_path" validate:"max=4096"`
	CollectedAt     string            `json:"collected_at"`
	CustomFields    map[string]string `json:"custom_fields"`
	Reason          string            `json:"reason" validate:"max=2000"`

	typeID      id.EvidenceTypeID
	size        uint64
	collectedAt *time.Time
}

func (r *CreateEvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Number = strings.TrimSpace(r.Number)
	r.TypeID = strings.TrimSpace(r.TypeID)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.StorageLocation = strings.TrimSpace(r.StorageLocation)
	r.MD5 = strings.TrimSpace(r.MD5)
	r.SHA256 = strings.TrimSpace(r.SHA256)
	r.FilePath = strings.TrimSpace(r.FilePath)
	r.Reason = strings.TrimSpace(r.Reason)
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}

	var err error
	if r.typeID, err = id.ParseEvidenceTypeID(r.TypeID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "type_id must be a valid id")
	}
	if r.size, err = domain.ParseSize(string(r.Size)); err != nil {
		return err
	}
	if r.collectedAt, err = parseOptionalDate(r.CollectedAt); err != nil {
		return err
	}
	return nil
}

func (r *CreateEvidenceRequest) toInput(caseID id.CaseID) evidence.CreateInput {
	return evidence.CreateInput{
		CaseID:          caseID,
		Number:          r.Number,
		TypeID:          r.typeID,
		Description:     r.Description,
		Location:        r.Location,
		StorageLocation: r.StorageLocation,
		MD5:             r.MD5,
		SHA256:          r.SHA256,
		Size:            r.size,
		FilePath:        r.FilePath,
		CollectedAt:     r.collectedAt,
		CustomFields:    r.CustomFields,
		Reason:          r.Reason,
	}
}

// UpdateEvidenceRequest is the body of PATCH /evidence/{evidenceID}. Absent
// fields are left unchanged.
type UpdateEvidenceRequest struct {
	Number          *string           `json:"number" validate:"omitempty,max=100"`
	TypeID          *string           `json:"type_id" validate:"omitempty,uuid"`
	Description     *string           `json:"description" validate:"omitempty,max=5000"`
	StorageLocation *string           `json:"storage_location" validate:"omitempty,max=255"`
	MD5             *string           `json:"md5" validate:"omitempty,len=32,hexadecimal"`
	SHA256          *string           `json:"sha256" validate:"omitempty,len=64,hexadecimal"`
	Size            *json.Number      `json:"size"`
	CollectedAt     *string           `json:"collected_at"`
	CustomFields    map[string]string `json:"custom_fields"`
	Reason          string            `json:"reason" validate:"max=2000"`

	in evidence.UpdateInput
}

func (r *UpdateEvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}

	r.in = evidence.UpdateInput{
		Number:          r.Number,
		Description:     r.Description,
		StorageLocation: r.StorageLocation,
		MD5:             r.MD5,
		SHA256:          r.SHA256,
		CustomFields:    r.CustomFields,
		Reason:          r.Reason,
	}
	if r.TypeID != nil {
		typeID, err := id.ParseEvidenceTypeID(*r.TypeID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "type_id must be a valid id")
		}
		r.in.TypeID = &typeID
	}
	if r.Size != nil {
		size, err := domain.ParseSize(string(*r.Size))
		if err != nil {
			return err
		}
		r.in.Size = &size
	}
	if r.CollectedAt != nil {
		at, err := parseOptionalDate(*r.CollectedAt)
		if err != nil {
			return err
		}
		r.in.CollectedAt = at
	}
	return nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "collected_at must be a date (YYYY-MM-DD or RFC 3339)")
	}
	return &t, nil
}
