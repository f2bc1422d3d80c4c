package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
)

// -----------------------------------------------------------------------------
// Users and cases
// -----------------------------------------------------------------------------

func (s *Store) PutUser(ctx context.Context, u domain.UserSummary) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
	`, uuid.UUID(u.ID), u.Name, u.Email)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (s *Store) CreateCase(ctx context.Context, c *domain.Case) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO cases (id, organization_id, number, title, evidence_count, storage_total, active_tasks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
	`, uuid.UUID(c.ID), uuid.UUID(c.OrganizationID), c.Number, c.Title,
		c.EvidenceCount, numeric(c.StorageTotal), c.ActiveTasks, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *Store) FindCase(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) (*domain.Case, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT id, organization_id, number, title, evidence_count, storage_total::text, active_tasks, created_at, updated_at
		FROM cases
		WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(caseID), uuid.UUID(orgID))

	var (
		c          domain.Case
		cid, oid   uuid.UUID
		storageStr string
	)
	err := row.Scan(&cid, &oid, &c.Number, &c.Title, &c.EvidenceCount, &storageStr, &c.ActiveTasks, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	c.ID, c.OrganizationID = id.CaseID(cid), id.OrganizationID(oid)
	if c.StorageTotal, err = parseNumeric(storageStr); err != nil {
		return nil, err
	}
	return &c, nil
}

// maxStorageTotal is the largest total a uint64 byte count can carry.
const maxStorageTotal = "18446744073709551615"

// AddEvidenceToCase increments the counters in place so concurrent creators
// never lose an update.
func (s *Store) AddEvidenceToCase(ctx context.Context, caseID id.CaseID, size uint64) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE cases
		SET evidence_count = evidence_count + 1,
			storage_total = storage_total + $2::numeric,
			updated_at = now()
		WHERE id = $1 AND storage_total + $2::numeric <= `+maxStorageTotal+`
	`, uuid.UUID(caseID), numeric(size))
	if err != nil {
		return fmt.Errorf("add evidence to case: %w", err)
	}
	if err := requireRow(res); !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	var exists bool
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, uuid.UUID(caseID)).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if exists {
		return storage.ErrOverflow
	}
	return storage.ErrNotFound
}

func (s *Store) RemoveEvidenceFromCase(ctx context.Context, caseID id.CaseID, size uint64) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE cases
		SET evidence_count = GREATEST(evidence_count - 1, 0),
			storage_total = GREATEST(storage_total - $2::numeric, 0),
			updated_at = now()
		WHERE id = $1
	`, uuid.UUID(caseID), numeric(size))
	if err != nil {
		return fmt.Errorf("remove evidence from case: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ComputeCaseAggregates(ctx context.Context, caseID id.CaseID) (domain.CaseAggregates, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM evidence WHERE case_id = c.id),
			(SELECT COALESCE(SUM(size), 0)::text FROM evidence WHERE case_id = c.id),
			(SELECT COUNT(*) FROM tasks WHERE case_id = c.id AND NOT completed)
		FROM cases c
		WHERE c.id = $1
	`, uuid.UUID(caseID))

	var (
		agg        domain.CaseAggregates
		storageStr string
	)
	if err := row.Scan(&agg.EvidenceCount, &storageStr, &agg.ActiveTasks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CaseAggregates{}, storage.ErrNotFound
		}
		return domain.CaseAggregates{}, fmt.Errorf("compute case aggregates: %w", err)
	}
	total, err := parseNumeric(storageStr)
	if err != nil {
		return domain.CaseAggregates{}, err
	}
	agg.StorageTotal = total
	return agg, nil
}

func (s *Store) SetCaseAggregates(ctx context.Context, caseID id.CaseID, agg domain.CaseAggregates) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE cases
		SET evidence_count = $2, storage_total = $3::numeric, active_tasks = $4, updated_at = now()
		WHERE id = $1
	`, uuid.UUID(caseID), agg.EvidenceCount, numeric(agg.StorageTotal), agg.ActiveTasks)
	if err != nil {
		return fmt.Errorf("set case aggregates: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Evidence types and custom fields
// -----------------------------------------------------------------------------

func (s *Store) CreateEvidenceType(ctx context.Context, t *domain.EvidenceType) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO evidence_types (id, organization_id, name, description) VALUES ($1, $2, $3, $4)
	`, uuid.UUID(t.ID), uuid.UUID(t.OrganizationID), t.Name, t.Description)
	if err != nil {
		return fmt.Errorf("create evidence type: %w", err)
	}
	return nil
}

func (s *Store) FindEvidenceType(ctx context.Context, orgID id.OrganizationID, typeID id.EvidenceTypeID) (*domain.EvidenceType, error) {
	var t domain.EvidenceType
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT name, description FROM evidence_types WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(typeID), uuid.UUID(orgID)).Scan(&t.Name, &t.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence type: %w", err)
	}
	t.ID, t.OrganizationID = typeID, orgID
	return &t, nil
}

func (s *Store) CreateFieldDefinition(ctx context.Context, f *domain.FieldDefinition) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO field_definitions (id, organization_id, name, type, required) VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(f.ID), uuid.UUID(f.OrganizationID), f.Name, string(f.Type), f.Required)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create field definition: %w", err)
	}
	return nil
}

func (s *Store) ListFieldDefinitions(ctx context.Context, orgID id.OrganizationID) ([]domain.FieldDefinition, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, name, type, required FROM field_definitions WHERE organization_id = $1 ORDER BY name
	`, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list field definitions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FieldDefinition, 0)
	for rows.Next() {
		var (
			f   domain.FieldDefinition
			fid uuid.UUID
			typ string
		)
		if err := rows.Scan(&fid, &f.Name, &typ, &f.Required); err != nil {
			return nil, fmt.Errorf("scan field definition: %w", err)
		}
		f.ID, f.OrganizationID, f.Type = id.FieldDefinitionID(fid), orgID, domain.FieldType(typ)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field definitions: %w", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Evidence
// -----------------------------------------------------------------------------

const evidenceColumns = `
	e.id, e.organization_id, e.case_id, e.number, e.type_id, t.name, t.description,
	e.description, e.status, e.location, e.storage_location, e.md5, e.sha256, e.size::text,
	e.file_path, e.collected_at, e.created_by, e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(row rowScanner) (*domain.Evidence, error) {
	var (
		ev                          domain.Evidence
		evID, orgID, caseID, typeID uuid.UUID
		createdBy                   uuid.UUID
		typeName, typeDesc          string
		status, sizeStr             string
		collectedAt                 sql.NullTime
	)
	err := row.Scan(&evID, &orgID, &caseID, &ev.Number, &typeID, &typeName, &typeDesc,
		&ev.Description, &status, &ev.Location, &ev.StorageLocation, &ev.MD5, &ev.SHA256, &sizeStr,
		&ev.FilePath, &collectedAt, &createdBy, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EvidenceID(evID)
	ev.OrganizationID = id.OrganizationID(orgID)
	ev.CaseID = id.CaseID(caseID)
	ev.TypeID = id.EvidenceTypeID(typeID)
	ev.Type = &domain.EvidenceType{ID: ev.TypeID, OrganizationID: ev.OrganizationID, Name: typeName, Description: typeDesc}
	ev.Status = domain.Status(status)
	ev.CreatedBy = id.ActorID(createdBy)
	if collectedAt.Valid {
		t := collectedAt.Time
		ev.CollectedAt = &t
	}
	if ev.Size, err = parseNumeric(sizeStr); err != nil {
		return nil, err
	}
	return &ev, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *Store) CreateEvidence(ctx context.Context, ev *domain.Evidence) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO evidence (id, organization_id, case_id, number, type_id, description, status, location,
			storage_location, md5, sha256, size, file_path, collected_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13, $14, $15, $16, $17)
	`, uuid.UUID(ev.ID), uuid.UUID(ev.OrganizationID), uuid.UUID(ev.CaseID), ev.Number, uuid.UUID(ev.TypeID),
		ev.Description, string(ev.Status), ev.Location, ev.StorageLocation, ev.MD5, ev.SHA256, numeric(ev.Size),
		ev.FilePath, nullTime(ev.CollectedAt), uuid.UUID(ev.CreatedBy), ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create evidence: %w", err)
	}
	return s.replaceCustomFields(ctx, ev)
}

func (s *Store) replaceCustomFields(ctx context.Context, ev *domain.Evidence) error {
	exec := s.exec(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM evidence_custom_fields WHERE evidence_id = $1`, uuid.UUID(ev.ID)); err != nil {
		return fmt.Errorf("clear custom fields: %w", err)
	}
	for _, f := range ev.CustomFields {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO evidence_custom_fields (evidence_id, field_id, name, type, value) VALUES ($1, $2, $3, $4, $5)
		`, uuid.UUID(ev.ID), uuid.UUID(f.FieldID), f.Name, string(f.Type), f.Value)
		if err != nil {
			return fmt.Errorf("insert custom field: %w", err)
		}
	}
	return nil
}

func (s *Store) loadCustomFields(ctx context.Context, ev *domain.Evidence) error {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT field_id, name, type, value FROM evidence_custom_fields WHERE evidence_id = $1 ORDER BY name
	`, uuid.UUID(ev.ID))
	if err != nil {
		return fmt.Errorf("load custom fields: %w", err)
	}
	defer rows.Close()
	ev.CustomFields = nil
	for rows.Next() {
		var (
			f   domain.CustomFieldValue
			fid uuid.UUID
			typ string
		)
		if err := rows.Scan(&fid, &f.Name, &typ, &f.Value); err != nil {
			return fmt.Errorf("scan custom field: %w", err)
		}
		f.FieldID, f.Type = id.FieldDefinitionID(fid), domain.FieldType(typ)
		ev.CustomFields = append(ev.CustomFields, f)
	}
	return rows.Err()
}

func (s *Store) findEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID, lock bool) (*domain.Evidence, error) {
	query := `SELECT ` + evidenceColumns + `
		FROM evidence e JOIN evidence_types t ON t.id = e.type_id
		WHERE e.id = $1 AND e.organization_id = $2`
	if lock {
		query += ` FOR UPDATE OF e`
	}
	ev, err := scanEvidence(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(evidenceID), uuid.UUID(orgID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence: %w", err)
	}
	if err := s.loadCustomFields(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Store) FindEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	return s.findEvidence(ctx, orgID, evidenceID, false)
}

// LockEvidence takes the row lock that serializes custody appends per item.
// Only meaningful inside RunInTx.
func (s *Store) LockEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	return s.findEvidence(ctx, orgID, evidenceID, true)
}

func (s *Store) ListEvidence(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) ([]domain.Evidence, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `SELECT `+evidenceColumns+`
		FROM evidence e JOIN evidence_types t ON t.id = e.type_id
		WHERE e.organization_id = $1 AND e.case_id = $2
		ORDER BY e.created_at DESC, e.number DESC
	`, uuid.UUID(orgID), uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	out := make([]domain.Evidence, 0)
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	rows.Close()

	for i := range out {
		if err := s.loadCustomFields(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) UpdateEvidence(ctx context.Context, ev *domain.Evidence) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE evidence
		SET number = $3, type_id = $4, description = $5, status = $6, location = $7, storage_location = $8,
			md5 = $9, sha256 = $10, size = $11::numeric, file_path = $12, collected_at = $13, updated_at = $14
		WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(ev.ID), uuid.UUID(ev.OrganizationID), ev.Number, uuid.UUID(ev.TypeID), ev.Description,
		string(ev.Status), ev.Location, ev.StorageLocation, ev.MD5, ev.SHA256, numeric(ev.Size), ev.FilePath,
		nullTime(ev.CollectedAt), ev.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update evidence: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return s.replaceCustomFields(ctx, ev)
}

func (s *Store) DeleteEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		DELETE FROM evidence WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(evidenceID), uuid.UUID(orgID))
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	return requireRow(res)
}
