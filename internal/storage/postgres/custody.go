package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
)

const custodyColumns = `
	r.id, r.evidence_id, r.sequence, r.actor_id, u.id, COALESCE(u.name, ''), COALESCE(u.email, ''),
	r.action, r.reason, r.location, r.changes_digest, r.signature, r.created_at`

func scanCustodyRecord(row rowScanner) (*domain.CustodyRecord, error) {
	var (
		rec                 domain.CustodyRecord
		recID, evID, actor  uuid.UUID
		userID              uuid.NullUUID
		userName, userEmail string
	)
	err := row.Scan(&recID, &evID, &rec.Sequence, &actor, &userID, &userName, &userEmail,
		&rec.Action, &rec.Reason, &rec.Location, &rec.ChangesDigest, &rec.Signature, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.CustodyRecordID(recID)
	rec.EvidenceID = id.EvidenceID(evID)
	rec.ActorID = id.ActorID(actor)
	if userID.Valid {
		rec.Actor = &domain.UserSummary{ID: rec.ActorID, Name: userName, Email: userEmail}
	}
	return &rec, nil
}

func (s *Store) LastCustodyRecord(ctx context.Context, evidenceID id.EvidenceID) (*domain.CustodyRecord, error) {
	rec, err := scanCustodyRecord(s.exec(ctx).QueryRowContext(ctx, `SELECT `+custodyColumns+`
		FROM custody_records r LEFT JOIN users u ON u.id = r.actor_id
		WHERE r.evidence_id = $1
		ORDER BY r.sequence DESC
		LIMIT 1
	`, uuid.UUID(evidenceID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("last custody record: %w", err)
	}
	return rec, nil
}

// AppendCustodyRecord inserts one ledger entry. UNIQUE (evidence_id, sequence)
// turns a lost race into ErrConflict.
func (s *Store) AppendCustodyRecord(ctx context.Context, rec *domain.CustodyRecord) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO custody_records (id, evidence_id, sequence, actor_id, action, reason, location,
			changes_digest, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.UUID(rec.ID), uuid.UUID(rec.EvidenceID), rec.Sequence, uuid.UUID(rec.ActorID), rec.Action,
		rec.Reason, rec.Location, rec.ChangesDigest, rec.Signature, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("append custody record: %w", err)
	}
	return nil
}

func (s *Store) ListCustodyRecords(ctx context.Context, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `SELECT `+custodyColumns+`
		FROM custody_records r LEFT JOIN users u ON u.id = r.actor_id
		WHERE r.evidence_id = $1
		ORDER BY r.sequence ASC
	`, uuid.UUID(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list custody records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CustodyRecord, 0)
	for rows.Next() {
		rec, err := scanCustodyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custody record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custody records: %w", err)
	}
	return out, nil
}

func (s *Store) FindCustodyRecord(ctx context.Context, evidenceID id.EvidenceID, recordID id.CustodyRecordID) (*domain.CustodyRecord, error) {
	rec, err := scanCustodyRecord(s.exec(ctx).QueryRowContext(ctx, `SELECT `+custodyColumns+`
		FROM custody_records r LEFT JOIN users u ON u.id = r.actor_id
		WHERE r.evidence_id = $1 AND r.id = $2
	`, uuid.UUID(evidenceID), uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find custody record: %w", err)
	}
	return rec, nil
}

// -----------------------------------------------------------------------------
// Case actions
// -----------------------------------------------------------------------------

func scanCaseAction(row rowScanner) (*domain.CaseAction, error) {
	var (
		a           domain.CaseAction
		aID, caseID uuid.UUID
	)
	if err := row.Scan(&aID, &caseID, &a.Name, &a.Description, &a.IsDefault, &a.Order, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID, a.CaseID = id.CaseActionID(aID), id.CaseID(caseID)
	return &a, nil
}

func (s *Store) ListCaseActions(ctx context.Context, caseID id.CaseID) ([]domain.CaseAction, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, case_id, name, description, is_default, display_order, created_at
		FROM case_actions
		WHERE case_id = $1
		ORDER BY display_order, name
		FOR SHARE
	`, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list case actions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CaseAction, 0)
	for rows.Next() {
		a, err := scanCaseAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case action: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case actions: %w", err)
	}
	return out, nil
}

func (s *Store) CreateCaseAction(ctx context.Context, a *domain.CaseAction) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO case_actions (id, case_id, name, description, is_default, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(a.ID), uuid.UUID(a.CaseID), a.Name, a.Description, a.IsDefault, a.Order, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create case action: %w", err)
	}
	return nil
}

func (s *Store) FindCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) (*domain.CaseAction, error) {
	a, err := scanCaseAction(s.exec(ctx).QueryRowContext(ctx, `
		SELECT id, case_id, name, description, is_default, display_order, created_at
		FROM case_actions
		WHERE case_id = $1 AND id = $2
	`, uuid.UUID(caseID), uuid.UUID(actionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find case action: %w", err)
	}
	return a, nil
}

func (s *Store) DeleteCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		DELETE FROM case_actions WHERE case_id = $1 AND id = $2
	`, uuid.UUID(caseID), uuid.UUID(actionID))
	if err != nil {
		return fmt.Errorf("delete case action: %w", err)
	}
	return requireRow(res)
}
