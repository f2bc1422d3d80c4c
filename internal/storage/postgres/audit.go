package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
)

// AppendAudit inserts the entry and reads back its BIGSERIAL sequence. A
// duplicate entry id reports ErrConflict so replays stay idempotent.
func (s *Store) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var caseID uuid.NullUUID
	if e.CaseID != nil {
		caseID = uuid.NullUUID{UUID: uuid.UUID(*e.CaseID), Valid: true}
	}

	err = s.exec(ctx).QueryRowContext(ctx, `
		INSERT INTO audit_entries (id, organization_id, actor_id, action, resource_type, resource_id,
			case_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
		RETURNING sequence
	`, uuid.UUID(e.ID), uuid.UUID(e.OrganizationID), uuid.UUID(e.ActorID), e.Action, e.ResourceType,
		e.ResourceID, caseID, string(payload), e.IPAddress, e.UserAgent, e.CreatedAt).Scan(&e.Sequence)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns one page in reverse sequence order plus the filtered total.
func (s *Store) QueryAudit(ctx context.Context, orgID id.OrganizationID, filter domain.AuditFilter, offset, limit int) ([]domain.AuditEntry, int, error) {
	where := []string{"a.organization_id = $1"}
	args := []any{uuid.UUID(orgID)}
	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		where = append(where, "a.resource_type = $"+strconv.Itoa(len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, "a.action = $"+strconv.Itoa(len(args)))
	}
	if filter.CaseID != nil {
		args = append(args, uuid.UUID(*filter.CaseID))
		where = append(where, "a.case_id = $"+strconv.Itoa(len(args)))
	}
	clause := strings.Join(where, " AND ")

	exec := s.exec(ctx)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries a WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	pageArgs := append(args, limit, offset)
	rows, err := exec.QueryContext(ctx, `
		SELECT a.id, a.sequence, a.actor_id, u.id, COALESCE(u.name, ''), COALESCE(u.email, ''),
			a.action, a.resource_type, a.resource_id, a.case_id, a.details::text, a.ip_address, a.user_agent, a.created_at
		FROM audit_entries a LEFT JOIN users u ON u.id = a.actor_id
		WHERE `+clause+`
		ORDER BY a.sequence DESC
		LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			e                   domain.AuditEntry
			entryID, actorID    uuid.UUID
			userID, caseID      uuid.NullUUID
			userName, userEmail string
			details             string
		)
		if err := rows.Scan(&entryID, &e.Sequence, &actorID, &userID, &userName, &userEmail,
			&e.Action, &e.ResourceType, &e.ResourceID, &caseID, &details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.AuditEntryID(entryID)
		e.OrganizationID = orgID
		e.ActorID = id.ActorID(actorID)
		if userID.Valid {
			e.Actor = &domain.UserSummary{ID: e.ActorID, Name: userName, Email: userEmail}
		}
		if caseID.Valid {
			c := id.CaseID(caseID.UUID)
			e.CaseID = &c
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, 0, fmt.Errorf("unmarshal audit details: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, total, nil
}
