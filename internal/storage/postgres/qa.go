package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
)

func (s *Store) CreateTemplate(ctx context.Context, t *domain.QATemplate) error {
	exec := s.exec(ctx)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO qa_templates (id, organization_id, name) VALUES ($1, $2, $3)
	`, uuid.UUID(t.ID), uuid.UUID(t.OrganizationID), t.Name)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	for _, it := range t.Items {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO checklist_items (id, organization_id, template_id, title, description, display_order)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.UUID(it.ID), uuid.UUID(t.OrganizationID), uuid.UUID(t.ID), it.Title, it.Description, it.Order)
		if err != nil {
			return fmt.Errorf("create checklist item: %w", err)
		}
	}
	return nil
}

func (s *Store) FindTemplate(ctx context.Context, orgID id.OrganizationID, templateID id.TemplateID) (*domain.QATemplate, error) {
	exec := s.exec(ctx)
	t := domain.QATemplate{ID: templateID, OrganizationID: orgID}
	err := exec.QueryRowContext(ctx, `
		SELECT name FROM qa_templates WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(templateID), uuid.UUID(orgID)).Scan(&t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, title, description, display_order
		FROM checklist_items
		WHERE template_id = $1
		ORDER BY display_order, title
	`, uuid.UUID(templateID))
	if err != nil {
		return nil, fmt.Errorf("list template items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it     domain.ChecklistItem
			itemID uuid.UUID
		)
		if err := rows.Scan(&itemID, &it.Title, &it.Description, &it.Order); err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		tid := templateID
		it.ID, it.OrganizationID, it.TemplateID = id.ChecklistItemID(itemID), orgID, &tid
		t.Items = append(t.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist items: %w", err)
	}
	return &t, nil
}

// CreateResponses inserts pending responses in one round trip.
func (s *Store) CreateResponses(ctx context.Context, responses []domain.ChecklistResponse) error {
	if len(responses) == 0 {
		return nil
	}
	ids := make([]string, len(responses))
	caseIDs := make([]string, len(responses))
	itemIDs := make([]string, len(responses))
	notes := make([]string, len(responses))
	created := make([]string, len(responses))
	for i, r := range responses {
		ids[i] = r.ID.String()
		caseIDs[i] = r.CaseID.String()
		itemIDs[i] = r.ItemID.String()
		notes[i] = r.Notes
		created[i] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO checklist_responses (id, case_id, item_id, completed, notes, created_at, updated_at)
		SELECT r.id, r.case_id, r.item_id, FALSE, r.notes, r.created_at, r.created_at
		FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::timestamptz[])
			AS r(id, case_id, item_id, notes, created_at)
	`, pq.Array(ids), pq.Array(caseIDs), pq.Array(itemIDs), pq.Array(notes), pq.Array(created))
	if err != nil {
		return fmt.Errorf("create checklist responses: %w", err)
	}
	return nil
}

func (s *Store) DeleteResponsesForItems(ctx context.Context, caseID id.CaseID, itemIDs []id.ChecklistItemID) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	raw := make([]string, len(itemIDs))
	for i, it := range itemIDs {
		raw[i] = it.String()
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		DELETE FROM checklist_responses WHERE case_id = $1 AND item_id = ANY($2::uuid[])
	`, uuid.UUID(caseID), pq.Array(raw))
	if err != nil {
		return 0, fmt.Errorf("delete checklist responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

const responseColumns = `
	r.id, r.case_id, r.item_id, r.completed, r.completed_by, r.completed_at, r.notes, r.created_at, r.updated_at,
	i.organization_id, i.template_id, i.title, i.description, i.display_order`

func scanResponse(row rowScanner) (*domain.ChecklistResponse, error) {
	var (
		r                   domain.ChecklistResponse
		item                domain.ChecklistItem
		respID, caseID, iID uuid.UUID
		orgID               uuid.UUID
		completedBy, tmplID uuid.NullUUID
		completedAt         sql.NullTime
	)
	err := row.Scan(&respID, &caseID, &iID, &r.Completed, &completedBy, &completedAt, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
		&orgID, &tmplID, &item.Title, &item.Description, &item.Order)
	if err != nil {
		return nil, err
	}
	r.ID, r.CaseID, r.ItemID = id.ResponseID(respID), id.CaseID(caseID), id.ChecklistItemID(iID)
	if completedBy.Valid {
		actor := id.ActorID(completedBy.UUID)
		r.CompletedBy = &actor
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	item.ID, item.OrganizationID = r.ItemID, id.OrganizationID(orgID)
	if tmplID.Valid {
		t := id.TemplateID(tmplID.UUID)
		item.TemplateID = &t
	}
	r.Item = &item
	return &r, nil
}

func (s *Store) FindResponse(ctx context.Context, caseID id.CaseID, responseID id.ResponseID) (*domain.ChecklistResponse, error) {
	r, err := scanResponse(s.exec(ctx).QueryRowContext(ctx, `SELECT `+responseColumns+`
		FROM checklist_responses r JOIN checklist_items i ON i.id = r.item_id
		WHERE r.case_id = $1 AND r.id = $2
	`, uuid.UUID(caseID), uuid.UUID(responseID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find checklist response: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateResponse(ctx context.Context, r *domain.ChecklistResponse) error {
	var completedBy uuid.NullUUID
	if r.CompletedBy != nil {
		completedBy = uuid.NullUUID{UUID: uuid.UUID(*r.CompletedBy), Valid: true}
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE checklist_responses
		SET completed = $3, completed_by = $4, completed_at = $5, notes = $6, updated_at = $7
		WHERE case_id = $1 AND id = $2
	`, uuid.UUID(r.CaseID), uuid.UUID(r.ID), r.Completed, completedBy, nullTime(r.CompletedAt), r.Notes, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update checklist response: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListResponses(ctx context.Context, caseID id.CaseID) ([]domain.ChecklistResponse, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `SELECT `+responseColumns+`
		FROM checklist_responses r JOIN checklist_items i ON i.id = r.item_id
		WHERE r.case_id = $1
		ORDER BY i.display_order, r.created_at, r.id
	`, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list checklist responses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChecklistResponse, 0)
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist response: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist responses: %w", err)
	}
	return out, nil
}
