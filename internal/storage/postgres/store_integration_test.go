//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodian/internal/domain"
	"custodian/internal/storage"
	pgstore "custodian/internal/storage/postgres"
	id "custodian/pkg/domain"
	"custodian/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *pgstore.Store

	org      id.OrganizationID
	kase     id.CaseID
	evType   id.EvidenceTypeID
	examiner id.ActorID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = pgstore.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"checklist_responses", "checklist_items", "qa_templates", "audit_entries", "case_actions",
		"custody_records", "evidence_custom_fields", "evidence", "field_definitions", "evidence_types",
		"tasks", "cases", "users")
	s.Require().NoError(err)

	s.org = id.NewOrganizationID()
	s.kase = id.NewCaseID()
	s.evType = id.NewEvidenceTypeID()
	s.examiner = id.NewActorID()
	now := time.Now()
	s.Require().NoError(s.store.CreateCase(ctx, &domain.Case{
		ID: s.kase, OrganizationID: s.org, Number: "CASE-1", Title: "Fraud", CreatedAt: now, UpdatedAt: now,
	}))
	s.Require().NoError(s.store.CreateEvidenceType(ctx, &domain.EvidenceType{
		ID: s.evType, OrganizationID: s.org, Name: "Hard drive",
	}))
	s.Require().NoError(s.store.PutUser(ctx, domain.UserSummary{ID: s.examiner, Name: "Dana Examiner", Email: "dana@example.test"}))
}

func (s *PostgresStoreSuite) newEvidence(number string, size uint64) *domain.Evidence {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Evidence{
		ID:             id.NewEvidenceID(),
		OrganizationID: s.org,
		CaseID:         s.kase,
		Number:         number,
		TypeID:         s.evType,
		Status:         domain.StatusInCustody,
		Size:           size,
		CreatedBy:      s.examiner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestAddEvidenceToCaseRejectsOverflow() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddEvidenceToCase(ctx, s.kase, math.MaxUint64-5))

	err := s.store.AddEvidenceToCase(ctx, s.kase, 6)
	s.ErrorIs(err, storage.ErrOverflow)
	c, err := s.store.FindCase(ctx, s.org, s.kase)
	s.Require().NoError(err)
	s.Equal(int64(1), c.EvidenceCount)
	s.Equal(uint64(math.MaxUint64-5), c.StorageTotal)

	s.Require().NoError(s.store.AddEvidenceToCase(ctx, s.kase, 5))
	c, err = s.store.FindCase(ctx, s.org, s.kase)
	s.Require().NoError(err)
	s.Equal(uint64(math.MaxUint64), c.StorageTotal)

	s.ErrorIs(s.store.AddEvidenceToCase(ctx, id.NewCaseID(), 1), storage.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEvidenceRoundTripKeepsUint64Size() {
	ctx := context.Background()
	ev := s.newEvidence("EV-1", math.MaxUint64)
	ev.CustomFields = []domain.CustomFieldValue{{FieldID: id.NewFieldDefinitionID(), Name: "seal", Type: domain.FieldText, Value: "A-17"}}
	s.Require().NoError(s.store.CreateEvidence(ctx, ev))

	found, err := s.store.FindEvidence(ctx, s.org, ev.ID)
	s.Require().NoError(err)
	s.Equal(uint64(math.MaxUint64), found.Size)
	s.Equal("Hard drive", found.Type.Name)
	s.Require().Len(found.CustomFields, 1)
	s.Equal("A-17", found.CustomFields[0].Value)

	_, err = s.store.FindEvidence(ctx, id.NewOrganizationID(), ev.ID)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateEvidenceNumberConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateEvidence(ctx, s.newEvidence("EV-1", 0)))
	err := s.store.CreateEvidence(ctx, s.newEvidence("EV-1", 0))
	s.ErrorIs(err, storage.ErrConflict)
}

func (s *PostgresStoreSuite) TestRunInTxRollsBack() {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.CreateEvidence(ctx, s.newEvidence("EV-1", 10)))
		s.Require().NoError(s.store.AddEvidenceToCase(ctx, s.kase, 10))
		return boom
	})
	s.ErrorIs(err, boom)

	c, err := s.store.FindCase(ctx, s.org, s.kase)
	s.Require().NoError(err)
	s.Zero(c.EvidenceCount)
	s.Zero(c.StorageTotal)
}

// TestConcurrentAggregateIncrements verifies the in-place UPDATE never loses a write.
func (s *PostgresStoreSuite) TestConcurrentAggregateIncrements() {
	ctx := context.Background()
	const goroutines = 40

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(ctx, func(ctx context.Context) error {
				return s.store.AddEvidenceToCase(ctx, s.kase, 100)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	c, err := s.store.FindCase(ctx, s.org, s.kase)
	s.Require().NoError(err)
	s.Equal(int64(goroutines), c.EvidenceCount)
	s.Equal(uint64(goroutines*100), c.StorageTotal)
}

func (s *PostgresStoreSuite) TestCustodySequenceUniqueness() {
	ctx := context.Background()
	ev := s.newEvidence("EV-1", 0)
	s.Require().NoError(s.store.CreateEvidence(ctx, ev))

	rec := &domain.CustodyRecord{
		ID: id.NewCustodyRecordID(), EvidenceID: ev.ID, Sequence: 1, ActorID: s.examiner,
		Action: "Created", Signature: "sig", CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.AppendCustodyRecord(ctx, rec))

	dup := *rec
	dup.ID = id.NewCustodyRecordID()
	s.ErrorIs(s.store.AppendCustodyRecord(ctx, &dup), storage.ErrConflict)

	records, err := s.store.ListCustodyRecords(ctx, ev.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Require().NotNil(records[0].Actor)
	s.Equal("Dana Examiner", records[0].Actor.Name)
	s.True(rec.CreatedAt.Equal(records[0].CreatedAt))
}

func (s *PostgresStoreSuite) TestComputeCaseAggregatesCountsOpenTasks() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateEvidence(ctx, s.newEvidence("EV-1", 7)))
	s.Require().NoError(s.store.CreateEvidence(ctx, s.newEvidence("EV-2", 8)))
	s.Require().NoError(s.postgres.Exec(ctx,
		`INSERT INTO tasks (id, case_id, title, completed) VALUES (gen_random_uuid(), $1, 'image', FALSE), (gen_random_uuid(), $1, 'report', TRUE)`,
		s.kase.String()))

	agg, err := s.store.ComputeCaseAggregates(ctx, s.kase)
	s.Require().NoError(err)
	s.Equal(domain.CaseAggregates{EvidenceCount: 2, StorageTotal: 15, ActiveTasks: 1}, agg)
}

func (s *PostgresStoreSuite) TestQueryAuditFiltersAndPages() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.AppendAudit(ctx, &domain.AuditEntry{
			ID: id.NewAuditEntryID(), OrganizationID: s.org, ActorID: s.examiner,
			Action: string(domain.AuditCustodyRecorded), ResourceType: domain.ResourceCustody,
			CaseID: &s.kase, Details: map[string]any{"n": i}, CreatedAt: time.Now(),
		}))
	}
	s.Require().NoError(s.store.AppendAudit(ctx, &domain.AuditEntry{
		ID: id.NewAuditEntryID(), OrganizationID: s.org, ActorID: s.examiner,
		Action: string(domain.AuditEvidenceCreated), ResourceType: domain.ResourceEvidence, CreatedAt: time.Now(),
	}))

	entries, total, err := s.store.QueryAudit(ctx, s.org, domain.AuditFilter{CaseID: &s.kase}, 0, 2)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(entries, 2)
	s.Greater(entries[0].Sequence, entries[1].Sequence)
	s.Equal(float64(2), entries[0].Details["n"])
	s.Require().NotNil(entries[0].Actor)

	_, total, err = s.store.QueryAudit(ctx, s.org, domain.AuditFilter{Action: string(domain.AuditEvidenceCreated)}, 0, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *PostgresStoreSuite) TestChecklistResponsesBulkCreateAndDelete() {
	ctx := context.Background()
	tmpl := &domain.QATemplate{ID: id.NewTemplateID(), OrganizationID: s.org, Name: "Imaging QA"}
	for i := 0; i < 3; i++ {
		tmpl.Items = append(tmpl.Items, domain.ChecklistItem{ID: id.NewChecklistItemID(), Title: "step", Order: i})
	}
	s.Require().NoError(s.store.CreateTemplate(ctx, tmpl))

	now := time.Now().UTC()
	var responses []domain.ChecklistResponse
	for _, it := range tmpl.Items {
		responses = append(responses, domain.ChecklistResponse{
			ID: id.NewResponseID(), CaseID: s.kase, ItemID: it.ID, CreatedAt: now, UpdatedAt: now,
		})
	}
	s.Require().NoError(s.store.CreateResponses(ctx, responses))

	list, err := s.store.ListResponses(ctx, s.kase)
	s.Require().NoError(err)
	s.Len(list, 3)
	s.Equal(0, list[0].Item.Order)

	n, err := s.store.DeleteResponsesForItems(ctx, s.kase, []id.ChecklistItemID{tmpl.Items[0].ID, tmpl.Items[1].ID})
	s.Require().NoError(err)
	s.Equal(2, n)
}
