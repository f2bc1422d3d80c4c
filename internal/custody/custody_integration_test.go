//go:build integration

package custody_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/audit"
	"custodian/internal/custody"
	"custodian/internal/domain"
	"custodian/internal/signer"
	pgstore "custodian/internal/storage/postgres"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
	"custodian/pkg/testutil/containers"
)

// Concurrent writers on one evidence item must serialize on the row lock:
// no lost appends, contiguous sequences, and a status that matches the ledger.
func TestConcurrentCustodyActionsOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.TruncateTables(ctx, "audit_entries", "case_actions", "custody_records", "evidence", "evidence_types", "cases", "users"))

	store := pgstore.New(pg.DB)
	sign, err := signer.New("integration-secret", signer.WithCost(1))
	require.NoError(t, err)
	ledger := custody.NewLedger(sign, store)
	svc := custody.New(store, ledger, audit.New(store))

	rc := requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID()}
	now := time.Now().UTC().Truncate(time.Microsecond)
	kase := &domain.Case{ID: id.NewCaseID(), OrganizationID: rc.OrganizationID, Number: "C-1", Title: "Arson", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateCase(ctx, kase))
	evType := &domain.EvidenceType{ID: id.NewEvidenceTypeID(), OrganizationID: rc.OrganizationID, Name: "Phone"}
	require.NoError(t, store.CreateEvidenceType(ctx, evType))

	ev := &domain.Evidence{
		ID: id.NewEvidenceID(), OrganizationID: rc.OrganizationID, CaseID: kase.ID, Number: "EV-1",
		TypeID: evType.ID, Status: domain.StatusInCustody, CreatedBy: rc.ActorID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context) error {
		if err := store.CreateEvidence(ctx, ev); err != nil {
			return err
		}
		_, err := ledger.Append(ctx, ev, custody.Entry{ActorID: rc.ActorID, Action: domain.Fixed(domain.ActionCreated)})
		return err
	}))

	const writers = 16
	actions := []string{"CheckedOut", "CheckedIn", "Transferred", "Examined"}
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(action string) {
			defer wg.Done()
			_, err := svc.RecordCustodyAction(ctx, rc, ev.ID, custody.ActionInput{Action: action})
			assert.NoError(t, err)
		}(actions[i%len(actions)])
	}
	wg.Wait()

	records, err := svc.ListCustodyRecords(ctx, rc, ev.ID)
	require.NoError(t, err)
	require.Len(t, records, writers+1)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.Sequence)
		assert.Equal(t, domain.IntegrityVerified, r.Integrity)
		if i > 0 {
			assert.True(t, r.CreatedAt.After(records[i-1].CreatedAt))
		}
	}

	report, err := svc.VerifyLedger(ctx, rc, ev.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid(), "stored status %q, derived %q", report.Status, report.DerivedStatus)

	page, err := audit.New(store).Query(ctx, rc, domain.AuditFilter{CaseID: &kase.ID}, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, writers, page.Total)
}
