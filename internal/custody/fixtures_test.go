package custody

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodian/internal/audit"
	"custodian/internal/domain"
	"custodian/internal/signer"
	"custodian/internal/storage/memory"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

type recordedAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordedAudit) Record(_ context.Context, _ requestcontext.RequestContext, in audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, in)
}

func (r *recordedAudit) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordedSecurity struct {
	mu     sync.Mutex
	events []domain.IntegrityEvent
	err    error
}

func (r *recordedSecurity) PublishIntegrityFailure(_ context.Context, ev domain.IntegrityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func testSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.New("test-secret", signer.WithCost(1))
	require.NoError(t, err)
	return s
}

type fixture struct {
	store  *memory.Store
	ledger *Ledger
	rc     requestcontext.RequestContext
	kase   domain.Case
}

func newFixture(t *testing.T, opts ...LedgerOption) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:  store,
		ledger: NewLedger(testSigner(t), store, opts...),
		rc: requestcontext.RequestContext{
			ActorID:        id.NewActorID(),
			OrganizationID: id.NewOrganizationID(),
			Role:           "examiner",
		},
	}
	ctx := context.Background()
	require.NoError(t, store.PutUser(ctx, domain.UserSummary{ID: f.rc.ActorID, Name: "Sam Ortiz", Email: "sam@lab.test"}))
	f.kase = domain.Case{ID: id.NewCaseID(), OrganizationID: f.rc.OrganizationID, Number: "C-100", Title: "Burglary"}
	require.NoError(t, store.CreateCase(ctx, &f.kase))
	return f
}

// seedEvidence stores an evidence item with its Created record the way the
// registry does.
func (f *fixture) seedEvidence(t *testing.T, number string) *domain.Evidence {
	t.Helper()
	ev := &domain.Evidence{
		ID:             id.NewEvidenceID(),
		OrganizationID: f.rc.OrganizationID,
		CaseID:         f.kase.ID,
		Number:         number,
		Status:         domain.StatusInCustody,
		CreatedBy:      f.rc.ActorID,
		CreatedAt:      time.Now().UTC(),
	}
	err := f.store.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := f.store.CreateEvidence(ctx, ev); err != nil {
			return err
		}
		_, err := f.ledger.Append(ctx, ev, Entry{ActorID: f.rc.ActorID, Action: domain.Fixed(domain.ActionCreated)})
		return err
	})
	require.NoError(t, err)
	return ev
}
