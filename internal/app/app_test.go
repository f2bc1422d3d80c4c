package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/domain"
	"custodian/internal/evidence"
	"custodian/internal/platform/config"
	"custodian/internal/storage/memory"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Evidence.Root = t.TempDir()
	cfg.Signing.ScryptCost = 1 << 10
	return cfg
}

func TestNewWiresInMemoryStack(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a, err := New(ctx, testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithRegisterer(prometheus.NewRegistry()),
		WithStore(store),
	)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Kafka)

	rc := requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID()}
	kase := domain.Case{ID: id.NewCaseID(), OrganizationID: rc.OrganizationID, Number: "C-1"}
	require.NoError(t, store.CreateCase(ctx, &kase))
	evType := domain.EvidenceType{ID: id.NewEvidenceTypeID(), OrganizationID: rc.OrganizationID, Name: "Phone"}
	require.NoError(t, store.CreateEvidenceType(ctx, &evType))

	ev, err := a.Evidence.CreateEvidence(ctx, rc, evidence.CreateInput{CaseID: kase.ID, Number: "EV-1", TypeID: evType.ID, Size: 10})
	require.NoError(t, err)

	got, err := a.Evidence.GetEvidence(ctx, rc, ev.ID)
	require.NoError(t, err)
	require.Len(t, got.Custody, 1)
	assert.Equal(t, domain.IntegrityVerified, got.Custody[0].Integrity)

	page, err := a.Audit.Query(ctx, rc, domain.AuditFilter{}, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Entries)
	assert.Equal(t, string(domain.AuditEvidenceCreated), page.Entries[len(page.Entries)-1].Action)
}

func TestNewRejectsBadSigningConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signing.Secret = ""
	_, err := New(context.Background(), cfg, slog.Default(), WithRegisterer(prometheus.NewRegistry()), WithStore(memory.New()))
	assert.Error(t, err)
}
