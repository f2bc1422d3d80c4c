package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/domain"
	id "custodian/pkg/domain"
)

func newTestSpill(t *testing.T) (*RedisSpill, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSpill(client, "test:spill"), mr
}

func spillEntry(action string) domain.AuditEntry {
	kase := id.NewCaseID()
	return domain.AuditEntry{
		ID:             id.NewAuditEntryID(),
		OrganizationID: id.NewOrganizationID(),
		ActorID:        id.NewActorID(),
		Action:         action,
		ResourceType:   domain.ResourceEvidence,
		CaseID:         &kase,
		Details:        map[string]any{"size": "42"},
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSpillDrainIsFIFO(t *testing.T) {
	spill, _ := newTestSpill(t)
	ctx := context.Background()
	first, second := spillEntry("a"), spillEntry("b")
	require.NoError(t, spill.Push(ctx, first))
	require.NoError(t, spill.Push(ctx, second))

	var got []domain.AuditEntry
	n, err := spill.Drain(ctx, 10, func(e domain.AuditEntry) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, *first.CaseID, *got[0].CaseID)
	assert.Equal(t, "42", got[0].Details["size"])
	assert.True(t, first.CreatedAt.Equal(got[0].CreatedAt))
	assert.Equal(t, second.ID, got[1].ID)
}

func TestSpillDrainRequeuesOnFailure(t *testing.T) {
	spill, _ := newTestSpill(t)
	ctx := context.Background()
	e := spillEntry("a")
	require.NoError(t, spill.Push(ctx, e))
	require.NoError(t, spill.Push(ctx, spillEntry("b")))

	boom := errors.New("store down")
	n, err := spill.Drain(ctx, 10, func(domain.AuditEntry) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)

	left, err := spill.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), left)

	// the failed entry is still at the head
	_, err = spill.Drain(ctx, 1, func(got domain.AuditEntry) error {
		assert.Equal(t, e.ID, got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestSpillDrainParksUndecodableEntries(t *testing.T) {
	spill, mr := newTestSpill(t)
	ctx := context.Background()
	_, err := mr.RPush("test:spill", "{not json")
	require.NoError(t, err)
	require.NoError(t, spill.Push(ctx, spillEntry("a")))

	n, err := spill.Drain(ctx, 10, func(domain.AuditEntry) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dead, err := mr.List("test:spill:dead")
	require.NoError(t, err)
	assert.Equal(t, []string{"{not json"}, dead)
}

func TestSpillDrainHonoursMax(t *testing.T) {
	spill, _ := newTestSpill(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, spill.Push(ctx, spillEntry("a")))
	}
	n, err := spill.Drain(ctx, 3, func(domain.AuditEntry) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	left, err := spill.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), left)
}
