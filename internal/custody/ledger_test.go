package custody

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/domain"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

func TestLedgerAppendAssignsSequenceAndSignature(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	ctx := context.Background()

	var rec *domain.CustodyRecord
	err := f.store.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := f.store.LockEvidence(ctx, f.rc.OrganizationID, ev.ID)
		if err != nil {
			return err
		}
		rec, err = f.ledger.Append(ctx, locked, Entry{
			ActorID:  f.rc.ActorID,
			Action:   domain.Fixed(domain.ActionCheckedOut),
			Reason:   "lab analysis",
			Location: "Lab 2",
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Sequence)
	assert.NotEmpty(t, rec.Signature)
	assert.True(t, f.ledger.Verify(*rec))

	stored, err := f.store.FindEvidence(ctx, f.rc.OrganizationID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCheckedOut, stored.Status)
	assert.Equal(t, "Lab 2", stored.Location)
}

func TestLedgerTimestampsStrictlyIncreaseUnderFrozenClock(t *testing.T) {
	frozen := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return frozen }))
	ev := f.seedEvidence(t, "EV-1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := f.store.RunInTx(ctx, func(ctx context.Context) error {
			locked, err := f.store.LockEvidence(ctx, f.rc.OrganizationID, ev.ID)
			if err != nil {
				return err
			}
			_, err = f.ledger.Append(ctx, locked, Entry{ActorID: f.rc.ActorID, Action: domain.Fixed(domain.ActionExamined)})
			return err
		})
		require.NoError(t, err)
	}

	records, err := f.store.ListCustodyRecords(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i].CreatedAt.After(records[i-1].CreatedAt))
		assert.Equal(t, int64(i+1), records[i].Sequence)
		assert.True(t, f.ledger.Verify(records[i]), "clamped timestamp is the one that was signed")
	}
}

func TestLedgerNonMovingActionLeavesStatus(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	ctx := context.Background()

	err := f.store.RunInTx(ctx, func(ctx context.Context) error {
		_, err := f.ledger.Append(ctx, ev, Entry{ActorID: f.rc.ActorID, Action: domain.Fixed(domain.ActionAnalyzed)})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInCustody, ev.Status)
}

func TestLedgerRejectsZeroAction(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	_, err := f.ledger.Append(context.Background(), ev, Entry{ActorID: f.rc.ActorID})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestLedgerAppendToMissingEvidence(t *testing.T) {
	f := newFixture(t)
	ghost := &domain.Evidence{ID: id.NewEvidenceID(), OrganizationID: f.rc.OrganizationID}
	_, err := f.ledger.Append(context.Background(), ghost, Entry{ActorID: f.rc.ActorID, Action: domain.Fixed(domain.ActionExamined)})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingSigner struct{}

func (failingSigner) Sign([]byte) (string, error)  { return "", errors.New("entropy exhausted") }
func (failingSigner) Verify([]byte, string) bool { return false }

func TestLedgerSignFailureAppendsNothing(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	ledger := NewLedger(failingSigner{}, f.store)

	_, err := ledger.Append(context.Background(), ev, Entry{ActorID: f.rc.ActorID, Action: domain.Fixed(domain.ActionCheckedOut)})
	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	records, err := f.store.ListCustodyRecords(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLedgerVerifyDetectsFieldEdits(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	records, err := f.store.ListCustodyRecords(context.Background(), ev.ID)
	require.NoError(t, err)
	rec := records[0]
	require.True(t, f.ledger.Verify(rec))

	edited := rec
	edited.Reason = "backdated"
	assert.False(t, f.ledger.Verify(edited))

	moved := rec
	moved.CreatedAt = rec.CreatedAt.Add(-time.Hour)
	assert.False(t, f.ledger.Verify(moved))
}

func TestLedgerVerifyBindsRecordToItsSlot(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvidence(t, "EV-1")
	records, err := f.store.ListCustodyRecords(context.Background(), ev.ID)
	require.NoError(t, err)
	rec := records[0]
	require.True(t, f.ledger.Verify(rec))

	t.Run("replayed onto another item", func(t *testing.T) {
		other := rec
		other.EvidenceID = id.NewEvidenceID()
		assert.False(t, f.ledger.Verify(other))
	})

	t.Run("renumbered within the ledger", func(t *testing.T) {
		renumbered := rec
		renumbered.Sequence = rec.Sequence + 1
		assert.False(t, f.ledger.Verify(renumbered))
	})
}
