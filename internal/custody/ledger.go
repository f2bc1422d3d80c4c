// Package custody maintains the per-evidence chain of custody.
//
// Every handling event is appended as a signed record. Records are never
// updated or removed while the evidence exists; Sequence (1..n) is the
// authoritative order and CreatedAt is strictly increasing along it.
package custody

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

var tracer = otel.Tracer("custodian.custody")

// Signer signs and verifies canonical custody payloads.
type Signer interface {
	Sign(payload []byte) (string, error)
	Verify(payload []byte, signature string) bool
}

// LedgerStore is the persistence the ledger needs. Calls join the transaction
// carried by ctx.
type LedgerStore interface {
	LastCustodyRecord(ctx context.Context, evidenceID id.EvidenceID) (*domain.CustodyRecord, error)
	AppendCustodyRecord(ctx context.Context, rec *domain.CustodyRecord) error
	UpdateEvidence(ctx context.Context, ev *domain.Evidence) error
}

// Entry is one event to append.
type Entry struct {
	ActorID       id.ActorID
	Action        domain.Action
	Reason        string
	Location      string
	ChangesDigest string
}

// Ledger appends and verifies signed custody records. It is shared by the
// custody and evidence services so both produce records the same way.
type Ledger struct {
	signer Signer
	store  LedgerStore
	now    func() time.Time
}

type LedgerOption func(*Ledger)

// WithClock replaces the wall clock used to stamp records.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(signer Signer, store LedgerStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{signer: signer, store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append signs and stores the next record for ev and applies the action's
// status and location effects to ev.
//
// It must run inside a transaction that holds ev's row lock; the sequence
// number and timestamp are assigned under that lock.
func (l *Ledger) Append(ctx context.Context, ev *domain.Evidence, in Entry) (*domain.CustodyRecord, error) {
	ctx, span := tracer.Start(ctx, "custody.Ledger.Append",
		trace.WithAttributes(
			attribute.String("evidence.id", ev.ID.String()),
			attribute.String("custody.action", in.Action.Name()),
		),
	)
	defer span.End()

	if in.Action.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "custody action is required")
	}

	seq := int64(1)
	at := l.now().UTC().Truncate(time.Microsecond)
	last, err := l.store.LastCustodyRecord(ctx, ev.ID)
	switch {
	case err == nil:
		seq = last.Sequence + 1
		if !at.After(last.CreatedAt) {
			at = last.CreatedAt.Add(time.Microsecond)
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "read ledger head")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read custody ledger")
	}

	rec := domain.CustodyRecord{
		ID:            id.NewCustodyRecordID(),
		EvidenceID:    ev.ID,
		Sequence:      seq,
		ActorID:       in.ActorID,
		Action:        in.Action.Name(),
		Reason:        in.Reason,
		Location:      in.Location,
		ChangesDigest: in.ChangesDigest,
		CreatedAt:     at,
	}
	payload, err := rec.Payload().Canonicalize()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode custody payload")
	}
	if rec.Signature, err = l.signer.Sign(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign custody record")
	}

	if err := l.store.AppendCustodyRecord(ctx, &rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append")
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
		case errors.Is(err, storage.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "concurrent custody append")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append custody record")
		}
	}

	changed := false
	if status, ok := in.Action.Transition(); ok && ev.Status != status {
		ev.Status = status
		changed = true
	}
	if in.Location != "" && ev.Location != in.Location {
		ev.Location = in.Location
		changed = true
	}
	if changed {
		ev.UpdatedAt = at
		if err := l.store.UpdateEvidence(ctx, ev); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update evidence")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence status")
		}
	}

	span.SetAttributes(attribute.Int64("custody.sequence", seq))
	rec.Integrity = domain.IntegrityVerified
	return &rec, nil
}

// Verify reports whether rec's stored fields still match its signature.
func (l *Ledger) Verify(rec domain.CustodyRecord) bool {
	payload, err := rec.Payload().Canonicalize()
	if err != nil {
		return false
	}
	return l.signer.Verify(payload, rec.Signature)
}
