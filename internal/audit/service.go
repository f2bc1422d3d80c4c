// Package audit is the organization-scoped, append-only audit trail.
//
// Two write paths exist. Append is the primary path: the caller owns the
// outcome and gets the error. Record is the secondary path used alongside a
// business operation that has already committed: failures are logged, counted
// and parked in a spill queue for Replay, never returned.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"custodian/internal/domain"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/sentinel"
	"custodian/pkg/requestcontext"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	replayBatch = 100
)

// Store persists audit entries. AppendAudit joins a transaction carried by ctx.
type Store interface {
	AppendAudit(ctx context.Context, e *domain.AuditEntry) error
	QueryAudit(ctx context.Context, orgID id.OrganizationID, filter domain.AuditFilter, offset, limit int) ([]domain.AuditEntry, int, error)
}

// Spill parks entries whose secondary write failed.
type Spill interface {
	Push(ctx context.Context, e domain.AuditEntry) error
	Drain(ctx context.Context, max int, fn func(domain.AuditEntry) error) (int, error)
}

// Entry is what callers supply; identity, actor and client metadata are
// filled in from the request.
type Entry struct {
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	CaseID       *id.CaseID
	Details      map[string]any
}

type Service struct {
	store   Store
	spill   Spill
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSpill enables parking failed secondary writes for Replay.
func WithSpill(spill Spill) Option {
	return func(s *Service) {
		s.spill = spill
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) build(ctx context.Context, rc requestcontext.RequestContext, in Entry) (domain.AuditEntry, error) {
	if err := rc.Validate(); err != nil {
		return domain.AuditEntry{}, err
	}
	if strings.TrimSpace(string(in.Action)) == "" {
		return domain.AuditEntry{}, dErrors.New(dErrors.CodeValidation, "audit action is required")
	}
	if strings.TrimSpace(in.ResourceType) == "" {
		return domain.AuditEntry{}, dErrors.New(dErrors.CodeValidation, "audit resource type is required")
	}
	details := maps.Clone(in.Details)
	if details == nil {
		details = map[string]any{}
	}
	return domain.AuditEntry{
		ID:             id.NewAuditEntryID(),
		OrganizationID: rc.OrganizationID,
		ActorID:        rc.ActorID,
		Action:         string(in.Action),
		ResourceType:   in.ResourceType,
		ResourceID:     in.ResourceID,
		CaseID:         in.CaseID,
		Details:        details,
		IPAddress:      requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
		CreatedAt:      requestcontext.Now(ctx).UTC(),
	}, nil
}

// Append writes an entry and reports any failure to the caller.
func (s *Service) Append(ctx context.Context, rc requestcontext.RequestContext, in Entry) (*domain.AuditEntry, error) {
	entry, err := s.build(ctx, rc, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendAudit(ctx, &entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	s.metrics.IncAppended()
	s.logAudit(ctx, entry)
	return &entry, nil
}

// Record is the secondary write path: it never fails the caller.
func (s *Service) Record(ctx context.Context, rc requestcontext.RequestContext, in Entry) {
	entry, err := s.build(ctx, rc, in)
	if err != nil {
		s.logger.WarnContext(ctx, "audit entry rejected",
			"log_type", "audit",
			"action", in.Action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	if err := s.store.AppendAudit(ctx, &entry); err != nil {
		s.metrics.IncSecondaryFailures()
		s.logger.ErrorContext(ctx, "secondary audit write failed",
			"log_type", "audit",
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.park(ctx, entry)
		return
	}
	s.metrics.IncAppended()
	s.logAudit(ctx, entry)
}

func (s *Service) park(ctx context.Context, entry domain.AuditEntry) {
	if s.spill == nil {
		return
	}
	// The request may already be cancelled; the spill write must still happen.
	spillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.spill.Push(spillCtx, entry); err != nil {
		s.metrics.IncSpillFailures()
		s.logger.ErrorContext(ctx, "audit entry lost: spill unavailable",
			"log_type", "audit",
			"audit_id", entry.ID.String(),
			"action", entry.Action,
			"error", err,
		)
		return
	}
	s.metrics.IncSpilled()
}

// Query returns one page of the organization's audit trail, newest first.
// page starts at 1; limit is clamped to 1..MaxLimit (0 means DefaultLimit).
func (s *Service) Query(ctx context.Context, rc requestcontext.RequestContext, filter domain.AuditFilter, page, limit int) (*domain.AuditPage, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	entries, total, err := s.store.QueryAudit(ctx, rc.OrganizationID, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit log")
	}
	return &domain.AuditPage{Entries: entries, Total: total, Page: page, Limit: limit}, nil
}

// Replay moves parked entries back into the store. Entries that already
// landed are skipped. It stops at the first store failure, leaving the rest
// queued.
func (s *Service) Replay(ctx context.Context) (int, error) {
	if s.spill == nil {
		return 0, nil
	}
	replayed := 0
	for {
		n, err := s.spill.Drain(ctx, replayBatch, func(e domain.AuditEntry) error {
			if err := s.store.AppendAudit(ctx, &e); err != nil && !errors.Is(err, sentinel.ErrConflict) {
				return err
			}
			return nil
		})
		replayed += n
		s.metrics.AddReplayed(n)
		if err != nil {
			return replayed, dErrors.Wrap(err, dErrors.CodeInternal, "audit replay interrupted")
		}
		if n < replayBatch {
			break
		}
	}
	if replayed > 0 {
		s.logger.InfoContext(ctx, "replayed spilled audit entries", "log_type", "audit", "count", replayed)
	}
	return replayed, nil
}

func (s *Service) logAudit(ctx context.Context, e domain.AuditEntry) {
	s.logger.DebugContext(ctx, e.Action,
		"log_type", "audit",
		"audit_id", e.ID.String(),
		"organization_id", e.OrganizationID.String(),
		"actor_id", e.ActorID.String(),
		"resource_type", e.ResourceType,
		"resource_id", e.ResourceID,
		"request_id", requestcontext.RequestID(ctx),
	)
}
