package custody

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"custodian/internal/audit"
	"custodian/internal/custody/metrics"
	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

const (
	maxReasonLength     = 2000
	maxLocationLength   = 255
	maxActionNameLength = 100
)

// Store is the persistence the custody service needs.
type Store interface {
	LedgerStore
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindCase(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) (*domain.Case, error)
	FindEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error)
	LockEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error)
	ListCustodyRecords(ctx context.Context, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error)
	FindCustodyRecord(ctx context.Context, evidenceID id.EvidenceID, recordID id.CustodyRecordID) (*domain.CustodyRecord, error)
	ListCaseActions(ctx context.Context, caseID id.CaseID) ([]domain.CaseAction, error)
	CreateCaseAction(ctx context.Context, a *domain.CaseAction) error
	FindCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) (*domain.CaseAction, error)
	DeleteCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) error
}

// AuditRecorder is the secondary audit write path.
type AuditRecorder interface {
	Record(ctx context.Context, rc requestcontext.RequestContext, in audit.Entry)
}

// SecurityPublisher forwards integrity failures to the security stream.
type SecurityPublisher interface {
	PublishIntegrityFailure(ctx context.Context, ev domain.IntegrityEvent) error
}

// ActionInput is a requested custody action.
type ActionInput struct {
	Action   string
	Reason   string
	Location string
}

// CaseActionInput defines a custom custody action for a case. A nil Order
// appends the action after the existing ones.
type CaseActionInput struct {
	Name        string
	Description string
	Order       *int
}

// LedgerReport is the result of walking one evidence item's ledger.
type LedgerReport struct {
	EvidenceID    id.EvidenceID
	Records       int
	Failed        []id.CustodyRecordID
	OutOfOrder    []int64
	Status        domain.Status
	DerivedStatus domain.Status
}

// Valid reports whether every signature verified, the ledger is ordered and
// the stored status matches the one the ledger implies.
func (r LedgerReport) Valid() bool {
	return len(r.Failed) == 0 && len(r.OutOfOrder) == 0 && r.Status == r.DerivedStatus
}

type Service struct {
	store    Store
	ledger   *Ledger
	auditor  AuditRecorder
	security SecurityPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSecurityPublisher forwards integrity failures to an external stream in
// addition to the log and the audit trail.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

func New(store Store, ledger *Ledger, auditor AuditRecorder, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, auditor: auditor}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (in ActionInput) normalize() (ActionInput, error) {
	in.Action = strings.TrimSpace(in.Action)
	in.Reason = strings.TrimSpace(in.Reason)
	in.Location = strings.TrimSpace(in.Location)
	if in.Action == "" {
		return in, dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if utf8.RuneCountInString(in.Reason) > maxReasonLength {
		return in, dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	if utf8.RuneCountInString(in.Location) > maxLocationLength {
		return in, dErrors.New(dErrors.CodeValidation, "location is too long")
	}
	return in, nil
}

// RecordCustodyAction appends a signed record and moves the evidence status in
// one transaction. Out-of-sequence actions are accepted; history is recorded
// as it happened.
func (s *Service) RecordCustodyAction(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, in ActionInput) (*domain.CustodyRecord, error) {
	start := time.Now()
	defer s.metrics.ObserveAppend(start)

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}

	// Case actions are read under the evidence lock so a concurrent delete
	// cannot land between the name check and the append.
	var (
		rec    *domain.CustodyRecord
		action domain.Action
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.LockEvidence(ctx, rc.OrganizationID, evidenceID)
		if err != nil {
			return translateNotFound(err, "evidence not found")
		}
		caseActions, err := s.store.ListCaseActions(ctx, locked.CaseID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case actions")
		}
		action, err = domain.ParseAction(in.Action, caseActions)
		if err != nil {
			return err
		}
		rec, err = s.ledger.Append(ctx, locked, Entry{
			ActorID:  rc.ActorID,
			Action:   action,
			Reason:   in.Reason,
			Location: in.Location,
		})
		ev = locked
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record custody action",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"action", in.Action,
			"error", err,
		)
		return nil, err
	}

	s.metrics.IncActionRecorded(actionLabel(action))
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditCustodyRecorded,
		ResourceType: domain.ResourceCustody,
		ResourceID:   rec.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"evidence_id":     ev.ID.String(),
			"evidence_number": ev.Number,
			"action":          rec.Action,
			"sequence":        rec.Sequence,
			"status":          string(ev.Status),
			"location":        rec.Location,
		},
	})
	s.logger.InfoContext(ctx, "custody action recorded",
		"request_id", requestcontext.RequestID(ctx),
		"evidence_id", ev.ID.String(),
		"action", rec.Action,
		"sequence", rec.Sequence,
	)
	return rec, nil
}

// ListCustodyRecords returns the ledger in sequence order with each record's
// integrity status. A record that fails verification is still returned,
// marked IntegrityFailed, and reported as a security event.
func (s *Service) ListCustodyRecords(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListCustodyRecords(ctx, ev.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody records")
	}
	s.annotate(ctx, rc, ev, records)
	return records, nil
}

// annotate verifies every record in place.
func (s *Service) annotate(ctx context.Context, rc requestcontext.RequestContext, ev *domain.Evidence, records []domain.CustodyRecord) {
	for i := range records {
		if s.ledger.Verify(records[i]) {
			records[i].Integrity = domain.IntegrityVerified
			s.metrics.IncIntegrityVerified()
			continue
		}
		records[i].Integrity = domain.IntegrityFailed
		s.reportIntegrityFailure(ctx, rc, ev, records[i])
	}
}

// VerifyRecord checks one record. A failed check is a CodeIntegrityFailure
// error, distinct from CodeNotFound for a record that does not exist.
func (s *Service) VerifyRecord(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, recordID id.CustodyRecordID) (*domain.CustodyRecord, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindCustodyRecord(ctx, ev.ID, recordID)
	if err != nil {
		return nil, translateNotFound(err, "custody record not found")
	}
	if !s.ledger.Verify(*rec) {
		rec.Integrity = domain.IntegrityFailed
		s.reportIntegrityFailure(ctx, rc, ev, *rec)
		return nil, dErrors.New(dErrors.CodeIntegrityFailure, "custody record failed integrity verification")
	}
	rec.Integrity = domain.IntegrityVerified
	s.metrics.IncIntegrityVerified()
	return rec, nil
}

// VerifyLedger walks an evidence item's whole ledger.
func (s *Service) VerifyLedger(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*LedgerReport, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListCustodyRecords(ctx, ev.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody records")
	}
	s.annotate(ctx, rc, ev, records)

	report := &LedgerReport{EvidenceID: ev.ID, Records: len(records), Status: ev.Status}
	for i, rec := range records {
		if rec.Integrity == domain.IntegrityFailed {
			report.Failed = append(report.Failed, rec.ID)
		}
		if rec.Sequence != int64(i+1) || (i > 0 && !rec.CreatedAt.After(records[i-1].CreatedAt)) {
			report.OutOfOrder = append(report.OutOfOrder, rec.Sequence)
		}
	}
	report.DerivedStatus, _ = domain.DeriveStatus(records)
	if !report.Valid() {
		s.logger.WarnContext(ctx, "custody ledger verification failed",
			"log_type", "security",
			"evidence_id", ev.ID.String(),
			"failed_records", len(report.Failed),
			"out_of_order", len(report.OutOfOrder),
			"status", string(report.Status),
			"derived_status", string(report.DerivedStatus),
		)
	}
	return report, nil
}

func (s *Service) reportIntegrityFailure(ctx context.Context, rc requestcontext.RequestContext, ev *domain.Evidence, rec domain.CustodyRecord) {
	s.metrics.IncIntegrityFailed()
	s.logger.ErrorContext(ctx, "custody record failed integrity verification",
		"log_type", "security",
		"organization_id", ev.OrganizationID.String(),
		"evidence_id", ev.ID.String(),
		"record_id", rec.ID.String(),
		"sequence", rec.Sequence,
		"actor_id", rc.ActorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditIntegrityFailure,
		ResourceType: domain.ResourceCustody,
		ResourceID:   rec.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"evidence_id": ev.ID.String(),
			"sequence":    rec.Sequence,
		},
	})
	if s.security == nil {
		return
	}
	err := s.security.PublishIntegrityFailure(ctx, domain.IntegrityEvent{
		OrganizationID: ev.OrganizationID,
		EvidenceID:     ev.ID,
		RecordID:       rec.ID,
		Sequence:       rec.Sequence,
		DetectedBy:     rc.ActorID,
		DetectedAt:     requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		s.metrics.IncSecurityPublishFailure()
		s.logger.WarnContext(ctx, "failed to publish integrity failure",
			"log_type", "security",
			"record_id", rec.ID.String(),
			"error", err,
		)
	}
}

// ListCaseActions returns the case's custody actions in display order. A case
// without any gets the default set on first read.
func (s *Service) ListCaseActions(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.CaseAction, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return nil, err
	}
	actions, err := s.store.ListCaseActions(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case actions")
	}
	if len(actions) > 0 {
		return actions, nil
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.ListCaseActions(ctx, caseID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			actions = existing
			return nil
		}
		actions = DefaultCaseActions(caseID, requestcontext.Now(ctx))
		for i := range actions {
			if err := s.store.CreateCaseAction(ctx, &actions[i]); err != nil && !errors.Is(err, storage.ErrConflict) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed default case actions")
	}
	return actions, nil
}

// DefaultCaseActions is the seeded action list for a new case: the fixed
// handling actions, marked default so they cannot be removed.
func DefaultCaseActions(caseID id.CaseID, now time.Time) []domain.CaseAction {
	var out []domain.CaseAction
	for _, a := range domain.FixedActions() {
		if a.Kind() == domain.ActionCreated || a.Kind() == domain.ActionUpdated {
			continue
		}
		out = append(out, domain.CaseAction{
			ID:        id.NewCaseActionID(),
			CaseID:    caseID,
			Name:      a.Name(),
			IsDefault: true,
			Order:     len(out),
			CreatedAt: now.UTC(),
		})
	}
	return out
}

func (s *Service) CreateCaseAction(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, in CaseActionInput) (*domain.CaseAction, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, dErrors.New(dErrors.CodeValidation, "action name is required")
	case utf8.RuneCountInString(name) > maxActionNameLength:
		return nil, dErrors.New(dErrors.CodeValidation, "action name is too long")
	case domain.IsFixedActionName(name):
		return nil, dErrors.New(dErrors.CodeValidation, "action name is reserved: "+name)
	}
	existing, err := s.ListCaseActions(ctx, rc, caseID)
	if err != nil {
		return nil, err
	}

	action := &domain.CaseAction{
		ID:          id.NewCaseActionID(),
		CaseID:      caseID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Order:       nextOrder(existing),
		CreatedAt:   requestcontext.Now(ctx).UTC(),
	}
	if in.Order != nil {
		action.Order = *in.Order
	}
	if err := s.store.CreateCaseAction(ctx, action); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "case already has an action named "+name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case action")
	}

	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditCaseActionCreated,
		ResourceType: domain.ResourceCaseAction,
		ResourceID:   action.ID.String(),
		CaseID:       &caseID,
		Details:      map[string]any{"name": action.Name},
	})
	return action, nil
}

func nextOrder(actions []domain.CaseAction) int {
	next := 0
	for _, a := range actions {
		if a.Order >= next {
			next = a.Order + 1
		}
	}
	return next
}

// DeleteCaseAction removes a custom action. Historical records keep the name.
func (s *Service) DeleteCaseAction(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID, actionID id.CaseActionID) error {
	if err := rc.Validate(); err != nil {
		return err
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return err
	}
	action, err := s.store.FindCaseAction(ctx, caseID, actionID)
	if err != nil {
		return translateNotFound(err, "case action not found")
	}
	if action.IsDefault {
		return dErrors.New(dErrors.CodeForbidden, "default custody actions cannot be deleted")
	}
	if err := s.store.DeleteCaseAction(ctx, caseID, actionID); err != nil {
		return translateNotFound(err, "case action not found")
	}

	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditCaseActionDeleted,
		ResourceType: domain.ResourceCaseAction,
		ResourceID:   actionID.String(),
		CaseID:       &caseID,
		Details:      map[string]any{"name": action.Name},
	})
	return nil
}

func (s *Service) findEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	ev, err := s.store.FindEvidence(ctx, rc.OrganizationID, evidenceID)
	if err != nil {
		return nil, translateNotFound(err, "evidence not found")
	}
	return ev, nil
}

func (s *Service) findCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*domain.Case, error) {
	c, err := s.store.FindCase(ctx, rc.OrganizationID, caseID)
	if err != nil {
		return nil, translateNotFound(err, "case not found")
	}
	return c, nil
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}

func actionLabel(a domain.Action) string {
	if a.IsCustom() {
		return "custom"
	}
	return a.Name()
}
