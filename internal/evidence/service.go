// Package evidence is the evidence registry: intake, metadata edits and
// deletion, with the owning case's counters kept in step in the same
// transaction and every change mirrored into the custody ledger.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodian/internal/audit"
	"custodian/internal/custody"
	"custodian/internal/domain"
	"custodian/internal/evidence/metrics"
	"custodian/internal/filestore"
	"custodian/internal/signer"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

var tracer = otel.Tracer("custodian.evidence")

// Store is the persistence the registry needs.
type Store interface {
	custody.LedgerStore
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindCase(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) (*domain.Case, error)
	AddEvidenceToCase(ctx context.Context, caseID id.CaseID, size uint64) error
	RemoveEvidenceFromCase(ctx context.Context, caseID id.CaseID, size uint64) error
	ComputeCaseAggregates(ctx context.Context, caseID id.CaseID) (domain.CaseAggregates, error)
	SetCaseAggregates(ctx context.Context, caseID id.CaseID, agg domain.CaseAggregates) error
	FindEvidenceType(ctx context.Context, orgID id.OrganizationID, typeID id.EvidenceTypeID) (*domain.EvidenceType, error)
	ListFieldDefinitions(ctx context.Context, orgID id.OrganizationID) ([]domain.FieldDefinition, error)
	CreateEvidence(ctx context.Context, ev *domain.Evidence) error
	FindEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error)
	LockEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error)
	ListEvidence(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) ([]domain.Evidence, error)
	DeleteEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) error
}

// FileStore is the slice of *filestore.Store the registry uses.
type FileStore interface {
	Stat(ctx context.Context, p string) (filestore.FileInfo, error)
	Write(ctx context.Context, ext string, r io.Reader) (filestore.Written, error)
	Hash(ctx context.Context, p string) (filestore.Written, error)
	Unlink(ctx context.Context, p string) error
}

// CustodyReader returns an evidence item's verified ledger.
type CustodyReader interface {
	ListCustodyRecords(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error)
}

// AuditRecorder is the secondary audit write path.
type AuditRecorder interface {
	Record(ctx context.Context, rc requestcontext.RequestContext, in audit.Entry)
}

type Service struct {
	store   Store
	ledger  *custody.Ledger
	auditor AuditRecorder
	files   FileStore
	custody CustodyReader
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithFileStore enables stored binaries: path checks on intake, uploads,
// hash verification and unlinking on delete.
func WithFileStore(files FileStore) Option {
	return func(s *Service) {
		s.files = files
	}
}

// WithCustodyReader makes GetEvidence include the verified ledger.
func WithCustodyReader(r CustodyReader) Option {
	return func(s *Service) {
		s.custody = r
	}
}

func New(store Store, ledger *custody.Ledger, auditor AuditRecorder, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, auditor: auditor}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateEvidence stores the item, its Created custody record and the case
// counter increment in one transaction.
func (s *Service) CreateEvidence(ctx context.Context, rc requestcontext.RequestContext, in CreateInput) (*domain.Evidence, error) {
	ctx, span := tracer.Start(ctx, "evidence.Service.CreateEvidence",
		trace.WithAttributes(attribute.String("case.id", in.CaseID.String())))
	defer span.End()

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	kase, err := s.findCase(ctx, rc, in.CaseID)
	if err != nil {
		return nil, err
	}
	evType, err := s.findType(ctx, rc, in.TypeID)
	if err != nil {
		return nil, err
	}
	defs, err := s.store.ListFieldDefinitions(ctx, rc.OrganizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custom field definitions")
	}
	fields, err := resolveCustomFields(defs, nil, in.CustomFields)
	if err != nil {
		return nil, err
	}
	if in.FilePath != "" {
		info, err := s.statFile(ctx, in.FilePath)
		if err != nil {
			return nil, err
		}
		in.FilePath = info.Path
		if in.Size == 0 {
			in.Size = info.Size
		}
	}

	now := requestcontext.Now(ctx).UTC()
	if in.Number == "" {
		in.Number = fmt.Sprintf("EV-%d", now.UnixMilli())
	}
	ev := &domain.Evidence{
		ID:              id.NewEvidenceID(),
		OrganizationID:  rc.OrganizationID,
		CaseID:          kase.ID,
		Number:          in.Number,
		TypeID:          evType.ID,
		Description:     in.Description,
		Status:          domain.InitialStatus,
		Location:        in.Location,
		StorageLocation: in.StorageLocation,
		MD5:             in.MD5,
		SHA256:          in.SHA256,
		Size:            in.Size,
		FilePath:        in.FilePath,
		CollectedAt:     in.CollectedAt,
		CustomFields:    fields,
		CreatedBy:       rc.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	reason := in.Reason
	if reason == "" {
		reason = "Evidence created"
	}

	var rec *domain.CustodyRecord
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateEvidence(ctx, ev); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "evidence number already in use: "+ev.Number)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create evidence")
		}
		rec, err = s.ledger.Append(ctx, ev, custody.Entry{
			ActorID:  rc.ActorID,
			Action:   domain.Fixed(domain.ActionCreated),
			Reason:   reason,
			Location: ev.Location,
		})
		if err != nil {
			return err
		}
		if err := s.store.AddEvidenceToCase(ctx, ev.CaseID, ev.Size); err != nil {
			return translateCaseCounters(err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create evidence",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", in.CaseID.String(),
			"number", in.Number,
			"error", err,
		)
		return nil, err
	}

	ev.Type = evType
	ev.Custody = []domain.CustodyRecord{*rec}
	s.metrics.IncCreated()
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditEvidenceCreated,
		ResourceType: domain.ResourceEvidence,
		ResourceID:   ev.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"number": ev.Number,
			"type":   evType.Name,
			"size":   fmt.Sprintf("%d", ev.Size),
		},
	})
	s.logger.InfoContext(ctx, "evidence created",
		"request_id", requestcontext.RequestID(ctx),
		"evidence_id", ev.ID.String(),
		"case_id", ev.CaseID.String(),
		"number", ev.Number,
	)
	return ev, nil
}

// GetEvidence returns the item with its type and, when a custody reader is
// configured, its ledger annotated with integrity results.
func (s *Service) GetEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}
	if s.custody != nil {
		records, err := s.custody.ListCustodyRecords(ctx, rc, ev.ID)
		if err != nil {
			return nil, err
		}
		ev.Custody = records
	}
	return ev, nil
}

func (s *Service) ListCaseEvidence(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) ([]domain.Evidence, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findCase(ctx, rc, caseID); err != nil {
		return nil, err
	}
	items, err := s.store.ListEvidence(ctx, rc.OrganizationID, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return items, nil
}

// UpdateEvidence applies a metadata patch and appends an Updated custody
// record whose signature binds a digest of the changed fields. A patch that
// changes nothing writes nothing.
func (s *Service) UpdateEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, in UpdateInput) (*domain.Evidence, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.findEvidence(ctx, rc, evidenceID); err != nil {
		return nil, err
	}

	var evType *domain.EvidenceType
	if in.TypeID != nil {
		if evType, err = s.findType(ctx, rc, *in.TypeID); err != nil {
			return nil, err
		}
	}
	var defs []domain.FieldDefinition
	if len(in.CustomFields) > 0 {
		if defs, err = s.store.ListFieldDefinitions(ctx, rc.OrganizationID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custom field definitions")
		}
	}

	ev, err := s.mutate(ctx, rc, evidenceID, in.Reason, func(ev *domain.Evidence) (map[string]any, error) {
		changes := map[string]any{}
		if in.Number != nil && *in.Number != ev.Number {
			ev.Number = *in.Number
			changes["number"] = ev.Number
		}
		if evType != nil && evType.ID != ev.TypeID {
			ev.TypeID = evType.ID
			ev.Type = evType
			changes["type_id"] = ev.TypeID.String()
		}
		if in.Description != nil && *in.Description != ev.Description {
			ev.Description = *in.Description
			changes["description"] = ev.Description
		}
		if in.StorageLocation != nil && *in.StorageLocation != ev.StorageLocation {
			ev.StorageLocation = *in.StorageLocation
			changes["storage_location"] = ev.StorageLocation
		}
		if in.MD5 != nil && *in.MD5 != ev.MD5 {
			ev.MD5 = *in.MD5
			changes["md5"] = ev.MD5
		}
		if in.SHA256 != nil && *in.SHA256 != ev.SHA256 {
			ev.SHA256 = *in.SHA256
			changes["sha256"] = ev.SHA256
		}
		if in.Size != nil && *in.Size != ev.Size {
			ev.Size = *in.Size
			changes["size"] = fmt.Sprintf("%d", ev.Size)
		}
		if in.CollectedAt != nil && (ev.CollectedAt == nil || !in.CollectedAt.Equal(*ev.CollectedAt)) {
			at := in.CollectedAt.UTC()
			ev.CollectedAt = &at
			changes["collected_at"] = signer.Timestamp(at)
		}
		if len(in.CustomFields) > 0 {
			fields, err := resolveCustomFields(defs, ev.CustomFields, in.CustomFields)
			if err != nil {
				return nil, err
			}
			if !slices.Equal(fields, ev.CustomFields) {
				ev.CustomFields = fields
				values := make(map[string]string, len(fields))
				for _, f := range fields {
					values[f.Name] = f.Value
				}
				changes["custom_fields"] = values
			}
		}
		return changes, nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// AttachFile stores r under the evidence root and points the item at it,
// recording size and hashes. The previous file, if any, is unlinked
// best-effort once the change is committed.
func (s *Service) AttachFile(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, ext string, r io.Reader) (*domain.Evidence, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "file storage is not configured")
	}
	if _, err := s.findEvidence(ctx, rc, evidenceID); err != nil {
		return nil, err
	}

	written, err := s.files.Write(ctx, ext, r)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evidence file")
	}

	var previous string
	ev, err := s.mutate(ctx, rc, evidenceID, "Evidence file attached", func(ev *domain.Evidence) (map[string]any, error) {
		previous = ev.FilePath
		ev.FilePath = written.Path
		ev.Size = written.Size
		ev.MD5 = written.MD5
		ev.SHA256 = written.SHA256
		return map[string]any{
			"file_path": written.Path,
			"size":      fmt.Sprintf("%d", written.Size),
			"md5":       written.MD5,
			"sha256":    written.SHA256,
		}, nil
	})
	if err != nil {
		s.unlink(ctx, evidenceID, written.Path)
		return nil, err
	}
	if previous != "" && previous != written.Path {
		s.unlink(ctx, evidenceID, previous)
	}
	return ev, nil
}

// mutate runs apply against the locked row and, when it reports changes,
// persists them, moves the case storage total by the size delta and appends
// an Updated record, all in one transaction.
func (s *Service) mutate(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID, reason string, apply func(ev *domain.Evidence) (map[string]any, error)) (*domain.Evidence, error) {
	ctx, span := tracer.Start(ctx, "evidence.Service.mutate",
		trace.WithAttributes(attribute.String("evidence.id", evidenceID.String())))
	defer span.End()

	if reason == "" {
		reason = "Evidence metadata updated"
	}
	var (
		ev      *domain.Evidence
		changes map[string]any
		rec     *domain.CustodyRecord
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.LockEvidence(ctx, rc.OrganizationID, evidenceID)
		if err != nil {
			return translateNotFound(err, "evidence not found")
		}
		oldSize := locked.Size
		if changes, err = apply(locked); err != nil {
			return err
		}
		ev = locked
		if len(changes) == 0 {
			return nil
		}

		locked.UpdatedAt = requestcontext.Now(ctx).UTC()
		if err := s.store.UpdateEvidence(ctx, locked); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "evidence number already in use: "+locked.Number)
			}
			return translateNotFound(err, "evidence not found")
		}
		if locked.Size != oldSize {
			// Moves this item's contribution; the count nets to zero.
			if err := s.store.RemoveEvidenceFromCase(ctx, locked.CaseID, oldSize); err != nil {
				return translateNotFound(err, "case not found")
			}
			if err := s.store.AddEvidenceToCase(ctx, locked.CaseID, locked.Size); err != nil {
				return translateCaseCounters(err)
			}
		}

		digest, err := signer.Digest(changes)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest evidence changes")
		}
		rec, err = s.ledger.Append(ctx, locked, custody.Entry{
			ActorID:       rc.ActorID,
			Action:        domain.Fixed(domain.ActionUpdated),
			Reason:        reason,
			Location:      locked.Location,
			ChangesDigest: digest,
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update evidence",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"error", err,
		)
		return nil, err
	}
	if rec == nil {
		return ev, nil
	}

	fields := make([]string, 0, len(changes))
	for k := range changes {
		fields = append(fields, k)
	}
	slices.Sort(fields)

	s.metrics.IncUpdated()
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditEvidenceUpdated,
		ResourceType: domain.ResourceEvidence,
		ResourceID:   ev.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"number":   ev.Number,
			"fields":   fields,
			"sequence": rec.Sequence,
		},
	})
	s.logger.InfoContext(ctx, "evidence updated",
		"request_id", requestcontext.RequestID(ctx),
		"evidence_id", ev.ID.String(),
		"fields", strings.Join(fields, ","),
	)
	return ev, nil
}

// DeleteEvidence removes the item and its ledger and takes its contribution
// off the case counters in one transaction. The stored file is unlinked
// afterwards; a filesystem fault is logged and never undoes the deletion.
func (s *Service) DeleteEvidence(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) error {
	ctx, span := tracer.Start(ctx, "evidence.Service.DeleteEvidence",
		trace.WithAttributes(attribute.String("evidence.id", evidenceID.String())))
	defer span.End()

	if err := rc.Validate(); err != nil {
		return err
	}
	if _, err := s.findEvidence(ctx, rc, evidenceID); err != nil {
		return err
	}

	var ev *domain.Evidence
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.LockEvidence(ctx, rc.OrganizationID, evidenceID)
		if err != nil {
			return translateNotFound(err, "evidence not found")
		}
		if err := s.store.DeleteEvidence(ctx, rc.OrganizationID, evidenceID); err != nil {
			return translateNotFound(err, "evidence not found")
		}
		if err := s.store.RemoveEvidenceFromCase(ctx, locked.CaseID, locked.Size); err != nil {
			return translateNotFound(err, "case not found")
		}
		ev = locked
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete evidence",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"error", err,
		)
		return err
	}

	if ev.FilePath != "" {
		s.unlink(ctx, ev.ID, ev.FilePath)
	}
	s.metrics.IncDeleted()
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditEvidenceDeleted,
		ResourceType: domain.ResourceEvidence,
		ResourceID:   ev.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"number": ev.Number,
			"size":   fmt.Sprintf("%d", ev.Size),
		},
	})
	s.logger.InfoContext(ctx, "evidence deleted",
		"request_id", requestcontext.RequestID(ctx),
		"evidence_id", ev.ID.String(),
		"case_id", ev.CaseID.String(),
	)
	return nil
}

// VerifyContentHash rehashes the stored file and compares it with the
// recorded hashes and size.
func (s *Service) VerifyContentHash(ctx context.Context, rc requestcontext.RequestContext, evidenceID id.EvidenceID) (*HashReport, error) {
	ctx, span := tracer.Start(ctx, "evidence.Service.VerifyContentHash",
		trace.WithAttributes(attribute.String("evidence.id", evidenceID.String())))
	defer span.End()

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "file storage is not configured")
	}
	ev, err := s.findEvidence(ctx, rc, evidenceID)
	if err != nil {
		return nil, err
	}
	if ev.FilePath == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence has no stored file")
	}

	computed, err := s.files.Hash(ctx, ev.FilePath)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash evidence file")
	}
	report := &HashReport{
		EvidenceID:  ev.ID,
		Path:        ev.FilePath,
		Computed:    computed,
		MD5Match:    ev.MD5 == "" || strings.EqualFold(ev.MD5, computed.MD5),
		SHA256Match: ev.SHA256 == "" || strings.EqualFold(ev.SHA256, computed.SHA256),
		SizeMatch:   ev.Size == computed.Size,
	}

	s.metrics.IncHashCheck(report.Valid())
	if !report.Valid() {
		s.logger.WarnContext(ctx, "evidence content does not match recorded hashes",
			"log_type", "security",
			"evidence_id", ev.ID.String(),
			"md5_match", report.MD5Match,
			"sha256_match", report.SHA256Match,
			"size_match", report.SizeMatch,
		)
	}
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditEvidenceHashCheck,
		ResourceType: domain.ResourceEvidence,
		ResourceID:   ev.ID.String(),
		CaseID:       &ev.CaseID,
		Details: map[string]any{
			"number": ev.Number,
			"valid":  report.Valid(),
		},
	})
	return report, nil
}

func (s *Service) GetCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*domain.Case, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return s.findCase(ctx, rc, caseID)
}

// RecountCase recomputes the case counters from its live children and stores
// them. The report says whether the incremental counters had drifted.
func (s *Service) RecountCase(ctx context.Context, rc requestcontext.RequestContext, caseID id.CaseID) (*RecountReport, error) {
	ctx, span := tracer.Start(ctx, "evidence.Service.RecountCase",
		trace.WithAttributes(attribute.String("case.id", caseID.String())))
	defer span.End()

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	report := &RecountReport{CaseID: caseID}
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		kase, err := s.store.FindCase(ctx, rc.OrganizationID, caseID)
		if err != nil {
			return translateNotFound(err, "case not found")
		}
		report.Before = domain.CaseAggregates{
			EvidenceCount: kase.EvidenceCount,
			StorageTotal:  kase.StorageTotal,
			ActiveTasks:   kase.ActiveTasks,
		}
		if report.After, err = s.store.ComputeCaseAggregates(ctx, caseID); err != nil {
			return translateNotFound(err, "case not found")
		}
		if !report.Drifted() {
			return nil
		}
		return translateNotFound(s.store.SetCaseAggregates(ctx, caseID, report.After), "case not found")
	})
	if err != nil {
		return nil, err
	}

	if report.Drifted() {
		s.metrics.IncAggregateDrift()
		s.logger.WarnContext(ctx, "case aggregates drifted",
			"case_id", caseID.String(),
			"evidence_count_before", report.Before.EvidenceCount,
			"evidence_count_after", report.After.EvidenceCount,
			"storage_total_before", report.Before.StorageTotal,
			"storage_total_after", report.After.StorageTotal,
			"active_tasks_before", report.Before.ActiveTasks,
			"active_tasks_after", report.After.ActiveTasks,
		)
	}
	s.auditor.Record(ctx, rc, audit.Entry{
		Action:       domain.AuditCaseRecounted,
		ResourceType: domain.ResourceCase,
		ResourceID:   caseID.String(),
		CaseID:       &caseID,
		Details: map[string]any{
			"drifted":        report.Drifted(),
			"evidence_count": report.After.EvidenceCount,
			"storage_total":  fmt.Sprintf("%d", report.After.StorageTotal),
			"active_tasks":   report.After.ActiveTasks,
		},
	})
	return report, nil
}

func (s *Service) unlink(ctx context.Context, evidenceID id.EvidenceID, path string) {
	if s.files == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.files.Unlink(ctx, path); err != nil {
		s.metrics.IncUnlinkFailure()
		s.logger.ErrorContext(ctx, "failed to remove evidence file",
			"request_id", requestcontext.RequestID(ctx),
			"evidence_id", evidenceID.String(),
			"path", path,
			"error", err,
		)
	}
}

func (s *Service) statFile(ctx context.Context, path string) (filestore.FileInfo, error) {
	if s.files == nil {
		return filestore.FileInfo{}, dErrors.New(dErrors.CodeValidation, "file storage is not configured")
	}
	info, err := s.files.Stat(ctx, path)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			if de.Code == dErrors.CodeNotFound {
				return filestore.FileInfo{}, dErrors.New(dErrors.CodeValidation, "file_path does not exist")
			}
			return filestore.FileInfo{}, err
		}
		return filestore.FileInfo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stat evidence file")
	}
	return info, nil
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

func (s *Service) findType(ctx context.Context, rc requestcontext.RequestContext, typeID id.EvidenceTypeID) (*domain.EvidenceType, error) {
	t, err := s.store.FindEvidenceType(ctx, rc.OrganizationID, typeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown evidence type")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence type")
	}
	return t, nil
}

func translateNotFound(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}

func translateCaseCounters(err error) error {
	if errors.Is(err, storage.ErrOverflow) {
		return dErrors.New(dErrors.CodeValidation, "case storage total would overflow")
	}
	return translateNotFound(err, "case not found")
}
