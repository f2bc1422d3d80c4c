// Package memory is the in-process storage backend. Transactions take an
// exclusive lock and work on a copy-on-write snapshot that replaces the live
// state only when the callback succeeds.
package memory

import (
	"context"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"

	"custodian/internal/domain"
	"custodian/internal/storage"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

type state struct {
	users       map[id.ActorID]domain.UserSummary
	cases       map[id.CaseID]domain.Case
	activeTasks map[id.CaseID]int64
	types       map[id.EvidenceTypeID]domain.EvidenceType
	fields      map[id.FieldDefinitionID]domain.FieldDefinition
	evidence    map[id.EvidenceID]domain.Evidence
	custody     map[id.EvidenceID][]domain.CustodyRecord
	caseActions map[id.CaseActionID]domain.CaseAction
	audit       []domain.AuditEntry
	templates   map[id.TemplateID]domain.QATemplate
	responses   map[id.ResponseID]domain.ChecklistResponse
}

func newState() *state {
	return &state{
		users:       make(map[id.ActorID]domain.UserSummary),
		cases:       make(map[id.CaseID]domain.Case),
		activeTasks: make(map[id.CaseID]int64),
		types:       make(map[id.EvidenceTypeID]domain.EvidenceType),
		fields:      make(map[id.FieldDefinitionID]domain.FieldDefinition),
		evidence:    make(map[id.EvidenceID]domain.Evidence),
		custody:     make(map[id.EvidenceID][]domain.CustodyRecord),
		caseActions: make(map[id.CaseActionID]domain.CaseAction),
		templates:   make(map[id.TemplateID]domain.QATemplate),
		responses:   make(map[id.ResponseID]domain.ChecklistResponse),
	}
}

// clone copies every map. Slices held as values are append-only or replaced
// wholesale, so sharing their backing arrays with the snapshot is safe.
func (st *state) clone() *state {
	return &state{
		users:       maps.Clone(st.users),
		cases:       maps.Clone(st.cases),
		activeTasks: maps.Clone(st.activeTasks),
		types:       maps.Clone(st.types),
		fields:      maps.Clone(st.fields),
		evidence:    maps.Clone(st.evidence),
		custody:     maps.Clone(st.custody),
		caseActions: maps.Clone(st.caseActions),
		audit:       st.audit[:len(st.audit):len(st.audit)],
		templates:   maps.Clone(st.templates),
		responses:   maps.Clone(st.responses),
	}
}

type txKey struct{}

// Store implements every store interface the services declare.
type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// RunInTx runs fn against a private snapshot and publishes it on success.
// Calls made with a ctx that already carries a transaction join it.
//
// The store lock is held until fn returns, so every store call inside fn must
// use the ctx fn receives. A call made with any other ctx blocks forever.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read(ctx context.Context) (*state, func()) {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return st, func() {}
	}
	s.mu.RLock()
	return s.st, s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) (*state, func()) {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return st, func() {}
	}
	s.mu.Lock()
	return s.st, s.mu.Unlock
}

// -----------------------------------------------------------------------------
// Users and cases
// -----------------------------------------------------------------------------

// PutUser registers display fields for an actor.
func (s *Store) PutUser(ctx context.Context, u domain.UserSummary) error {
	st, done := s.write(ctx)
	defer done()
	st.users[u.ID] = u
	return nil
}

func (st *state) actor(actorID id.ActorID) *domain.UserSummary {
	u, ok := st.users[actorID]
	if !ok {
		return nil
	}
	return &u
}

func (s *Store) CreateCase(ctx context.Context, c *domain.Case) error {
	st, done := s.write(ctx)
	defer done()
	if _, ok := st.cases[c.ID]; ok {
		return storage.ErrConflict
	}
	st.cases[c.ID] = *c
	return nil
}

func (s *Store) FindCase(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) (*domain.Case, error) {
	st, done := s.read(ctx)
	defer done()
	c, ok := st.cases[caseID]
	if !ok || c.OrganizationID != orgID {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// SetActiveTasks stands in for the task subsystem, which lives outside this module.
func (s *Store) SetActiveTasks(ctx context.Context, caseID id.CaseID, n int64) {
	st, done := s.write(ctx)
	defer done()
	st.activeTasks[caseID] = n
}

func (s *Store) AddEvidenceToCase(ctx context.Context, caseID id.CaseID, size uint64) error {
	st, done := s.write(ctx)
	defer done()
	c, ok := st.cases[caseID]
	if !ok {
		return storage.ErrNotFound
	}
	if c.StorageTotal > math.MaxUint64-size {
		return storage.ErrOverflow
	}
	c.EvidenceCount++
	c.StorageTotal += size
	st.cases[caseID] = c
	return nil
}

func (s *Store) RemoveEvidenceFromCase(ctx context.Context, caseID id.CaseID, size uint64) error {
	st, done := s.write(ctx)
	defer done()
	c, ok := st.cases[caseID]
	if !ok {
		return storage.ErrNotFound
	}
	if c.EvidenceCount > 0 {
		c.EvidenceCount--
	}
	if c.StorageTotal >= size {
		c.StorageTotal -= size
	} else {
		c.StorageTotal = 0
	}
	st.cases[caseID] = c
	return nil
}

// ComputeCaseAggregates derives the counters from the case's children.
func (s *Store) ComputeCaseAggregates(ctx context.Context, caseID id.CaseID) (domain.CaseAggregates, error) {
	st, done := s.read(ctx)
	defer done()
	if _, ok := st.cases[caseID]; !ok {
		return domain.CaseAggregates{}, storage.ErrNotFound
	}
	var agg domain.CaseAggregates
	for _, ev := range st.evidence {
		if ev.CaseID == caseID {
			agg.EvidenceCount++
			agg.StorageTotal += ev.Size
		}
	}
	agg.ActiveTasks = st.activeTasks[caseID]
	return agg, nil
}

func (s *Store) SetCaseAggregates(ctx context.Context, caseID id.CaseID, agg domain.CaseAggregates) error {
	st, done := s.write(ctx)
	defer done()
	c, ok := st.cases[caseID]
	if !ok {
		return storage.ErrNotFound
	}
	c.EvidenceCount = agg.EvidenceCount
	c.StorageTotal = agg.StorageTotal
	c.ActiveTasks = agg.ActiveTasks
	st.cases[caseID] = c
	return nil
}

// -----------------------------------------------------------------------------
// Evidence types and custom fields
// -----------------------------------------------------------------------------

func (s *Store) CreateEvidenceType(ctx context.Context, t *domain.EvidenceType) error {
	st, done := s.write(ctx)
	defer done()
	st.types[t.ID] = *t
	return nil
}

func (s *Store) FindEvidenceType(ctx context.Context, orgID id.OrganizationID, typeID id.EvidenceTypeID) (*domain.EvidenceType, error) {
	st, done := s.read(ctx)
	defer done()
	t, ok := st.types[typeID]
	if !ok || t.OrganizationID != orgID {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (s *Store) CreateFieldDefinition(ctx context.Context, f *domain.FieldDefinition) error {
	st, done := s.write(ctx)
	defer done()
	for _, existing := range st.fields {
		if existing.OrganizationID == f.OrganizationID && existing.Name == f.Name {
			return storage.ErrConflict
		}
	}
	st.fields[f.ID] = *f
	return nil
}

func (s *Store) ListFieldDefinitions(ctx context.Context, orgID id.OrganizationID) ([]domain.FieldDefinition, error) {
	st, done := s.read(ctx)
	defer done()
	out := make([]domain.FieldDefinition, 0)
	for _, f := range st.fields {
		if f.OrganizationID == orgID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// -----------------------------------------------------------------------------
// Evidence
// -----------------------------------------------------------------------------

func (st *state) hydrate(ev domain.Evidence) *domain.Evidence {
	ev.CustomFields = slices.Clone(ev.CustomFields)
	if t, ok := st.types[ev.TypeID]; ok {
		ev.Type = &t
	}
	ev.Custody = nil
	return &ev
}

func (s *Store) CreateEvidence(ctx context.Context, ev *domain.Evidence) error {
	st, done := s.write(ctx)
	defer done()
	for _, existing := range st.evidence {
		if existing.OrganizationID == ev.OrganizationID && existing.Number == ev.Number {
			return storage.ErrConflict
		}
	}
	stored := *ev
	stored.Type = nil
	stored.Custody = nil
	stored.CustomFields = slices.Clone(ev.CustomFields)
	st.evidence[ev.ID] = stored
	return nil
}

func (s *Store) FindEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	st, done := s.read(ctx)
	defer done()
	ev, ok := st.evidence[evidenceID]
	if !ok || ev.OrganizationID != orgID {
		return nil, storage.ErrNotFound
	}
	return st.hydrate(ev), nil
}

// LockEvidence is FindEvidence under the transaction's exclusive lock.
func (s *Store) LockEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) (*domain.Evidence, error) {
	return s.FindEvidence(ctx, orgID, evidenceID)
}

func (s *Store) ListEvidence(ctx context.Context, orgID id.OrganizationID, caseID id.CaseID) ([]domain.Evidence, error) {
	st, done := s.read(ctx)
	defer done()
	out := make([]domain.Evidence, 0)
	for _, ev := range st.evidence {
		if ev.OrganizationID == orgID && ev.CaseID == caseID {
			out = append(out, *st.hydrate(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateEvidence(ctx context.Context, ev *domain.Evidence) error {
	st, done := s.write(ctx)
	defer done()
	existing, ok := st.evidence[ev.ID]
	if !ok || existing.OrganizationID != ev.OrganizationID {
		return storage.ErrNotFound
	}
	for otherID, other := range st.evidence {
		if otherID != ev.ID && other.OrganizationID == ev.OrganizationID && other.Number == ev.Number {
			return storage.ErrConflict
		}
	}
	stored := *ev
	stored.Type = nil
	stored.Custody = nil
	stored.CustomFields = slices.Clone(ev.CustomFields)
	st.evidence[ev.ID] = stored
	return nil
}

// DeleteEvidence removes the item and its ledger.
func (s *Store) DeleteEvidence(ctx context.Context, orgID id.OrganizationID, evidenceID id.EvidenceID) error {
	st, done := s.write(ctx)
	defer done()
	ev, ok := st.evidence[evidenceID]
	if !ok || ev.OrganizationID != orgID {
		return storage.ErrNotFound
	}
	delete(st.evidence, evidenceID)
	delete(st.custody, evidenceID)
	return nil
}

// -----------------------------------------------------------------------------
// Custody ledger
// -----------------------------------------------------------------------------

func (s *Store) LastCustodyRecord(ctx context.Context, evidenceID id.EvidenceID) (*domain.CustodyRecord, error) {
	st, done := s.read(ctx)
	defer done()
	records := st.custody[evidenceID]
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	rec := records[len(records)-1]
	return &rec, nil
}

// AppendCustodyRecord rejects a sequence that does not extend the ledger.
func (s *Store) AppendCustodyRecord(ctx context.Context, rec *domain.CustodyRecord) error {
	st, done := s.write(ctx)
	defer done()
	if _, ok := st.evidence[rec.EvidenceID]; !ok {
		return storage.ErrNotFound
	}
	records := st.custody[rec.EvidenceID]
	if rec.Sequence != int64(len(records))+1 {
		return storage.ErrConflict
	}
	stored := *rec
	stored.Actor = nil
	stored.Integrity = domain.IntegrityUnchecked
	st.custody[rec.EvidenceID] = append(records, stored)
	return nil
}

func (s *Store) ListCustodyRecords(ctx context.Context, evidenceID id.EvidenceID) ([]domain.CustodyRecord, error) {
	st, done := s.read(ctx)
	defer done()
	records := st.custody[evidenceID]
	out := make([]domain.CustodyRecord, len(records))
	for i, rec := range records {
		rec.Actor = st.actor(rec.ActorID)
		out[i] = rec
	}
	return out, nil
}

func (s *Store) FindCustodyRecord(ctx context.Context, evidenceID id.EvidenceID, recordID id.CustodyRecordID) (*domain.CustodyRecord, error) {
	st, done := s.read(ctx)
	defer done()
	for _, rec := range st.custody[evidenceID] {
		if rec.ID == recordID {
			rec.Actor = st.actor(rec.ActorID)
			return &rec, nil
		}
	}
	return nil, storage.ErrNotFound
}

// TamperCustodyRecord overwrites a stored record in place. Tests use it to
// simulate out-of-band edits that bypass the ledger.
func (s *Store) TamperCustodyRecord(ctx context.Context, rec domain.CustodyRecord) error {
	st, done := s.write(ctx)
	defer done()
	records := slices.Clone(st.custody[rec.EvidenceID])
	for i := range records {
		if records[i].ID == rec.ID {
			rec.Actor = nil
			records[i] = rec
			st.custody[rec.EvidenceID] = records
			return nil
		}
	}
	return storage.ErrNotFound
}

// -----------------------------------------------------------------------------
// Case actions
// -----------------------------------------------------------------------------

func (s *Store) ListCaseActions(ctx context.Context, caseID id.CaseID) ([]domain.CaseAction, error) {
	st, done := s.read(ctx)
	defer done()
	out := make([]domain.CaseAction, 0)
	for _, a := range st.caseActions {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CreateCaseAction(ctx context.Context, a *domain.CaseAction) error {
	st, done := s.write(ctx)
	defer done()
	for _, existing := range st.caseActions {
		if existing.CaseID == a.CaseID && existing.Name == a.Name {
			return storage.ErrConflict
		}
	}
	st.caseActions[a.ID] = *a
	return nil
}

func (s *Store) FindCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) (*domain.CaseAction, error) {
	st, done := s.read(ctx)
	defer done()
	a, ok := st.caseActions[actionID]
	if !ok || a.CaseID != caseID {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *Store) DeleteCaseAction(ctx context.Context, caseID id.CaseID, actionID id.CaseActionID) error {
	st, done := s.write(ctx)
	defer done()
	a, ok := st.caseActions[actionID]
	if !ok || a.CaseID != caseID {
		return storage.ErrNotFound
	}
	delete(st.caseActions, actionID)
	return nil
}

// -----------------------------------------------------------------------------
// Audit trail
// -----------------------------------------------------------------------------

// AppendAudit assigns the next sequence number and stores the entry.
func (s *Store) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	st, done := s.write(ctx)
	defer done()
	for _, existing := range st.audit {
		if existing.ID == e.ID {
			return storage.ErrConflict
		}
	}
	e.Sequence = int64(len(st.audit)) + 1
	stored := *e
	stored.Actor = nil
	stored.Details = maps.Clone(e.Details)
	st.audit = append(st.audit, stored)
	return nil
}

// QueryAudit returns one page in reverse sequence order plus the filtered total.
func (s *Store) QueryAudit(ctx context.Context, orgID id.OrganizationID, filter domain.AuditFilter, offset, limit int) ([]domain.AuditEntry, int, error) {
	st, done := s.read(ctx)
	defer done()
	matched := make([]domain.AuditEntry, 0)
	for i := len(st.audit) - 1; i >= 0; i-- {
		e := st.audit[i]
		if e.OrganizationID != orgID {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.CaseID != nil && (e.CaseID == nil || *e.CaseID != *filter.CaseID) {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	if offset >= total {
		return []domain.AuditEntry{}, total, nil
	}
	end := min(offset+limit, total)
	page := make([]domain.AuditEntry, 0, end-offset)
	for _, e := range matched[offset:end] {
		e.Actor = st.actor(e.ActorID)
		e.Details = maps.Clone(e.Details)
		page = append(page, e)
	}
	return page, total, nil
}

// -----------------------------------------------------------------------------
// QA checklist
// -----------------------------------------------------------------------------

func (s *Store) CreateTemplate(ctx context.Context, t *domain.QATemplate) error {
	st, done := s.write(ctx)
	defer done()
	stored := *t
	stored.Items = slices.Clone(t.Items)
	st.templates[t.ID] = stored
	return nil
}

func (s *Store) FindTemplate(ctx context.Context, orgID id.OrganizationID, templateID id.TemplateID) (*domain.QATemplate, error) {
	st, done := s.read(ctx)
	defer done()
	t, ok := st.templates[templateID]
	if !ok || t.OrganizationID != orgID {
		return nil, storage.ErrNotFound
	}
	t.Items = slices.Clone(t.Items)
	sort.SliceStable(t.Items, func(i, j int) bool { return t.Items[i].Order < t.Items[j].Order })
	return &t, nil
}

func (s *Store) CreateResponses(ctx context.Context, responses []domain.ChecklistResponse) error {
	st, done := s.write(ctx)
	defer done()
	for _, r := range responses {
		r.Item = nil
		st.responses[r.ID] = r
	}
	return nil
}

func (s *Store) DeleteResponsesForItems(ctx context.Context, caseID id.CaseID, itemIDs []id.ChecklistItemID) (int, error) {
	st, done := s.write(ctx)
	defer done()
	deleted := 0
	for respID, r := range st.responses {
		if r.CaseID == caseID && slices.Contains(itemIDs, r.ItemID) {
			delete(st.responses, respID)
			deleted++
		}
	}
	return deleted, nil
}

func (st *state) item(itemID id.ChecklistItemID) *domain.ChecklistItem {
	for _, t := range st.templates {
		for _, it := range t.Items {
			if it.ID == itemID {
				return &it
			}
		}
	}
	return nil
}

func (s *Store) FindResponse(ctx context.Context, caseID id.CaseID, responseID id.ResponseID) (*domain.ChecklistResponse, error) {
	st, done := s.read(ctx)
	defer done()
	r, ok := st.responses[responseID]
	if !ok || r.CaseID != caseID {
		return nil, storage.ErrNotFound
	}
	r.Item = st.item(r.ItemID)
	return &r, nil
}

func (s *Store) UpdateResponse(ctx context.Context, r *domain.ChecklistResponse) error {
	st, done := s.write(ctx)
	defer done()
	existing, ok := st.responses[r.ID]
	if !ok || existing.CaseID != r.CaseID {
		return storage.ErrNotFound
	}
	stored := *r
	stored.Item = nil
	st.responses[r.ID] = stored
	return nil
}

// ListResponses orders by checklist item order, then creation time.
func (s *Store) ListResponses(ctx context.Context, caseID id.CaseID) ([]domain.ChecklistResponse, error) {
	st, done := s.read(ctx)
	defer done()
	out := make([]domain.ChecklistResponse, 0)
	for _, r := range st.responses {
		if r.CaseID == caseID {
			r.Item = st.item(r.ItemID)
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := itemOrder(out[i]), itemOrder(out[j])
		if oi != oj {
			return oi < oj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func itemOrder(r domain.ChecklistResponse) int {
	if r.Item == nil {
		return 0
	}
	return r.Item.Order
}
