package domain

import (
	"strings"
	"time"

	"custodian/internal/signer"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

// Status is the physical custody state displayed for an evidence item.
type Status string

const (
	StatusInCustody   Status = "In Custody"
	StatusCheckedOut  Status = "Checked Out"
	StatusTransferred Status = "Transferred"
)

// ActionKind enumerates the fixed custody vocabulary plus a custom variant.
type ActionKind int

const (
	ActionCustom ActionKind = iota
	ActionCreated
	ActionUpdated
	ActionCheckedOut
	ActionCheckedIn
	ActionTransferred
	ActionExamined
	ActionAnalyzed
)

var fixedActionNames = map[ActionKind]string{
	ActionCreated:     "Created",
	ActionUpdated:     "Updated",
	ActionCheckedOut:  "CheckedOut",
	ActionCheckedIn:   "CheckedIn",
	ActionTransferred: "Transferred",
	ActionExamined:    "Examined",
	ActionAnalyzed:    "Analyzed",
}

// statusTransitions is the canonical action → status mapping. Actions absent
// from it append a record without moving the evidence. Created is absent on
// purpose: intake sets InitialStatus, and a later Created record must not
// pull a checked-out item back into custody.
var statusTransitions = map[ActionKind]Status{
	ActionCheckedOut:  StatusCheckedOut,
	ActionCheckedIn:   StatusInCustody,
	ActionTransferred: StatusTransferred,
}

// Action is a custody action: one of the fixed kinds, or a custom name drawn
// from the owning case's configured list.
//
// Construct via ParseAction at trust boundaries; the zero value is invalid.
type Action struct {
	kind   ActionKind
	custom string
}

// Fixed returns the Action for a fixed kind.
func Fixed(kind ActionKind) Action {
	return Action{kind: kind}
}

// FixedActions lists the fixed vocabulary in display order.
func FixedActions() []Action {
	return []Action{
		Fixed(ActionCreated), Fixed(ActionCheckedOut), Fixed(ActionCheckedIn),
		Fixed(ActionTransferred), Fixed(ActionExamined), Fixed(ActionAnalyzed), Fixed(ActionUpdated),
	}
}

// ParseAction resolves a requested action name against the fixed vocabulary
// and the case's custom actions.
func ParseAction(name string, caseActions []CaseAction) (Action, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Action{}, dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if kind, ok := fixedKindByName(name); ok {
		return Fixed(kind), nil
	}
	for _, ca := range caseActions {
		if ca.Name == name {
			return Action{kind: ActionCustom, custom: name}, nil
		}
	}
	return Action{}, dErrors.New(dErrors.CodeValidation, "unknown custody action: "+name)
}

func fixedKindByName(name string) (ActionKind, bool) {
	for kind, n := range fixedActionNames {
		if n == name {
			return kind, true
		}
	}
	return ActionCustom, false
}

// IsFixedActionName reports whether name collides with the fixed vocabulary.
func IsFixedActionName(name string) bool {
	_, ok := fixedKindByName(strings.TrimSpace(name))
	return ok
}

func (a Action) Kind() ActionKind { return a.kind }

func (a Action) IsCustom() bool { return a.kind == ActionCustom }

func (a Action) IsZero() bool { return a.kind == ActionCustom && a.custom == "" }

// Name is the string persisted on the custody record.
func (a Action) Name() string {
	if a.kind == ActionCustom {
		return a.custom
	}
	return fixedActionNames[a.kind]
}

func (a Action) String() string { return a.Name() }

// Transition returns the status the action moves evidence into, if any.
func (a Action) Transition() (Status, bool) {
	s, ok := statusTransitions[a.kind]
	return s, ok
}

// ActionFromRecord rebuilds an Action from a persisted name. Custom names are
// kept as-is: history is decoupled from the case action definitions.
func ActionFromRecord(name string) Action {
	if kind, ok := fixedKindByName(name); ok {
		return Fixed(kind)
	}
	return Action{kind: ActionCustom, custom: name}
}

// IntegrityStatus is the result of verifying a stored record's signature.
type IntegrityStatus string

const (
	IntegrityUnchecked IntegrityStatus = ""
	IntegrityVerified  IntegrityStatus = "verified"
	IntegrityFailed    IntegrityStatus = "failed"
)

// CustodyRecord is one append-only entry in an evidence item's ledger.
// Sequence is 1-based and strictly increasing per evidence.
type CustodyRecord struct {
	ID            id.CustodyRecordID
	EvidenceID    id.EvidenceID
	Sequence      int64
	ActorID       id.ActorID
	Actor         *UserSummary
	Action        string
	Reason        string
	Location      string
	ChangesDigest string
	Signature     string
	CreatedAt     time.Time

	Integrity IntegrityStatus
}

// Payload rebuilds the signed content from stored fields.
func (r CustodyRecord) Payload() signer.Payload {
	return signer.Payload{
		EvidenceID:    r.EvidenceID.String(),
		Sequence:      r.Sequence,
		ActorID:       r.ActorID.String(),
		Action:        r.Action,
		Reason:        r.Reason,
		Location:      r.Location,
		Timestamp:     signer.Timestamp(r.CreatedAt),
		ChangesDigest: r.ChangesDigest,
	}
}

// InitialStatus is the status every evidence item is registered with.
const InitialStatus = StatusInCustody

// DeriveStatus folds a ledger (in sequence order) into the status it implies:
// InitialStatus, moved only by transitioning actions. The second return is
// false for an empty ledger.
func DeriveStatus(records []CustodyRecord) (Status, bool) {
	if len(records) == 0 {
		return "", false
	}
	status := InitialStatus
	for _, r := range records {
		if s, ok := ActionFromRecord(r.Action).Transition(); ok {
			status = s
		}
	}
	return status, true
}

// CaseAction is a per-case custody action definition. Order is display-only.
type CaseAction struct {
	ID          id.CaseActionID
	CaseID      id.CaseID
	Name        string
	Description string
	IsDefault   bool
	Order       int
	CreatedAt   time.Time
}

// UserSummary carries the actor display fields joined onto ledgers and audit entries.
type UserSummary struct {
	ID    id.ActorID
	Name  string
	Email string
}
