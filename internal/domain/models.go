package domain

import (
	"maps"
	"time"
)

// Section is one of the business domains that must sign off on a product
// before launch. The set is closed; adding a section is a code change.
type Section string

const (
	SectionMarketing Section = "marketing"
	SectionFinance   Section = "finance"
	SectionLegal     Section = "legal"
	SectionSalesOps  Section = "salesops"
	SectionContracts Section = "contracts"
)

// AllSections returns every section in a fixed order.
func AllSections() []Section {
	return []Section{SectionMarketing, SectionFinance, SectionLegal, SectionSalesOps, SectionContracts}
}

func ParseSection(raw string) (Section, error) {
	switch s := Section(raw); s {
	case SectionMarketing, SectionFinance, SectionLegal, SectionSalesOps, SectionContracts:
		return s, nil
	default:
		return "", ErrInvalidInput
	}
}

// Persisted attribute names for one section. Other services read the saved
// record directly, so these names are part of the contract and are defined
// only here.
func (s Section) ApprovedField() string   { return string(s) + "_approved" }
func (s Section) ApprovedByField() string { return string(s) + "_approved_by" }
func (s Section) ApprovedAtField() string { return string(s) + "_approved_at" }

// Status is the product lifecycle status. This subsystem only ever performs
// the draft -> active transition; the remaining states exist so saved records
// round-trip.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusArchived   Status = "archived"
)

// Role is a named capability grant supplied by the identity provider.
type Role string

// Identity is the authenticated actor performing an action. The role set is
// read-only here; it was resolved and validated upstream.
type Identity struct {
	ID    string `json:"id"`
	Roles []Role `json:"roles"`
}

func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ApprovalRecord is the sign-off state of one section. Zero values of
// ApprovedBy and ApprovedAt stand for null: the three fields are set and
// cleared together, never partially.
type ApprovalRecord struct {
	Approved   bool      `json:"approved"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// Consistent reports whether the record satisfies the all-or-nothing rule.
func (r ApprovalRecord) Consistent() bool {
	if r.Approved {
		return r.ApprovedBy != "" && !r.ApprovedAt.IsZero()
	}
	return r.ApprovedBy == "" && r.ApprovedAt.IsZero()
}

// ProductApprovalState is the approval aggregate for one product: every
// section's record plus the lifecycle status and launch metadata. Version is
// the optimistic-concurrency counter checked by the persistence layer.
//
// Transitions are pure: they return a new value and never mutate the
// receiver, which makes controller-level rollback a matter of dropping the
// candidate.
type ProductApprovalState struct {
	ProductID  string                     `json:"product_id"`
	Status     Status                     `json:"status"`
	Approvals  map[Section]ApprovalRecord `json:"approvals"`
	LaunchedBy string                     `json:"launched_by"`
	LaunchedAt time.Time                  `json:"launched_at"`
	Version    int64                      `json:"version"`
}

// NewProductApprovalState returns the initial state for a product entering
// draft: all sections unapproved.
func NewProductApprovalState(productID string) ProductApprovalState {
	approvals := make(map[Section]ApprovalRecord, len(AllSections()))
	for _, section := range AllSections() {
		approvals[section] = ApprovalRecord{}
	}
	return ProductApprovalState{ProductID: productID, Status: StatusDraft, Approvals: approvals}
}

// Clone returns a deep copy; the approvals map is never shared between two
// state values.
func (s ProductApprovalState) Clone() ProductApprovalState {
	out := s
	out.Approvals = maps.Clone(s.Approvals)
	return out
}

func (s ProductApprovalState) Record(section Section) ApprovalRecord {
	return s.Approvals[section]
}

// Approve stamps the section with the approver and time. Approving an
// already-approved section is a no-op returning the same state; the existing
// stamp is never overwritten.
func (s ProductApprovalState) Approve(section Section, approver string, now time.Time) ProductApprovalState {
	if s.Approvals[section].Approved {
		return s
	}
	out := s.Clone()
	out.Approvals[section] = ApprovalRecord{Approved: true, ApprovedBy: approver, ApprovedAt: now}
	return out
}

// Revoke clears the section's three fields together. Revoking an unapproved
// section is a no-op. Revocation never touches Status: undoing a launch is a
// separate, explicit transition this subsystem does not define.
func (s ProductApprovalState) Revoke(section Section) ProductApprovalState {
	if !s.Approvals[section].Approved {
		return s
	}
	out := s.Clone()
	out.Approvals[section] = ApprovalRecord{}
	return out
}

func (s ProductApprovalState) IsFullyApproved() bool {
	for _, section := range AllSections() {
		if !s.Approvals[section].Approved {
			return false
		}
	}
	return true
}

// ReadyToLaunch reports whether the state side of the launch guard holds; the
// actor side is the authorizer's concern.
func (s ProductApprovalState) ReadyToLaunch() bool {
	return s.Status == StatusDraft && s.IsFullyApproved()
}

// Launch performs the one-way draft -> active transition. There is no
// unlaunch.
func (s ProductApprovalState) Launch(launcher string, now time.Time) (ProductApprovalState, error) {
	if !s.ReadyToLaunch() {
		return s, ErrInvalidTransition
	}
	out := s.Clone()
	out.Status = StatusActive
	out.LaunchedBy = launcher
	out.LaunchedAt = now
	return out, nil
}

// AuditAction names a recorded workflow action.
type AuditAction string

const (
	AuditActionApprove AuditAction = "approve"
	AuditActionRevoke  AuditAction = "revoke"
	AuditActionLaunch  AuditAction = "launch"
)

// AuditEntry is one committed workflow action. Section is empty for launch
// entries.
type AuditEntry struct {
	ID        string      `json:"id"`
	ProductID string      `json:"product_id"`
	Actor     string      `json:"actor"`
	Action    AuditAction `json:"action"`
	Section   Section     `json:"section,omitempty"`
	At        time.Time   `json:"at"`
}
