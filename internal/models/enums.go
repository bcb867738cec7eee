package models

// Enum values mirror the database enum types (audit_plan_status,
// audit_session_status, audit_discrepancy_type, audit_resolution_status,
// audit_action_type, audit_action_status, audit_item_result_status,
// audit_scope_type).

type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanScheduled PlanStatus = "scheduled"
	PlanActive    PlanStatus = "active"
	PlanClosed    PlanStatus = "closed"
	PlanCanceled  PlanStatus = "canceled"
)

type ScopeType string

const (
	ScopeLocation   ScopeType = "location"
	ScopeDepartment ScopeType = "department"
	ScopeCustom     ScopeType = "custom"
)

type SessionStatus string

const (
	SessionDraft            SessionStatus = "draft"
	SessionInProgress       SessionStatus = "in_progress"
	SessionReconciling      SessionStatus = "reconciling"
	SessionAwaitingApproval SessionStatus = "awaiting_approval"
	SessionApproved         SessionStatus = "approved"
	SessionApplied          SessionStatus = "applied"
	SessionClosed           SessionStatus = "closed"
	SessionCanceled         SessionStatus = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionApplied, SessionClosed, SessionCanceled:
		return true
	}
	return false
}

type DiscrepancyType string

const (
	DiscrepancyMissing        DiscrepancyType = "missing"
	DiscrepancyMisplaced      DiscrepancyType = "misplaced"
	DiscrepancyUnexpected     DiscrepancyType = "unexpected"
	DiscrepancyDuplicate      DiscrepancyType = "duplicate"
	DiscrepancyUnknownBarcode DiscrepancyType = "unknown_barcode"
)

type ResolutionStatus string

const (
	ResolutionOpen     ResolutionStatus = "open"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionIgnored  ResolutionStatus = "ignored"
)

type ActionType string

const (
	ActionMove              ActionType = "move"
	ActionAssignResponsible ActionType = "assign_responsible"
	ActionClearResponsible  ActionType = "clear_responsible"
)

type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionSent    ActionStatus = "sent"
	ActionDone    ActionStatus = "done"
	ActionFailed  ActionStatus = "failed"
)

type ItemResultStatus string

const (
	ResultMissing      ItemResultStatus = "missing"
	ResultFound        ItemResultStatus = "found"
	ResultFoundInPlace ItemResultStatus = "found_in_place"
)
