// Package models holds the persisted entities of the inventory-audit core.
package models

import (
	"encoding/json"
	"time"
)

// Plan groups audit sessions under a single campaign.
type Plan struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	ScopeType    ScopeType       `json:"scope_type"`
	ScopePayload json.RawMessage `json:"scope_payload,omitempty"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Status       PlanStatus      `json:"status"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Session is one stocktake of one physical room.
type Session struct {
	ID                      int64         `json:"id"`
	PlanID                  *int64        `json:"plan_id,omitempty"`
	LocationID              int64         `json:"location_id"`
	Status                  SessionStatus `json:"status"`
	StartedBy               *int64        `json:"started_by,omitempty"`
	StartedAt               *time.Time    `json:"started_at,omitempty"`
	ClosedBy                *int64        `json:"closed_by,omitempty"`
	ClosedAt                *time.Time    `json:"closed_at,omitempty"`
	ApprovedBy              *int64        `json:"approved_by,omitempty"`
	ApprovedAt              *time.Time    `json:"approved_at,omitempty"`
	AppliedAt               *time.Time    `json:"applied_at,omitempty"`
	ExpectedSnapshotVersion *string       `json:"expected_snapshot_version,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

// ExpectedItem is one row of the immutable snapshot captured at session start.
type ExpectedItem struct {
	ID                    int64     `json:"id"`
	SessionID             int64     `json:"session_id"`
	ItemID                int64     `json:"item_id"`
	ExpectedLocationID    *int64    `json:"expected_location_id,omitempty"`
	ExpectedResponsibleID *int64    `json:"expected_responsible_id,omitempty"`
	BarcodeID             *int64    `json:"barcode_id,omitempty"`
	CapturedAt            time.Time `json:"captured_at"`
}

// Scan is one observation by an auditor. (session_id, client_scan_id) is
// unique and serves as the mobile retry idempotency key.
type Scan struct {
	ID              int64           `json:"id"`
	SessionID       int64           `json:"session_id"`
	ScannerUserID   int64           `json:"scanner_user_id"`
	ScanTime        time.Time       `json:"scan_time"`
	BarcodeValue    *string         `json:"barcode_value,omitempty"`
	ItemID          *int64          `json:"item_id,omitempty"`
	FoundLocationID int64           `json:"found_location_id"`
	Notes           *string         `json:"notes,omitempty"`
	PhotoURL        *string         `json:"photo_url,omitempty"`
	ClientScanID    string          `json:"client_scan_id"`
	Extra           json.RawMessage `json:"extra,omitempty"`
}

// ItemResult tracks the per-item outcome of a session. Exactly one row per
// (session, expected item); extra rows appear for unexpected scanned items.
type ItemResult struct {
	ID                 int64            `json:"id"`
	SessionID          int64            `json:"session_id"`
	ItemID             int64            `json:"item_id"`
	Status             ItemResultStatus `json:"status"`
	ExpectedLocationID *int64           `json:"expected_location_id,omitempty"`
	FoundLocationID    *int64           `json:"found_location_id,omitempty"`
	FirstFoundAt       *time.Time       `json:"first_found_at,omitempty"`
	LastScanAt         *time.Time       `json:"last_scan_at,omitempty"`
}

// Discrepancy is a classified mismatch between expected and observed.
// ResolutionPayload is opaque at this layer; the action builder interprets
// the "move" variant and preserves everything else verbatim.
type Discrepancy struct {
	ID                 int64            `json:"id"`
	SessionID          int64            `json:"session_id"`
	Type               DiscrepancyType  `json:"type"`
	ItemID             *int64           `json:"item_id,omitempty"`
	BarcodeValue       *string          `json:"barcode_value,omitempty"`
	ExpectedLocationID *int64           `json:"expected_location_id,omitempty"`
	FoundLocationID    *int64           `json:"found_location_id,omitempty"`
	ResolutionStatus   ResolutionStatus `json:"resolution_status"`
	ResolutionPayload  json.RawMessage  `json:"resolution_payload,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ActionPayload is the concrete shape of a move action. ResponsibleIDIsSet
// distinguishes "explicitly clear the responsible" (set, nil value) from
// "leave the responsible untouched" (unset); JSON alone cannot carry that
// difference once decoded into a typed struct.
type ActionPayload struct {
	ItemID             int64  `json:"item_id"`
	ToLocationID       int64  `json:"to_location_id"`
	ResponsibleIDIsSet bool   `json:"responsible_id_is_set"`
	ResponsibleID      *int64 `json:"responsible_id"`
}

// Action is an idempotent corrective mutation targeted at the inventory
// service, built from a resolved discrepancy.
type Action struct {
	ID             int64         `json:"id"`
	SessionID      int64         `json:"session_id"`
	ActionType     ActionType    `json:"action_type"`
	Payload        ActionPayload `json:"payload"`
	Status         ActionStatus  `json:"status"`
	IdempotencyKey string        `json:"idempotency_key"`
	LastError      *string       `json:"last_error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
