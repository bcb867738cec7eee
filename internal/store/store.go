// Package store persists the audit core's entities in Postgres. The service
// layer consumes the Querier/Store interfaces so tests can substitute an
// in-memory fake.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/assettrack/backend/internal/models"
)

// ErrDuplicate is returned when an insert collides with a UNIQUE constraint
// (client_scan_id, action idempotency_key).
var ErrDuplicate = errors.New("duplicate row")

// ErrNotFound is returned by single-row getters.
var ErrNotFound = errors.New("row not found")

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	LocationID *int64
	PlanID     *int64
	Status     *models.SessionStatus
	Limit      int
	Offset     int
}

// DiscrepancyKey identifies the open-discrepancy upsert target used by the
// incremental classifier.
type DiscrepancyKey struct {
	SessionID    int64
	Type         models.DiscrepancyType
	ItemID       *int64
	BarcodeValue *string
}

// ResultCounts aggregates ItemResult rows by status per session.
type ResultCounts map[int64]map[models.ItemResultStatus]int

// DiscrepancyCountKey keys the per-session discrepancy aggregate.
type DiscrepancyCountKey struct {
	Type       models.DiscrepancyType
	Resolution models.ResolutionStatus
}

// DiscrepancyCounts aggregates Discrepancy rows per session.
type DiscrepancyCounts map[int64]map[DiscrepancyCountKey]int

// Querier is the set of data operations the audit core needs. All methods
// observe the transaction they are called within when obtained from Tx.
type Querier interface {
	// Plans
	CreatePlan(ctx context.Context, p *models.Plan) error
	UpdatePlan(ctx context.Context, p *models.Plan) error
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	ListPlans(ctx context.Context, limit, offset int) ([]models.Plan, error)

	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	UpdateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, error)
	ListSessionsByPlan(ctx context.Context, planID int64) ([]models.Session, error)

	// Expected snapshot
	DeleteExpectedItems(ctx context.Context, sessionID int64) error
	InsertExpectedItem(ctx context.Context, e *models.ExpectedItem) error
	ListExpectedItems(ctx context.Context, sessionID int64) ([]models.ExpectedItem, error)
	GetExpectedItem(ctx context.Context, sessionID, itemID int64) (*models.ExpectedItem, error)

	// Item results
	DeleteItemResults(ctx context.Context, sessionID int64) error
	InsertItemResult(ctx context.Context, r *models.ItemResult) error
	UpdateItemResult(ctx context.Context, r *models.ItemResult) error
	GetItemResult(ctx context.Context, sessionID, itemID int64) (*models.ItemResult, error)
	ListItemResults(ctx context.Context, sessionID int64) ([]models.ItemResult, error)

	// Scans
	InsertScan(ctx context.Context, s *models.Scan) error
	GetScanByClientID(ctx context.Context, sessionID int64, clientScanID string) (*models.Scan, error)
	ListScans(ctx context.Context, sessionID int64) ([]models.Scan, error)

	// Discrepancies
	InsertDiscrepancy(ctx context.Context, d *models.Discrepancy) error
	UpdateDiscrepancy(ctx context.Context, d *models.Discrepancy) error
	GetDiscrepancy(ctx context.Context, id int64) (*models.Discrepancy, error)
	FindOpenDiscrepancy(ctx context.Context, key DiscrepancyKey) (*models.Discrepancy, error)
	DeleteDiscrepancies(ctx context.Context, sessionID int64) error
	ListDiscrepancies(ctx context.Context, sessionID int64) ([]models.Discrepancy, error)
	CountOpenDiscrepancies(ctx context.Context, sessionID int64) (int, error)

	// Actions
	InsertAction(ctx context.Context, a *models.Action) error
	UpdateActionStatus(ctx context.Context, id int64, status models.ActionStatus, lastError *string) error
	ListActions(ctx context.Context, sessionID int64) ([]models.Action, error)
	ListActionsByStatus(ctx context.Context, sessionID int64, status models.ActionStatus) ([]models.Action, error)

	// Report aggregates
	ItemResultCounts(ctx context.Context, sessionIDs []int64) (ResultCounts, error)
	ScanCounts(ctx context.Context, sessionIDs []int64) (map[int64]int, error)
	CountDiscrepancies(ctx context.Context, sessionIDs []int64) (DiscrepancyCounts, error)
}

// Store adds transaction scoping on top of Querier. Operations invoked on
// the Store itself auto-commit; Tx runs fn inside a single transaction and
// rolls back when fn returns an error.
type Store interface {
	Querier
	Tx(ctx context.Context, fn func(Querier) error) error
}

// Now returns a UTC wall-clock timestamp; kept here so stores and services
// stamp rows consistently.
func Now() time.Time { return time.Now().UTC() }
