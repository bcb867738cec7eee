package audit

import (
	"context"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"

	"github.com/google/uuid"
)

// SessionInput carries the writable fields for session creation.
type SessionInput struct {
	PlanID     *int64 `json:"plan_id,omitempty"`
	LocationID int64  `json:"location_id"`
}

// CreateSession stores a new draft session after the caller's room access
// has been verified.
func (s *Service) CreateSession(ctx context.Context, token string, in SessionInput) (*models.Session, error) {
	if in.LocationID <= 0 {
		return nil, apperr.Validation("location_id_required")
	}
	if err := s.location.AssertRoomAccess(ctx, token, in.LocationID); err != nil {
		return nil, err
	}
	now := s.now()
	sess := &models.Session{
		PlanID:     in.PlanID,
		LocationID: in.LocationID,
		Status:     models.SessionDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession fetches one session.
func (s *Service) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "session_not_found")
	}
	return sess, nil
}

// ListSessions pages over sessions with optional filters.
func (s *Service) ListSessions(ctx context.Context, f store.SessionFilter) ([]models.Session, error) {
	if f.Status != nil && !validSessionStatus(*f.Status) {
		return nil, apperr.Validation("invalid_session_status")
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return s.store.ListSessions(ctx, f)
}

func validSessionStatus(st models.SessionStatus) bool {
	switch st {
	case models.SessionDraft, models.SessionInProgress, models.SessionReconciling,
		models.SessionAwaitingApproval, models.SessionApproved, models.SessionApplied,
		models.SessionClosed, models.SessionCanceled:
		return true
	}
	return false
}

// StartSession snapshots the room's current inventory and moves the session
// from draft to in_progress. The snapshot fetch runs outside the
// transaction; the status gate is re-checked inside it so two concurrent
// starts cannot both seed the snapshot.
func (s *Service) StartSession(ctx context.Context, token string, sessionID, startedBy int64) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err, "session_not_found")
	}
	if sess.Status != models.SessionDraft {
		return nil, apperr.StateConflict("session_not_draft")
	}
	if err := s.location.AssertRoomAccess(ctx, token, sess.LocationID); err != nil {
		return nil, err
	}

	items, err := s.inventory.ListItemsByRoom(ctx, token, sess.LocationID)
	if err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(q store.Querier) error {
		cur, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return mapStoreErr(err, "session_not_found")
		}
		if cur.Status != models.SessionDraft {
			return apperr.StateConflict("session_not_draft")
		}
		if err := q.DeleteExpectedItems(ctx, sessionID); err != nil {
			return err
		}
		if err := q.DeleteItemResults(ctx, sessionID); err != nil {
			return err
		}

		now := s.now()
		for _, it := range items {
			if it.ID == nil {
				continue
			}
			exp := &models.ExpectedItem{
				SessionID:             sessionID,
				ItemID:                *it.ID,
				ExpectedLocationID:    it.LocationID,
				ExpectedResponsibleID: it.ResponsibleID,
				BarcodeID:             it.BarcodeID,
				CapturedAt:            now,
			}
			if err := q.InsertExpectedItem(ctx, exp); err != nil {
				return err
			}
			res := &models.ItemResult{
				SessionID:          sessionID,
				ItemID:             *it.ID,
				Status:             models.ResultMissing,
				ExpectedLocationID: it.LocationID,
			}
			if err := q.InsertItemResult(ctx, res); err != nil {
				return err
			}
		}

		version := uuid.NewString()
		cur.Status = models.SessionInProgress
		cur.StartedBy = &startedBy
		cur.StartedAt = &now
		cur.ExpectedSnapshotVersion = &version
		cur.UpdatedAt = now
		if err := q.UpdateSession(ctx, cur); err != nil {
			return err
		}
		sess = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, sess, "started")
	s.notify([]int64{startedBy},
		"task",
		"Stocktake started",
		"The stocktake session has started; the expected set has been captured.",
		sessionPayload(sess),
		"audit_session_started",
		idemKey(sess.ID, "started"))
	return sess, nil
}

// CancelSession aborts a session from any non-terminal state.
func (s *Service) CancelSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	var sess *models.Session
	err := s.store.Tx(ctx, func(q store.Querier) error {
		cur, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return mapStoreErr(err, "session_not_found")
		}
		if cur.Status.Terminal() {
			return apperr.StateConflict("session_already_finished")
		}
		cur.Status = models.SessionCanceled
		cur.UpdatedAt = s.now()
		if err := q.UpdateSession(ctx, cur); err != nil {
			return err
		}
		sess = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, sess, "canceled")
	return sess, nil
}

// ListExpectedItems returns the session's snapshot.
func (s *Service) ListExpectedItems(ctx context.Context, sessionID int64) ([]models.ExpectedItem, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListExpectedItems(ctx, sessionID)
}

// ListItemResults returns the session's per-item outcomes.
func (s *Service) ListItemResults(ctx context.Context, sessionID int64) ([]models.ItemResult, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListItemResults(ctx, sessionID)
}

// ListScans returns the session's scan log.
func (s *Service) ListScans(ctx context.Context, sessionID int64) ([]models.Scan, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListScans(ctx, sessionID)
}

// ListDiscrepancies returns the session's current discrepancy set.
func (s *Service) ListDiscrepancies(ctx context.Context, sessionID int64) ([]models.Discrepancy, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListDiscrepancies(ctx, sessionID)
}

// ListActions returns the session's corrective actions.
func (s *Service) ListActions(ctx context.Context, sessionID int64) ([]models.Action, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListActions(ctx, sessionID)
}
