package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

// CloseSession ends scanning and rebuilds the canonical discrepancy set.
// Two commits: the first stamps the close and parks the session in
// reconciling so no further scans land, the second replaces the preview
// discrepancies with the canonical set and opens the approval window.
func (s *Service) CloseSession(ctx context.Context, sessionID, closedBy int64) (*models.Session, error) {
	var sess *models.Session
	err := s.store.Tx(ctx, func(q store.Querier) error {
		cur, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return mapStoreErr(err, "session_not_found")
		}
		if cur.Status != models.SessionInProgress {
			return apperr.StateConflict("session_not_in_progress")
		}
		now := s.now()
		cur.Status = models.SessionReconciling
		cur.ClosedBy = &closedBy
		cur.ClosedAt = &now
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
	s.publishTransition(ctx, sess, "reconciling")

	err = s.store.Tx(ctx, func(q store.Querier) error {
		expected, err := q.ListExpectedItems(ctx, sessionID)
		if err != nil {
			return err
		}
		scans, err := q.ListScans(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := q.DeleteDiscrepancies(ctx, sessionID); err != nil {
			return err
		}
		now := s.now()
		for _, d := range Rebuild(sessionID, sess.LocationID, expected, scans, now) {
			row := d
			if err := q.InsertDiscrepancy(ctx, &row); err != nil {
				return err
			}
		}
		sess.Status = models.SessionAwaitingApproval
		sess.UpdatedAt = now
		return q.UpdateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, sess, "closed")
	s.notify(recipientIDs(sess.StartedBy, sess.ClosedBy),
		"task",
		"Stocktake awaiting approval",
		"Scanning has ended and the discrepancy report is ready for review.",
		sessionPayload(sess),
		"audit_session_closed",
		idemKey(sess.ID, "closed"))
	return sess, nil
}

// ApproveSession locks the discrepancy report. Refused while any
// discrepancy is still open.
func (s *Service) ApproveSession(ctx context.Context, sessionID, approvedBy int64) (*models.Session, error) {
	var sess *models.Session
	err := s.store.Tx(ctx, func(q store.Querier) error {
		cur, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return mapStoreErr(err, "session_not_found")
		}
		if cur.Status != models.SessionAwaitingApproval {
			return apperr.StateConflict("session_not_awaiting_approval")
		}
		open, err := q.CountOpenDiscrepancies(ctx, sessionID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperr.StateConflict("discrepancies_not_resolved")
		}
		now := s.now()
		cur.Status = models.SessionApproved
		cur.ApprovedBy = &approvedBy
		cur.ApprovedAt = &now
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
	s.publishTransition(ctx, sess, "approved")
	s.notify(recipientIDs(sess.StartedBy, sess.ClosedBy, sess.ApprovedBy),
		"info",
		"Stocktake approved",
		"The discrepancy report has been approved; corrective actions may now be built and applied.",
		sessionPayload(sess),
		"audit_session_approved",
		idemKey(sess.ID, "approved"))
	return sess, nil
}

// ResolutionInput carries a supervisor's verdict on one discrepancy.
type ResolutionInput struct {
	ResolutionStatus  models.ResolutionStatus `json:"resolution_status"`
	ResolutionPayload json.RawMessage         `json:"resolution_payload,omitempty"`
}

// ResolveDiscrepancy records the verdict. The payload is stored verbatim
// and only interpreted by the action builder; resolving has no side
// effects on existing actions.
func (s *Service) ResolveDiscrepancy(ctx context.Context, discrepancyID int64, in ResolutionInput) (*models.Discrepancy, error) {
	switch in.ResolutionStatus {
	case models.ResolutionOpen, models.ResolutionResolved, models.ResolutionIgnored:
	default:
		return nil, apperr.Validation("invalid_resolution_status")
	}
	d, err := s.store.GetDiscrepancy(ctx, discrepancyID)
	if err != nil {
		return nil, mapStoreErr(err, "discrepancy_not_found")
	}
	d.ResolutionStatus = in.ResolutionStatus
	if in.ResolutionPayload != nil {
		d.ResolutionPayload = in.ResolutionPayload
	}
	d.UpdatedAt = s.now()
	if err := s.store.UpdateDiscrepancy(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// moveResolution is the interpreted "move" resolution payload.
// responsibleSet distinguishes an explicit null (clear the responsible)
// from an absent key (leave it untouched).
type moveResolution struct {
	toLocationID   int64
	responsibleID  *int64
	responsibleSet bool
}

// parseMoveResolution interprets a stored resolution payload. Returns
// ok=false for anything that is not a well-formed move: missing action,
// missing or non-integer to_location_id, non-integer responsible_id.
func parseMoveResolution(raw json.RawMessage) (moveResolution, bool) {
	var mr moveResolution
	if len(raw) == 0 {
		return mr, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return mr, false
	}
	var action string
	if err := json.Unmarshal(fields["action"], &action); err != nil || action != "move" {
		return mr, false
	}
	to, ok := rawInt64(fields["to_location_id"])
	if !ok {
		return mr, false
	}
	mr.toLocationID = to
	if respRaw, present := fields["responsible_id"]; present {
		mr.responsibleSet = true
		if !bytes.Equal(bytes.TrimSpace(respRaw), []byte("null")) {
			resp, ok := rawInt64(respRaw)
			if !ok {
				return moveResolution{}, false
			}
			mr.responsibleID = &resp
		}
	}
	return mr, true
}

// rawInt64 decodes raw as an integral JSON number.
func rawInt64(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var num json.Number
	if err := dec.Decode(&num); err != nil {
		return 0, false
	}
	v, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

// actionIdempotencyKey renders the deterministic key for one move action.
func actionIdempotencyKey(sessionID, discrepancyID int64, mr moveResolution) string {
	resp := "none"
	if mr.responsibleID != nil {
		resp = strconv.FormatInt(*mr.responsibleID, 10)
	}
	return fmt.Sprintf("session:%d:discrepancy:%d:move:%d:%t:%s",
		sessionID, discrepancyID, mr.toLocationID, mr.responsibleSet, resp)
}

// BuildActions turns resolved move discrepancies into pending actions.
// Re-invocation is safe: the deterministic idempotency key makes repeats
// collide on the UNIQUE constraint and they are skipped.
func (s *Service) BuildActions(ctx context.Context, sessionID int64) ([]models.Action, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err, "session_not_found")
	}
	if sess.Status != models.SessionApproved {
		return nil, apperr.StateConflict("session_not_approved")
	}
	discrepancies, err := s.store.ListDiscrepancies(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var created []models.Action
	now := s.now()
	for _, d := range discrepancies {
		if d.ResolutionStatus != models.ResolutionResolved || d.ItemID == nil {
			continue
		}
		mr, ok := parseMoveResolution(d.ResolutionPayload)
		if !ok {
			continue
		}
		a := models.Action{
			SessionID:  sessionID,
			ActionType: models.ActionMove,
			Payload: models.ActionPayload{
				ItemID:             *d.ItemID,
				ToLocationID:       mr.toLocationID,
				ResponsibleIDIsSet: mr.responsibleSet,
				ResponsibleID:      mr.responsibleID,
			},
			Status:         models.ActionPending,
			IdempotencyKey: actionIdempotencyKey(sessionID, d.ID, mr),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := s.store.InsertAction(ctx, &a)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	return created, nil
}

// moveGroup batches pending actions that share a bulk-move target.
type moveGroup struct {
	to      int64
	respSet bool
	resp    int64
	hasResp bool
}

func (g moveGroup) sortKey() string {
	resp := "none"
	if g.hasResp {
		resp = strconv.FormatInt(g.resp, 10)
	}
	return fmt.Sprintf("%d:%t:%s", g.to, g.respSet, resp)
}

// ApplyResult summarises one apply pass.
type ApplyResult struct {
	Session *models.Session `json:"session"`
	Done    int             `json:"done"`
	Failed  int             `json:"failed"`
}

// ApplyActions pushes pending actions to the inventory service in bulk-move
// groups. Each group's outcome commits independently; a failed group marks
// its actions failed and the pass continues. The session transitions to
// applied only when every pending action ended done, otherwise it stays
// approved so the pass can be retried.
func (s *Service) ApplyActions(ctx context.Context, token string, sessionID int64) (*ApplyResult, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err, "session_not_found")
	}
	if sess.Status != models.SessionApproved {
		return nil, apperr.StateConflict("session_not_approved")
	}
	pending, err := s.store.ListActionsByStatus(ctx, sessionID, models.ActionPending)
	if err != nil {
		return nil, err
	}

	groups := make(map[moveGroup][]models.Action)
	for _, a := range pending {
		if a.ActionType != models.ActionMove || a.Payload.ItemID == 0 || a.Payload.ToLocationID == 0 {
			continue
		}
		g := moveGroup{to: a.Payload.ToLocationID, respSet: a.Payload.ResponsibleIDIsSet}
		if a.Payload.ResponsibleID != nil {
			g.hasResp = true
			g.resp = *a.Payload.ResponsibleID
		}
		groups[g] = append(groups[g], a)
	}

	keys := make([]moveGroup, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].sortKey() < keys[j].sortKey() })

	result := &ApplyResult{}
	anyFailed := false
	for _, g := range keys {
		actions := groups[g]
		itemIDs := make([]int64, 0, len(actions))
		for _, a := range actions {
			itemIDs = append(itemIDs, a.Payload.ItemID)
		}
		var resp *int64
		if g.hasResp {
			v := g.resp
			resp = &v
		}

		callErr := s.inventory.BulkMove(ctx, token, itemIDs, g.to, g.respSet, resp)

		status := models.ActionDone
		var lastError *string
		if callErr != nil {
			status = models.ActionFailed
			msg := applyErrorMessage(callErr)
			lastError = &msg
			anyFailed = true
			if s.metrics != nil {
				s.metrics.CollaboratorErrors.WithLabelValues("inventory").Inc()
			}
		}

		err := s.store.Tx(ctx, func(q store.Querier) error {
			for _, a := range actions {
				if err := q.UpdateActionStatus(ctx, a.ID, status, lastError); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.ActionsApplied.WithLabelValues(string(status)).Add(float64(len(actions)))
		}
		if callErr != nil {
			result.Failed += len(actions)
		} else {
			result.Done += len(actions)
		}
	}

	if anyFailed {
		result.Session = sess
		return result, nil
	}

	err = s.store.Tx(ctx, func(q store.Querier) error {
		cur, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return mapStoreErr(err, "session_not_found")
		}
		if cur.Status != models.SessionApproved {
			return apperr.StateConflict("session_not_approved")
		}
		now := s.now()
		cur.Status = models.SessionApplied
		cur.AppliedAt = &now
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
	result.Session = sess

	s.publishTransition(ctx, sess, "applied")
	s.notify(recipientIDs(sess.StartedBy, sess.ClosedBy, sess.ApprovedBy),
		"info",
		"Stocktake applied",
		"All corrective actions have been applied to the inventory.",
		sessionPayload(sess),
		"audit_session_applied",
		idemKey(sess.ID, "applied"))
	return result, nil
}

// applyErrorMessage keeps the stored last_error short and code-first.
func applyErrorMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Code
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return strings.TrimSpace(msg)
}

// recipientIDs collects the non-nil participant ids.
func recipientIDs(ids ...*int64) []int64 {
	var out []int64
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
