package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/assettrack/backend/internal/models"
)

const actionColumns = `id, session_id, action_type, payload, status,
	idempotency_key, last_error, created_at, updated_at`

// InsertAction persists an action; an idempotency_key collision maps to
// ErrDuplicate so re-invocation of the builder stays idempotent.
func (s queries) InsertAction(ctx context.Context, a *models.Action) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal action payload: %w", err)
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_actions (session_id, action_type, payload, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.SessionID, a.ActionType, payload, a.Status, a.IdempotencyKey)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s queries) UpdateActionStatus(ctx context.Context, id int64, status models.ActionStatus, lastError *string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE audit_actions SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		id, status, lastError)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s queries) ListActions(ctx context.Context, sessionID int64) ([]models.Action, error) {
	return s.listActions(ctx,
		`SELECT `+actionColumns+` FROM audit_actions WHERE session_id = $1 ORDER BY id`,
		sessionID)
}

func (s queries) ListActionsByStatus(ctx context.Context, sessionID int64, status models.ActionStatus) ([]models.Action, error) {
	return s.listActions(ctx,
		`SELECT `+actionColumns+` FROM audit_actions WHERE session_id = $1 AND status = $2 ORDER BY id`,
		sessionID, status)
}

func (s queries) listActions(ctx context.Context, query string, args ...interface{}) ([]models.Action, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Action
	for rows.Next() {
		var a models.Action
		var payload []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ActionType, &payload, &a.Status,
			&a.IdempotencyKey, &a.LastError, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &a.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal action %d payload: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
