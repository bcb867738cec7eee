package store

import (
	"context"
	"fmt"

	"github.com/assettrack/backend/internal/models"
)

const sessionColumns = `id, plan_id, location_id, status, started_by, started_at,
	closed_by, closed_at, approved_by, approved_at, applied_at,
	expected_snapshot_version, created_at, updated_at`

func (s queries) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.Status == "" {
		sess.Status = models.SessionDraft
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_sessions (plan_id, location_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		sess.PlanID, sess.LocationID, sess.Status)
	return row.Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
}

func (s queries) UpdateSession(ctx context.Context, sess *models.Session) error {
	row := s.q.QueryRowContext(ctx, `
		UPDATE audit_sessions
		SET status = $2, started_by = $3, started_at = $4, closed_by = $5, closed_at = $6,
			approved_by = $7, approved_at = $8, applied_at = $9,
			expected_snapshot_version = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		sess.ID, sess.Status, sess.StartedBy, sess.StartedAt, sess.ClosedBy, sess.ClosedAt,
		sess.ApprovedBy, sess.ApprovedAt, sess.AppliedAt, sess.ExpectedSnapshotVersion)
	return mapRowErr(row.Scan(&sess.UpdatedAt))
}

func (s queries) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM audit_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s queries) ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM audit_sessions`
	var args []interface{}
	var where []string
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.LocationID != nil {
		where = append(where, "location_id = "+arg(*f.LocationID))
	}
	if f.PlanID != nil {
		where = append(where, "plan_id = "+arg(*f.PlanID))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(*f.Status))
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	limit, offset := clampPage(f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %s OFFSET %s", arg(limit), arg(offset))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func (s queries) ListSessionsByPlan(ctx context.Context, planID int64) ([]models.Session, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM audit_sessions WHERE plan_id = $1 ORDER BY location_id ASC`,
		planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func scanSession(r rowScanner) (*models.Session, error) {
	var sess models.Session
	err := r.Scan(&sess.ID, &sess.PlanID, &sess.LocationID, &sess.Status,
		&sess.StartedBy, &sess.StartedAt, &sess.ClosedBy, &sess.ClosedAt,
		&sess.ApprovedBy, &sess.ApprovedAt, &sess.AppliedAt,
		&sess.ExpectedSnapshotVersion, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &sess, nil
}
