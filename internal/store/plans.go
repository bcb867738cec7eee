package store

import (
	"context"

	"github.com/assettrack/backend/internal/models"
)

const planColumns = `id, title, scope_type, scope_payload, start_date, end_date,
	status, created_by, created_at, updated_at`

func (s queries) CreatePlan(ctx context.Context, p *models.Plan) error {
	if p.Status == "" {
		p.Status = models.PlanDraft
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_plans (title, scope_type, scope_payload, start_date, end_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.Title, p.ScopeType, nullJSON(p.ScopePayload), p.StartDate, p.EndDate, p.Status, p.CreatedBy)
	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s queries) UpdatePlan(ctx context.Context, p *models.Plan) error {
	row := s.q.QueryRowContext(ctx, `
		UPDATE audit_plans
		SET title = $2, scope_type = $3, scope_payload = $4, start_date = $5,
			end_date = $6, status = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Title, p.ScopeType, nullJSON(p.ScopePayload), p.StartDate, p.EndDate, p.Status)
	return mapRowErr(row.Scan(&p.UpdatedAt))
}

func (s queries) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM audit_plans WHERE id = $1`, id)
	return scanPlan(row)
}

func (s queries) ListPlans(ctx context.Context, limit, offset int) ([]models.Plan, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+planColumns+` FROM audit_plans ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(r rowScanner) (*models.Plan, error) {
	var p models.Plan
	var payload []byte
	err := r.Scan(&p.ID, &p.Title, &p.ScopeType, &payload, &p.StartDate, &p.EndDate,
		&p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	p.ScopePayload = payload
	return &p, nil
}

// nullJSON maps empty raw JSON to SQL NULL.
func nullJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// clampPage applies the 1..500 limit window the API contracts use.
func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
