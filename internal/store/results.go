package store

import (
	"context"

	"github.com/assettrack/backend/internal/models"
)

const resultColumns = `id, session_id, item_id, status, expected_location_id,
	found_location_id, first_found_at, last_scan_at`

func (s queries) DeleteItemResults(ctx context.Context, sessionID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM audit_item_results WHERE session_id = $1`, sessionID)
	return err
}

func (s queries) InsertItemResult(ctx context.Context, r *models.ItemResult) error {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_item_results
			(session_id, item_id, status, expected_location_id, found_location_id, first_found_at, last_scan_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		r.SessionID, r.ItemID, r.Status, r.ExpectedLocationID, r.FoundLocationID,
		r.FirstFoundAt, r.LastScanAt)
	if err := row.Scan(&r.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s queries) UpdateItemResult(ctx context.Context, r *models.ItemResult) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE audit_item_results
		SET status = $3, expected_location_id = $4, found_location_id = $5,
			first_found_at = $6, last_scan_at = $7
		WHERE session_id = $1 AND item_id = $2`,
		r.SessionID, r.ItemID, r.Status, r.ExpectedLocationID, r.FoundLocationID,
		r.FirstFoundAt, r.LastScanAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s queries) GetItemResult(ctx context.Context, sessionID, itemID int64) (*models.ItemResult, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM audit_item_results WHERE session_id = $1 AND item_id = $2`,
		sessionID, itemID)
	return scanItemResult(row)
}

func (s queries) ListItemResults(ctx context.Context, sessionID int64) ([]models.ItemResult, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM audit_item_results WHERE session_id = $1 ORDER BY item_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ItemResult
	for rows.Next() {
		r, err := scanItemResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanItemResult(r rowScanner) (*models.ItemResult, error) {
	var ir models.ItemResult
	err := r.Scan(&ir.ID, &ir.SessionID, &ir.ItemID, &ir.Status,
		&ir.ExpectedLocationID, &ir.FoundLocationID, &ir.FirstFoundAt, &ir.LastScanAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &ir, nil
}
