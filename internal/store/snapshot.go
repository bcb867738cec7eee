package store

import (
	"context"

	"github.com/assettrack/backend/internal/models"
)

// Expected snapshot rows. Immutable once the session leaves draft; the only
// writers are the drain-and-seed steps of the start transition.

func (s queries) DeleteExpectedItems(ctx context.Context, sessionID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM audit_expected_items WHERE session_id = $1`, sessionID)
	return err
}

func (s queries) InsertExpectedItem(ctx context.Context, e *models.ExpectedItem) error {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_expected_items
			(session_id, item_id, expected_location_id, expected_responsible_id, barcode_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, captured_at`,
		e.SessionID, e.ItemID, e.ExpectedLocationID, e.ExpectedResponsibleID, e.BarcodeID)
	if err := row.Scan(&e.ID, &e.CapturedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s queries) ListExpectedItems(ctx context.Context, sessionID int64) ([]models.ExpectedItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, session_id, item_id, expected_location_id, expected_responsible_id, barcode_id, captured_at
		FROM audit_expected_items WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExpectedItem
	for rows.Next() {
		var e models.ExpectedItem
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ItemID, &e.ExpectedLocationID,
			&e.ExpectedResponsibleID, &e.BarcodeID, &e.CapturedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s queries) GetExpectedItem(ctx context.Context, sessionID, itemID int64) (*models.ExpectedItem, error) {
	var e models.ExpectedItem
	err := s.q.QueryRowContext(ctx, `
		SELECT id, session_id, item_id, expected_location_id, expected_responsible_id, barcode_id, captured_at
		FROM audit_expected_items WHERE session_id = $1 AND item_id = $2`,
		sessionID, itemID).
		Scan(&e.ID, &e.SessionID, &e.ItemID, &e.ExpectedLocationID,
			&e.ExpectedResponsibleID, &e.BarcodeID, &e.CapturedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return &e, nil
}
