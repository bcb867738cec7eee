package store

import (
	"context"

	"github.com/assettrack/backend/internal/models"
)

const discrepancyColumns = `id, session_id, type, item_id, barcode_value,
	expected_location_id, found_location_id, resolution_status, resolution_payload,
	created_at, updated_at`

func (s queries) InsertDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	if d.ResolutionStatus == "" {
		d.ResolutionStatus = models.ResolutionOpen
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_discrepancies
			(session_id, type, item_id, barcode_value, expected_location_id,
			 found_location_id, resolution_status, resolution_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		d.SessionID, d.Type, d.ItemID, d.BarcodeValue, d.ExpectedLocationID,
		d.FoundLocationID, d.ResolutionStatus, nullJSON(d.ResolutionPayload))
	return row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (s queries) UpdateDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	row := s.q.QueryRowContext(ctx, `
		UPDATE audit_discrepancies
		SET expected_location_id = $2, found_location_id = $3,
			resolution_status = $4, resolution_payload = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.ExpectedLocationID, d.FoundLocationID, d.ResolutionStatus,
		nullJSON(d.ResolutionPayload))
	return mapRowErr(row.Scan(&d.UpdatedAt))
}

func (s queries) GetDiscrepancy(ctx context.Context, id int64) (*models.Discrepancy, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+discrepancyColumns+` FROM audit_discrepancies WHERE id = $1`, id)
	return scanDiscrepancy(row)
}

// FindOpenDiscrepancy locates the open row the incremental classifier would
// update, keyed by (session, type, item-or-null, barcode-or-null).
func (s queries) FindOpenDiscrepancy(ctx context.Context, key DiscrepancyKey) (*models.Discrepancy, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+discrepancyColumns+` FROM audit_discrepancies
		WHERE session_id = $1 AND type = $2 AND resolution_status = 'open'
			AND item_id IS NOT DISTINCT FROM $3
			AND barcode_value IS NOT DISTINCT FROM $4
		LIMIT 1`,
		key.SessionID, key.Type, key.ItemID, key.BarcodeValue)
	return scanDiscrepancy(row)
}

func (s queries) DeleteDiscrepancies(ctx context.Context, sessionID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM audit_discrepancies WHERE session_id = $1`, sessionID)
	return err
}

func (s queries) ListDiscrepancies(ctx context.Context, sessionID int64) ([]models.Discrepancy, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+discrepancyColumns+` FROM audit_discrepancies WHERE session_id = $1 ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s queries) CountOpenDiscrepancies(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM audit_discrepancies WHERE session_id = $1 AND resolution_status = 'open'`,
		sessionID).Scan(&n)
	return n, err
}

func scanDiscrepancy(r rowScanner) (*models.Discrepancy, error) {
	var d models.Discrepancy
	var payload []byte
	err := r.Scan(&d.ID, &d.SessionID, &d.Type, &d.ItemID, &d.BarcodeValue,
		&d.ExpectedLocationID, &d.FoundLocationID, &d.ResolutionStatus, &payload,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	d.ResolutionPayload = payload
	return &d, nil
}
