package store

import (
	"context"

	"github.com/assettrack/backend/internal/models"
)

const scanColumns = `id, session_id, scanner_user_id, scan_time, barcode_value,
	item_id, found_location_id, notes, photo_url, client_scan_id, extra`

// InsertScan persists a scan; a (session_id, client_scan_id) collision maps
// to ErrDuplicate so the ingestor can recover the winner's row.
func (s queries) InsertScan(ctx context.Context, sc *models.Scan) error {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_scans
			(session_id, scanner_user_id, barcode_value, item_id, found_location_id,
			 notes, photo_url, client_scan_id, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, scan_time`,
		sc.SessionID, sc.ScannerUserID, sc.BarcodeValue, sc.ItemID, sc.FoundLocationID,
		sc.Notes, sc.PhotoURL, sc.ClientScanID, nullJSON(sc.Extra))
	if err := row.Scan(&sc.ID, &sc.ScanTime); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s queries) GetScanByClientID(ctx context.Context, sessionID int64, clientScanID string) (*models.Scan, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM audit_scans WHERE session_id = $1 AND client_scan_id = $2`,
		sessionID, clientScanID)
	return scanScan(row)
}

func (s queries) ListScans(ctx context.Context, sessionID int64) ([]models.Scan, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM audit_scans WHERE session_id = $1 ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func scanScan(r rowScanner) (*models.Scan, error) {
	var sc models.Scan
	var extra []byte
	err := r.Scan(&sc.ID, &sc.SessionID, &sc.ScannerUserID, &sc.ScanTime,
		&sc.BarcodeValue, &sc.ItemID, &sc.FoundLocationID, &sc.Notes, &sc.PhotoURL,
		&sc.ClientScanID, &extra)
	if err != nil {
		return nil, mapRowErr(err)
	}
	sc.Extra = extra
	return &sc, nil
}
