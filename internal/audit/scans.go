package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/barcode"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

// ScanInput is one observation submitted by the mobile client.
type ScanInput struct {
	ItemID          *int64          `json:"item_id,omitempty"`
	BarcodeValue    *string         `json:"barcode_value,omitempty"`
	FoundLocationID int64           `json:"found_location_id"`
	Notes           *string         `json:"notes,omitempty"`
	PhotoURL        *string         `json:"photo_url,omitempty"`
	ClientScanID    string          `json:"client_scan_id"`
	Extra           json.RawMessage `json:"extra,omitempty"`
}

// ScanResult pairs the persisted scan with whether this request created it
// or replayed an earlier retry.
type ScanResult struct {
	Scan     *models.Scan `json:"scan"`
	Replayed bool         `json:"replayed"`
}

// CreateScan ingests one scan. Retries carrying the same client_scan_id
// land on the UNIQUE(session_id, client_scan_id) constraint; the stored
// scan is re-read and its post-processing re-applied, so the effects hold
// whether the first attempt finished or died mid-flight.
func (s *Service) CreateScan(ctx context.Context, token string, sessionID, scannerUserID int64, in ScanInput) (*ScanResult, error) {
	if strings.TrimSpace(in.ClientScanID) == "" {
		return nil, apperr.Validation("client_scan_id_required")
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err, "session_not_found")
	}
	if sess.Status != models.SessionInProgress {
		return nil, apperr.StateConflict("session_not_in_progress")
	}
	if in.FoundLocationID != sess.LocationID {
		return nil, apperr.Validation("found_location_must_match_session_location")
	}
	if in.ItemID == nil && in.BarcodeValue == nil {
		return nil, apperr.Validation("item_or_barcode_required")
	}

	var barcodeValue *string
	if in.BarcodeValue != nil {
		norm, err := barcode.Normalize(*in.BarcodeValue)
		if err != nil {
			if in.ItemID == nil {
				return nil, err
			}
		} else {
			barcodeValue = &norm
		}
	}

	itemID := in.ItemID
	if itemID == nil && barcodeValue != nil {
		item, err := s.inventory.ResolveByBarcode(ctx, token, *barcodeValue)
		if err != nil {
			return nil, err
		}
		if item != nil && item.ID != nil {
			itemID = item.ID
		}
	}

	now := s.now()
	scan := &models.Scan{
		SessionID:       sessionID,
		ScannerUserID:   scannerUserID,
		ScanTime:        now,
		BarcodeValue:    barcodeValue,
		ItemID:          itemID,
		FoundLocationID: in.FoundLocationID,
		Notes:           in.Notes,
		PhotoURL:        in.PhotoURL,
		ClientScanID:    strings.TrimSpace(in.ClientScanID),
		Extra:           in.Extra,
	}

	err = s.store.Tx(ctx, func(q store.Querier) error {
		if err := q.InsertScan(ctx, scan); err != nil {
			return err
		}
		return s.applyScanEffects(ctx, q, sess, scan, now)
	})
	if err == nil {
		if s.metrics != nil {
			s.metrics.ScansIngested.WithLabelValues("created").Inc()
		}
		return &ScanResult{Scan: scan, Replayed: false}, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}

	// Replay: the key already exists. Re-read the stored scan and re-run
	// its effects so a first attempt that died between insert and
	// post-processing still converges.
	existing, err := s.store.GetScanByClientID(ctx, sessionID, scan.ClientScanID)
	if err != nil {
		return nil, mapStoreErr(err, "scan_not_found")
	}
	err = s.store.Tx(ctx, func(q store.Querier) error {
		return s.applyScanEffects(ctx, q, sess, existing, s.now())
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ScansIngested.WithLabelValues("replayed").Inc()
	}
	return &ScanResult{Scan: existing, Replayed: true}, nil
}
