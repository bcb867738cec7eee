package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

// Rebuild derives the canonical discrepancy set for a session from its
// expected snapshot and full scan log. It is a pure function; the caller
// replaces the stored set with its output inside one transaction.
// locationID is the audited room; duplicate and unexpected rows carry it as
// their found location.
//
// Classification rules:
//   - missing: expected item never scanned by item id.
//   - duplicate: any item scanned more than once, expected or not; payload
//     carries the observed count.
//   - unexpected: scanned item id absent from the snapshot (one per item).
//   - misplaced: one per scan whose found location differs from the item's
//     expected location.
//   - unknown_barcode: scan carrying a barcode value that never resolved to
//     an item, one per distinct value.
func Rebuild(sessionID, locationID int64, expected []models.ExpectedItem, scans []models.Scan, now time.Time) []models.Discrepancy {
	expectedByItem := make(map[int64]*models.ExpectedItem, len(expected))
	for i := range expected {
		expectedByItem[expected[i].ItemID] = &expected[i]
	}

	scanCountByItem := make(map[int64]int)
	var scannedOrder []int64
	for _, sc := range scans {
		if sc.ItemID == nil {
			continue
		}
		if scanCountByItem[*sc.ItemID] == 0 {
			scannedOrder = append(scannedOrder, *sc.ItemID)
		}
		scanCountByItem[*sc.ItemID]++
	}

	var out []models.Discrepancy

	newDiscrepancy := func(typ models.DiscrepancyType) models.Discrepancy {
		return models.Discrepancy{
			SessionID:        sessionID,
			Type:             typ,
			ResolutionStatus: models.ResolutionOpen,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}

	// Missing walks the snapshot in its stored order.
	for i := range expected {
		exp := &expected[i]
		if scanCountByItem[exp.ItemID] > 0 {
			continue
		}
		d := newDiscrepancy(models.DiscrepancyMissing)
		itemID := exp.ItemID
		d.ItemID = &itemID
		d.ExpectedLocationID = exp.ExpectedLocationID
		out = append(out, d)
	}

	// Duplicates count every scanned item, snapshot member or not.
	for _, itemID := range scannedOrder {
		count := scanCountByItem[itemID]
		if count <= 1 {
			continue
		}
		d := newDiscrepancy(models.DiscrepancyDuplicate)
		id := itemID
		loc := locationID
		d.ItemID = &id
		d.FoundLocationID = &loc
		if exp, ok := expectedByItem[itemID]; ok {
			d.ExpectedLocationID = exp.ExpectedLocationID
		}
		d.ResolutionPayload = json.RawMessage(fmt.Sprintf(`{"count":%d}`, count))
		out = append(out, d)
	}

	for _, itemID := range scannedOrder {
		if _, ok := expectedByItem[itemID]; ok {
			continue
		}
		id := itemID
		loc := locationID
		d := newDiscrepancy(models.DiscrepancyUnexpected)
		d.ItemID = &id
		d.FoundLocationID = &loc
		out = append(out, d)
	}

	// Misplaced is per offending scan, not per item.
	for _, sc := range scans {
		if sc.ItemID == nil {
			continue
		}
		exp, ok := expectedByItem[*sc.ItemID]
		if !ok || exp.ExpectedLocationID == nil {
			continue
		}
		if sc.FoundLocationID == *exp.ExpectedLocationID {
			continue
		}
		id := *sc.ItemID
		found := sc.FoundLocationID
		d := newDiscrepancy(models.DiscrepancyMisplaced)
		d.ItemID = &id
		d.ExpectedLocationID = exp.ExpectedLocationID
		d.FoundLocationID = &found
		out = append(out, d)
	}

	// Barcode resolution happened at ingest; a scan still carrying no item
	// id is an unknown barcode. One row per distinct value.
	seenBarcodes := make(map[string]struct{})
	for _, sc := range scans {
		if sc.ItemID != nil || sc.BarcodeValue == nil || *sc.BarcodeValue == "" {
			continue
		}
		if _, ok := seenBarcodes[*sc.BarcodeValue]; ok {
			continue
		}
		seenBarcodes[*sc.BarcodeValue] = struct{}{}
		value := *sc.BarcodeValue
		found := sc.FoundLocationID
		d := newDiscrepancy(models.DiscrepancyUnknownBarcode)
		d.BarcodeValue = &value
		d.FoundLocationID = &found
		out = append(out, d)
	}

	return out
}

// applyScanEffects runs the incremental post-processing for one persisted
// scan: the per-item result upsert and the open-discrepancy upserts. It is
// re-run verbatim when a retried scan is replayed.
func (s *Service) applyScanEffects(ctx context.Context, q store.Querier, sess *models.Session, scan *models.Scan, now time.Time) error {
	if err := s.updateItemResultFromScan(ctx, q, sess, scan, now); err != nil {
		return err
	}
	return s.updateDiscrepanciesFromScan(ctx, q, sess, scan, now)
}

// updateItemResultFromScan upserts the ItemResult row for a scan that
// resolved to an item.
func (s *Service) updateItemResultFromScan(ctx context.Context, q store.Querier, sess *models.Session, scan *models.Scan, now time.Time) error {
	if scan.ItemID == nil {
		return nil
	}
	itemID := *scan.ItemID
	found := scan.FoundLocationID

	res, err := q.GetItemResult(ctx, sess.ID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		// Unexpected item: no snapshot row seeded a result for it.
		r := &models.ItemResult{
			SessionID:       sess.ID,
			ItemID:          itemID,
			Status:          models.ResultFound,
			FoundLocationID: &found,
			FirstFoundAt:    &now,
			LastScanAt:      &now,
		}
		return q.InsertItemResult(ctx, r)
	}
	if err != nil {
		return err
	}

	if res.FirstFoundAt == nil {
		res.FirstFoundAt = &now
	}
	res.LastScanAt = &now
	res.FoundLocationID = &found
	if res.ExpectedLocationID != nil && *res.ExpectedLocationID == found {
		res.Status = models.ResultFoundInPlace
	} else {
		res.Status = models.ResultFound
	}
	return q.UpdateItemResult(ctx, res)
}

// updateDiscrepanciesFromScan keeps the live discrepancy preview in step
// with each scan. The canonical set is rebuilt at close; these rows only
// exist so supervisors see problems while the session is still open.
func (s *Service) updateDiscrepanciesFromScan(ctx context.Context, q store.Querier, sess *models.Session, scan *models.Scan, now time.Time) error {
	if scan.ItemID == nil {
		if scan.BarcodeValue == nil || *scan.BarcodeValue == "" {
			return nil
		}
		return s.upsertOpenDiscrepancy(ctx, q, store.DiscrepancyKey{
			SessionID:    sess.ID,
			Type:         models.DiscrepancyUnknownBarcode,
			BarcodeValue: scan.BarcodeValue,
		}, func(d *models.Discrepancy) {
			found := scan.FoundLocationID
			d.BarcodeValue = scan.BarcodeValue
			d.FoundLocationID = &found
		}, now)
	}

	itemID := *scan.ItemID
	exp, err := q.GetExpectedItem(ctx, sess.ID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return s.upsertOpenDiscrepancy(ctx, q, store.DiscrepancyKey{
			SessionID: sess.ID,
			Type:      models.DiscrepancyUnexpected,
			ItemID:    &itemID,
		}, func(d *models.Discrepancy) {
			d.ItemID = &itemID
		}, now)
	}
	if err != nil {
		return err
	}

	if exp.ExpectedLocationID != nil && scan.FoundLocationID != *exp.ExpectedLocationID {
		return s.upsertOpenDiscrepancy(ctx, q, store.DiscrepancyKey{
			SessionID: sess.ID,
			Type:      models.DiscrepancyMisplaced,
			ItemID:    &itemID,
		}, func(d *models.Discrepancy) {
			found := scan.FoundLocationID
			d.ItemID = &itemID
			d.ExpectedLocationID = exp.ExpectedLocationID
			d.FoundLocationID = &found
		}, now)
	}
	return nil
}

// upsertOpenDiscrepancy refreshes an existing open row matching key or
// inserts a new one. fill sets the type-specific columns.
func (s *Service) upsertOpenDiscrepancy(ctx context.Context, q store.Querier, key store.DiscrepancyKey, fill func(*models.Discrepancy), now time.Time) error {
	existing, err := q.FindOpenDiscrepancy(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if existing != nil {
		fill(existing)
		existing.UpdatedAt = now
		return q.UpdateDiscrepancy(ctx, existing)
	}
	d := &models.Discrepancy{
		SessionID:        key.SessionID,
		Type:             key.Type,
		ResolutionStatus: models.ResolutionOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	fill(d)
	return q.InsertDiscrepancy(ctx, d)
}
