package audit

import (
	"context"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/models"
)

// SessionReport summarises one session inside a plan report.
type SessionReport struct {
	SessionID  int64                `json:"session_id"`
	LocationID int64                `json:"location_id"`
	Status     models.SessionStatus `json:"status"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`

	ExpectedTotal int `json:"expected_total"`
	ScanCount     int `json:"scan_count"`

	FoundTotal         int `json:"found_total"`
	FoundInPlace       int `json:"found_in_place"`
	FoundWrongLocation int `json:"found_wrong_location"`
	Missing            int `json:"missing"`

	FoundRate   float64 `json:"found_rate"`
	InPlaceRate float64 `json:"in_place_rate"`

	Unexpected     int `json:"unexpected"`
	Duplicate      int `json:"duplicate"`
	UnknownBarcode int `json:"unknown_barcode"`

	Discrepancies DiscrepancyTotals `json:"discrepancies"`
}

// DiscrepancyTotals breaks discrepancies down by resolution state.
type DiscrepancyTotals struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
	Ignored  int `json:"ignored"`
}

// PlanReport aggregates a plan's sessions. Totals are sums of the
// per-session figures; the rates are recomputed from the summed totals,
// never averaged.
type PlanReport struct {
	PlanID      int64     `json:"plan_id"`
	GeneratedAt time.Time `json:"generated_at"`

	RoomsTotal int `json:"rooms_total"`
	RoomsDone  int `json:"rooms_done"`

	ExpectedTotal int `json:"expected_total"`
	ScanCount     int `json:"scan_count"`

	FoundTotal         int `json:"found_total"`
	FoundInPlace       int `json:"found_in_place"`
	FoundWrongLocation int `json:"found_wrong_location"`
	Missing            int `json:"missing"`

	FoundRate   float64 `json:"found_rate"`
	InPlaceRate float64 `json:"in_place_rate"`

	Unexpected     int `json:"unexpected"`
	Duplicate      int `json:"duplicate"`
	UnknownBarcode int `json:"unknown_barcode"`

	Discrepancies DiscrepancyTotals `json:"discrepancies"`

	Sessions []SessionReport `json:"sessions"`
}

func safeRate(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// GetPlanReport builds the aggregate report for one plan. A plan with no
// sessions yields a 404 so clients cannot mistake an empty report for a
// finished one.
func (s *Service) GetPlanReport(ctx context.Context, planID int64) (*PlanReport, error) {
	sessions, err := s.store.ListSessionsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, apperr.NotFound("plan_not_found_or_empty")
	}

	ids := make([]int64, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}

	resultCounts, err := s.store.ItemResultCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	scanCounts, err := s.store.ScanCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	discrepancyCounts, err := s.store.CountDiscrepancies(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &PlanReport{
		PlanID:      planID,
		GeneratedAt: s.now(),
		RoomsTotal:  len(sessions),
	}

	for _, sess := range sessions {
		rc := resultCounts[sess.ID]
		missing := rc[models.ResultMissing]
		inPlace := rc[models.ResultFoundInPlace]
		wrongLocation := rc[models.ResultFound]
		expected := missing + inPlace + wrongLocation
		found := inPlace + wrongLocation

		row := SessionReport{
			SessionID:          sess.ID,
			LocationID:         sess.LocationID,
			Status:             sess.Status,
			StartedAt:          sess.StartedAt,
			ClosedAt:           sess.ClosedAt,
			ApprovedAt:         sess.ApprovedAt,
			AppliedAt:          sess.AppliedAt,
			UpdatedAt:          &sess.UpdatedAt,
			ExpectedTotal:      expected,
			ScanCount:          scanCounts[sess.ID],
			FoundTotal:         found,
			FoundInPlace:       inPlace,
			FoundWrongLocation: wrongLocation,
			Missing:            missing,
			FoundRate:          safeRate(found, expected),
			InPlaceRate:        safeRate(inPlace, expected),
		}

		for key, n := range discrepancyCounts[sess.ID] {
			row.Discrepancies.Total += n
			switch key.Resolution {
			case models.ResolutionOpen:
				row.Discrepancies.Open += n
			case models.ResolutionResolved:
				row.Discrepancies.Resolved += n
			case models.ResolutionIgnored:
				row.Discrepancies.Ignored += n
			}
			switch key.Type {
			case models.DiscrepancyUnexpected:
				row.Unexpected += n
			case models.DiscrepancyDuplicate:
				row.Duplicate += n
			case models.DiscrepancyUnknownBarcode:
				row.UnknownBarcode += n
			}
		}

		report.Sessions = append(report.Sessions, row)

		if sess.Status == models.SessionApplied || sess.Status == models.SessionClosed {
			report.RoomsDone++
		}
		report.ExpectedTotal += expected
		report.ScanCount += row.ScanCount
		report.FoundTotal += found
		report.FoundInPlace += inPlace
		report.FoundWrongLocation += wrongLocation
		report.Missing += missing
		report.Unexpected += row.Unexpected
		report.Duplicate += row.Duplicate
		report.UnknownBarcode += row.UnknownBarcode
		report.Discrepancies.Total += row.Discrepancies.Total
		report.Discrepancies.Open += row.Discrepancies.Open
		report.Discrepancies.Resolved += row.Discrepancies.Resolved
		report.Discrepancies.Ignored += row.Discrepancies.Ignored
	}

	report.FoundRate = safeRate(report.FoundTotal, report.ExpectedTotal)
	report.InPlaceRate = safeRate(report.FoundInPlace, report.ExpectedTotal)
	return report, nil
}
