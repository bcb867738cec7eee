package store

import (
	"context"

	"github.com/lib/pq"

	"github.com/assettrack/backend/internal/models"
)

// Report aggregates. Three grouped queries; the reporting service derives
// everything else in memory.

func (s queries) ItemResultCounts(ctx context.Context, sessionIDs []int64) (ResultCounts, error) {
	out := make(ResultCounts)
	if len(sessionIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT session_id, status, count(id)
		FROM audit_item_results
		WHERE session_id = ANY($1)
		GROUP BY session_id, status`,
		pq.Array(sessionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID int64
		var status models.ItemResultStatus
		var n int
		if err := rows.Scan(&sessionID, &status, &n); err != nil {
			return nil, err
		}
		if out[sessionID] == nil {
			out[sessionID] = make(map[models.ItemResultStatus]int)
		}
		out[sessionID][status] = n
	}
	return out, rows.Err()
}

func (s queries) ScanCounts(ctx context.Context, sessionIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int)
	if len(sessionIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT session_id, count(id)
		FROM audit_scans
		WHERE session_id = ANY($1)
		GROUP BY session_id`,
		pq.Array(sessionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID int64
		var n int
		if err := rows.Scan(&sessionID, &n); err != nil {
			return nil, err
		}
		out[sessionID] = n
	}
	return out, rows.Err()
}

func (s queries) CountDiscrepancies(ctx context.Context, sessionIDs []int64) (DiscrepancyCounts, error) {
	out := make(DiscrepancyCounts)
	if len(sessionIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT session_id, type, resolution_status, count(id)
		FROM audit_discrepancies
		WHERE session_id = ANY($1)
		GROUP BY session_id, type, resolution_status`,
		pq.Array(sessionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID int64
		var key DiscrepancyCountKey
		var n int
		if err := rows.Scan(&sessionID, &key.Type, &key.Resolution, &n); err != nil {
			return nil, err
		}
		if out[sessionID] == nil {
			out[sessionID] = make(map[DiscrepancyCountKey]int)
		}
		out[sessionID][key] = n
	}
	return out, rows.Err()
}
