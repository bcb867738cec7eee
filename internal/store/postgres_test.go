package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestInsertScanMapsUniqueViolation(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO audit_scans`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "audit_scans_session_id_client_scan_id_key"})

	sc := &models.Scan{SessionID: 1, ScannerUserID: 7, FoundLocationID: 1, ClientScanID: "c1"}
	err := st.InsertScan(context.Background(), sc)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertScanReturnsGeneratedRow(t *testing.T) {
	st, mock := newMockStore(t)
	scanTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO audit_scans`).
		WithArgs(int64(1), int64(7), nil, int64(10), int64(1), nil, nil, "c1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "scan_time"}).AddRow(int64(42), scanTime))

	itemID := int64(10)
	sc := &models.Scan{SessionID: 1, ScannerUserID: 7, ItemID: &itemID, FoundLocationID: 1, ClientScanID: "c1"}
	require.NoError(t, st.InsertScan(context.Background(), sc))
	assert.Equal(t, int64(42), sc.ID)
	assert.Equal(t, scanTime, sc.ScanTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSessionNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`FROM audit_sessions WHERE id`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.GetSession(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRollsBackOnError(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audit_discrepancies`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := st.Tx(context.Background(), func(q Querier) error {
		if err := q.DeleteDiscrepancies(context.Background(), 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxCommitsOnSuccess(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audit_expected_items`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := st.Tx(context.Background(), func(q Querier) error {
		return q.DeleteExpectedItems(context.Background(), 1)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemResultMissingRow(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE audit_item_results`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateItemResult(context.Background(), &models.ItemResult{SessionID: 1, ItemID: 5})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertActionMarshalsPayload(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO audit_actions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))

	resp := int64(42)
	a := &models.Action{
		SessionID:  1,
		ActionType: models.ActionMove,
		Payload: models.ActionPayload{
			ItemID:             10,
			ToLocationID:       5,
			ResponsibleIDIsSet: true,
			ResponsibleID:      &resp,
		},
		Status:         models.ActionPending,
		IdempotencyKey: "session:1:discrepancy:2:move:5:true:42",
	}
	require.NoError(t, st.InsertAction(context.Background(), a))
	assert.Equal(t, int64(1), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
