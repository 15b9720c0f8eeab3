package auditstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewForTesting(sqlxDB, time.Second), mock
}

func TestRecordAnalysis_ExecutesUpsert(t *testing.T) {
	store, mock := newMockStore(t)

	trail := &audit.Trail{}
	trail.Record("liquidation_preference", "ok")
	report := &audit.Report{}

	mock.ExpectExec("INSERT INTO analysis_audit").
		WithArgs("an-1", "deadbeef", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordAnalysis(context.Background(), "an-1", "deadbeef", trail, report)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAnalysis_PropagatesDatabaseError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analysis_audit").
		WillReturnError(assert.AnError)

	err := store.RecordAnalysis(context.Background(), "an-1", "deadbeef", &audit.Trail{}, &audit.Report{})
	assert.Error(t, err)
}

func TestFindByID_NoRowsReturnsNilNilNil(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT analysis_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"analysis_id", "verification_hash", "trail", "rules", "created_at"}))

	trail, report, err := store.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, trail)
	assert.Nil(t, report)
}

func TestFindByID_ScansRow(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"analysis_id", "verification_hash", "trail", "rules", "created_at"}).
		AddRow("an-1", "deadbeef", []byte(`[]`), []byte(`[]`), time.Now())
	mock.ExpectQuery("SELECT analysis_id").
		WithArgs("an-1").
		WillReturnRows(rows)

	trail, report, err := store.FindByID(context.Background(), "an-1")
	require.NoError(t, err)
	require.NotNil(t, trail)
	require.NotNil(t, report)
}
