package requeststore

import (
	"context"
	"database/sql"
	"testing"

	"ride-dispatch-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTx(t *testing.T) (*Tx, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := sqlx.NewDb(mockDB, "postgres")
	mock.ExpectBegin()
	sqlTx, err := db.Beginx()
	require.NoError(t, err)

	notes := make([]bufferedNotification, 0)
	return &Tx{tx: sqlTx, notes: &notes}, mock, func() { db.Close() }
}

// TestClassify_ConnectionExceptionIsTransient exercises classify()'s mapping
// of pq.Error's "08" (connection exception) class onto ErrStoreTransient,
// the branch that lets the round retry the whole cluster next tick.
func TestClassify_ConnectionExceptionIsTransient(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	trip := &models.Trip{ID: uuid.New(), From: "a", To: "b"}
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnError(&pq.Error{Code: "08006"})

	err := tx.CreateTrip(context.Background(), trip)

	assert.ErrorIs(t, err, models.ErrStoreTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClassify_IntegrityViolationIsPermanent exercises classify()'s mapping
// of pq.Error's "23" (integrity constraint violation) class onto
// ErrStorePermanent, the branch that must not be retried.
func TestClassify_IntegrityViolationIsPermanent(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	trip := &models.Trip{ID: uuid.New(), From: "a", To: "b"}
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := tx.CreateTrip(context.Background(), trip)

	assert.ErrorIs(t, err, models.ErrStorePermanent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClassify_UnclassifiedDriverErrorDefaultsTransient covers classify()'s
// fallback: any non-pq error (driver panics, context errors, etc.) is
// treated as transient rather than silently dropped.
func TestClassify_UnclassifiedDriverErrorDefaultsTransient(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	trip := &models.Trip{ID: uuid.New(), From: "a", To: "b"}
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnError(sql.ErrConnDone)

	err := tx.CreateTrip(context.Background(), trip)

	assert.ErrorIs(t, err, models.ErrStoreTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUpdateRequestStatus_AlreadyTransitionedReturnsFalse exercises the
// idempotent transition's zero-rows-affected path: a concurrent worker
// already moved the request out of PENDING this tick, so this call must
// report ok=false without error.
func TestUpdateRequestStatus_AlreadyTransitionedReturnsFalse(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE passenger_requests SET status`).
		WithArgs(models.RequestStatusAccepted, "p1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := tx.UpdateRequestStatus(context.Background(), "p1", models.RequestKindPassenger, models.RequestStatusAccepted)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
