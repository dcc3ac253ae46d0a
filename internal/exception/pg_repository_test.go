package exception

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-engine/internal/db"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

func TestPgUpsertUsesOnConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id, deptID := uuid.New(), uuid.New()
	date := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery("ON CONFLICT \\(department_id, exception_date, exception_time\\)").
		WithArgs(pgxmock.AnyArg(), deptID, date, db.ToPGTime(slot.At(15, 0)), true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "department_id", "exception_date", "exception_time", "blocked", "created_at", "updated_at"}).
			AddRow(id, deptID, date, db.ToPGTime(slot.At(15, 0)), true, now, now))

	ex, err := repo.Upsert(context.Background(), deptID, date, slot.At(15, 0), true)
	require.NoError(t, err)
	assert.Equal(t, id, ex.ID)
	assert.Equal(t, slot.At(15, 0), ex.Time)
	assert.True(t, ex.Blocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSetBlockedMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	deptID := uuid.New()
	date := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE slot_exceptions").
		WithArgs(deptID, date, db.ToPGTime(slot.At(9, 0)), false).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.SetBlocked(context.Background(), deptID, date, slot.At(9, 0), false)
	assert.ErrorIs(t, err, ErrExceptionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgBlockedTimes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	deptID := uuid.New()
	date := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM slot_exceptions").
		WithArgs(deptID, date).
		WillReturnRows(pgxmock.NewRows([]string{"exception_time"}).
			AddRow(db.ToPGTime(slot.At(11, 0))).
			AddRow(db.ToPGTime(slot.At(15, 0))))

	times, err := repo.BlockedTimes(context.Background(), deptID, date)
	require.NoError(t, err)
	assert.Equal(t, []slot.TimeOfDay{slot.At(11, 0), slot.At(15, 0)}, times)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()
	mock.ExpectExec("DELETE FROM slot_exceptions").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrExceptionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
