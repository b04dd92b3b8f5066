package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGradeSummaryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeSummaryRepositoryFindByCadet(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "cadet_id", "attendance_present", "merit_points", "demerit_points", "prelim_score", "midterm_score", "final_score", "created_at", "updated_at"}).
		AddRow("gs-1", "c-1", 12, 5, 10, 80.0, 85.0, 90.0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_summaries WHERE cadet_id = $1")).
		WithArgs("c-1").
		WillReturnRows(rows)

	summary, err := repo.FindByCadet(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, 12, summary.AttendancePresent)
	assert.Equal(t, 5, summary.MeritPoints)
	assert.InDelta(t, 85.0, summary.MidtermScore, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositoryFindByCadetMissingRow(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_summaries WHERE cadet_id = $1")).
		WithArgs("c-9").
		WillReturnError(sql.ErrNoRows)

	// Callers branch on sql.ErrNoRows, so it must pass through unwrapped.
	_, err := repo.FindByCadet(context.Background(), "c-9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositorySetAttendancePresentCreatesRow(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_summaries")).
		WithArgs(sqlmock.AnyArg(), "c-1", 9, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAttendancePresent(context.Background(), "c-1", 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositorySetConductPoints(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DO UPDATE SET merit_points = EXCLUDED.merit_points")).
		WithArgs(sqlmock.AnyArg(), "c-1", 5, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetConductPoints(context.Background(), "c-1", 5, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositorySetScores(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DO UPDATE SET prelim_score = EXCLUDED.prelim_score")).
		WithArgs(sqlmock.AnyArg(), "c-1", 80.0, 85.0, 90.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetScores(context.Background(), "c-1", 80, 85, 90))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositoryListDetailsKeepsZeroedCadets(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "cadet_id", "attendance_present", "merit_points", "demerit_points", "prelim_score", "midterm_score", "final_score", "created_at", "updated_at", "student_number", "cadet_name", "unit"}).
		AddRow("gs-1", "c-1", 12, 5, 0, 80.0, 85.0, 90.0, now, now, "2024-0001", "Reyes, Ana", "1st Platoon").
		AddRow("", "c-2", 0, 0, 0, 0.0, 0.0, 0.0, now, now, "2024-0002", "Santos, Ben", "1st Platoon")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN grade_summaries gs ON gs.cadet_id = c.id")).
		WillReturnRows(rows)

	details, err := repo.ListDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "c-2", details[1].CadetID)
	assert.Zero(t, details[1].AttendancePresent)
	assert.Equal(t, "Santos, Ben", details[1].CadetName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSummaryRepositoryCadetIDs(t *testing.T) {
	db, mock, cleanup := newGradeSummaryRepoMock(t)
	defer cleanup()

	repo := NewGradeSummaryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM cadets WHERE active = true ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1").AddRow("c-2"))

	ids, err := repo.CadetIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
