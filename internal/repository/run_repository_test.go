package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newRunRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRunRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generation_runs")).
		WithArgs(sqlmock.AnyArg(), string(models.GenerationRunSucceeded), 2, 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.GenerationRun{
		Status:   models.GenerationRunSucceeded,
		Sections: 2,
		Teachers: 3,
		Meta:     types.JSONText(`{"backtrackSteps":4}`),
	}
	err := repo.Create(context.Background(), run)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryCreateRequiresStatus(t *testing.T) {
	db, _, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	err := repo.Create(context.Background(), &models.GenerationRun{})
	require.Error(t, err)
}

func TestRunRepositoryList(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "status", "sections", "teachers", "meta", "created_at"}).
		AddRow("run-1", string(models.GenerationRunFailed), 1, 1, types.JSONText(`{}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, sections, teachers, meta, created_at FROM generation_runs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.GenerationRunFailed, runs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
