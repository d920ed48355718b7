package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestScheduleRepositoryListByProvider(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "provider_id", "day_of_week", "start_time", "end_time", "is_available", "created_at", "updated_at"}).
		AddRow("block-1", "prov-1", 1, "09:00", "12:00", true, now, now).
		AddRow("block-2", "prov-1", 1, "12:00", "13:00", false, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, provider_id, day_of_week, start_time, end_time, is_available, created_at, updated_at FROM weekly_schedule_blocks WHERE provider_id = $1 ORDER BY day_of_week ASC, start_time ASC")).
		WithArgs("prov-1").
		WillReturnRows(rows)

	blocks, err := repo.ListByProvider(context.Background(), "prov-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "09:00", blocks[0].StartTime)
	assert.True(t, blocks[0].IsAvailable)
	assert.False(t, blocks[1].IsAvailable)
}

func TestScheduleRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_schedule_blocks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	block := &models.WeeklyScheduleBlock{
		ProviderID:  "prov-1",
		DayOfWeek:   2,
		StartTime:   "08:00",
		EndTime:     "16:00",
		IsAvailable: true,
	}
	require.NoError(t, repo.Create(context.Background(), block))
	assert.NotEmpty(t, block.ID)
	assert.False(t, block.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_schedule_blocks WHERE id = $1")).
		WithArgs("block-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "block-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
