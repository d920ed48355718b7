package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

func TestPreferenceRepositoryGetBySubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "subject_type", "subject_id", "preferred_time_of_day", "preferred_start_hour", "preferred_end_hour", "preferred_days", "avoided_days", "strength", "created_at", "updated_at"}).
		AddRow("pref-1", "provider", "prov-1", "morning", 9, 12, []byte("[1,3]"), []byte("[5]"), 7, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduling_preferences WHERE subject_type = $1 AND subject_id = $2")).
		WithArgs(models.PreferenceSubjectProvider, "prov-1").
		WillReturnRows(rows)

	pref, err := repo.GetBySubject(context.Background(), models.PreferenceSubjectProvider, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, models.TimeOfDayMorning, pref.PreferredTimeOfDay)
	require.NotNil(t, pref.PreferredStartHour)
	assert.Equal(t, 9, *pref.PreferredStartHour)
	assert.Equal(t, types.JSONText("[1,3]"), pref.PreferredDays)
}

func TestPreferenceRepositoryGetBySubjectNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduling_preferences")).
		WithArgs(models.PreferenceSubjectPatient, "pat-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySubject(context.Background(), models.PreferenceSubjectPatient, "pat-404")
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPreferenceRepositoryUpsertDefaultsEmptyDayLists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduling_preferences")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pref := &models.SchedulingPreference{
		SubjectType:        models.PreferenceSubjectPatient,
		SubjectID:          "pat-1",
		PreferredTimeOfDay: "any",
		Strength:           5,
	}
	require.NoError(t, repo.Upsert(context.Background(), pref))
	assert.Equal(t, types.JSONText("[]"), pref.PreferredDays)
	assert.Equal(t, types.JSONText("[]"), pref.AvoidedDays)
	assert.NotEmpty(t, pref.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
