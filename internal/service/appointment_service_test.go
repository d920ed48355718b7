package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

type stubAppointmentRepo struct {
	byID    map[string]*models.Appointment
	busy    []models.Appointment
	created *models.Appointment
	status  models.AppointmentStatus
}

func (s *stubAppointmentRepo) List(_ context.Context, _ models.AppointmentFilter) ([]models.Appointment, int, error) {
	return s.busy, len(s.busy), nil
}

func (s *stubAppointmentRepo) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	appt, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *appt
	return &copied, nil
}

func (s *stubAppointmentRepo) ListBusyByProviderRange(_ context.Context, _ string, _, _ time.Time) ([]models.Appointment, error) {
	return s.busy, nil
}

func (s *stubAppointmentRepo) Create(_ context.Context, appt *models.Appointment) error {
	s.created = appt
	return nil
}

func (s *stubAppointmentRepo) Update(_ context.Context, _ *models.Appointment) error { return nil }

func (s *stubAppointmentRepo) UpdateStatus(_ context.Context, _ string, status models.AppointmentStatus) error {
	s.status = status
	return nil
}

func (s *stubAppointmentRepo) SoftDelete(_ context.Context, _ string) error { return nil }

func newTestAppointmentService(repo *stubAppointmentRepo, typeRecord *models.AppointmentType) *AppointmentService {
	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	return NewAppointmentService(repo, &stubTypeRepo{record: typeRecord}, cache, zap.NewNop())
}

type stubTypeRepo struct {
	record *models.AppointmentType
}

func (s *stubTypeRepo) ListByClinic(_ context.Context, _ string) ([]models.AppointmentType, error) {
	if s.record == nil {
		return nil, nil
	}
	return []models.AppointmentType{*s.record}, nil
}

func (s *stubTypeRepo) FindByID(_ context.Context, _ string) (*models.AppointmentType, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func TestAppointmentCreateBooksFreeSlot(t *testing.T) {
	repo := &stubAppointmentRepo{}
	svc := newTestAppointmentService(repo, nil)

	appt, err := svc.Create(context.Background(), "clinic-1", AppointmentCreateInput{
		ProviderID:      "prov-1",
		PatientID:       "pat-1",
		AppointmentDate: "2025-06-02T10:00:00Z",
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "clinic-1", appt.ClinicID)
	assert.Equal(t, models.AppointmentScheduled, appt.Status)
	assert.Equal(t, utcTime(mondayDate, "10:00"), appt.AppointmentDate)
	require.NotNil(t, repo.created)
}

func TestAppointmentCreateRejectsOverlap(t *testing.T) {
	repo := &stubAppointmentRepo{busy: []models.Appointment{{
		ID:              "existing",
		ProviderID:      "prov-1",
		AppointmentDate: utcTime(mondayDate, "10:00"),
		DurationMinutes: 30,
		Status:          models.AppointmentScheduled,
	}}}
	svc := newTestAppointmentService(repo, nil)

	_, err := svc.Create(context.Background(), "clinic-1", AppointmentCreateInput{
		ProviderID:      "prov-1",
		PatientID:       "pat-1",
		AppointmentDate: "2025-06-02T10:15:00Z",
		DurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateUsesTypeDefaultDuration(t *testing.T) {
	repo := &stubAppointmentRepo{}
	svc := newTestAppointmentService(repo, &models.AppointmentType{ID: "type-1", DefaultDurationMinutes: 45})

	typeID := "type-1"
	appt, err := svc.Create(context.Background(), "clinic-1", AppointmentCreateInput{
		ProviderID:        "prov-1",
		PatientID:         "pat-1",
		AppointmentTypeID: &typeID,
		AppointmentDate:   "2025-06-02T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 45, appt.DurationMinutes)
}

func TestAppointmentTransitionRejectsInvalidMove(t *testing.T) {
	repo := &stubAppointmentRepo{byID: map[string]*models.Appointment{
		"appt-1": {ID: "appt-1", ProviderID: "prov-1", Status: models.AppointmentCompleted},
	}}
	svc := newTestAppointmentService(repo, nil)

	_, err := svc.Transition(context.Background(), "appt-1", models.AppointmentScheduled)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentTransitionCancelsScheduled(t *testing.T) {
	repo := &stubAppointmentRepo{byID: map[string]*models.Appointment{
		"appt-1": {ID: "appt-1", ProviderID: "prov-1", Status: models.AppointmentScheduled},
	}}
	svc := newTestAppointmentService(repo, nil)

	appt, err := svc.Transition(context.Background(), "appt-1", models.AppointmentCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, appt.Status)
	assert.Equal(t, models.AppointmentCancelled, repo.status)
}

func TestAppointmentGetNotFound(t *testing.T) {
	svc := newTestAppointmentService(&stubAppointmentRepo{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
