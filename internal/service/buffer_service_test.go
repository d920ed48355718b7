package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

type stubBufferRepo struct {
	candidates []models.BufferConfiguration
	upserted   *models.BufferConfiguration
}

func (s *stubBufferRepo) ListCandidates(_ context.Context, _, _, _ string) ([]models.BufferConfiguration, error) {
	return s.candidates, nil
}

func (s *stubBufferRepo) ListByClinic(_ context.Context, _ string) ([]models.BufferConfiguration, error) {
	return s.candidates, nil
}

func (s *stubBufferRepo) Upsert(_ context.Context, config *models.BufferConfiguration) error {
	s.upserted = config
	return nil
}

func (s *stubBufferRepo) Delete(_ context.Context, _ string) error {
	return nil
}

func newTestBufferService(repo *stubBufferRepo) *BufferService {
	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	return NewBufferService(repo, cache, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestBufferResolveMostSpecificCandidateWins(t *testing.T) {
	repo := &stubBufferRepo{candidates: []models.BufferConfiguration{
		{ID: "specific", ProviderID: strPtr("prov-1"), AppointmentTypeID: strPtr("type-1"), PreMinutes: 15, PostMinutes: 10},
		{ID: "provider-wide", ProviderID: strPtr("prov-1"), PreMinutes: 5, PostMinutes: 5},
		{ID: "clinic-default", PreMinutes: 0, PostMinutes: 5},
	}}
	svc := newTestBufferService(repo)

	window, err := svc.Resolve(context.Background(), "clinic-1", "prov-1", "type-1")
	require.NoError(t, err)
	assert.Equal(t, models.BufferWindow{Pre: 15, Post: 10}, window)
}

func TestBufferResolveDefaultsToZeroWindow(t *testing.T) {
	svc := newTestBufferService(&stubBufferRepo{})

	window, err := svc.Resolve(context.Background(), "clinic-1", "prov-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.BufferWindow{}, window)
}

func TestBufferUpsertRejectsNegativeMinutes(t *testing.T) {
	svc := newTestBufferService(&stubBufferRepo{})

	_, err := svc.Upsert(context.Background(), "clinic-1", BufferUpsertInput{PreMinutes: -5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBufferUpsertStoresClinicScope(t *testing.T) {
	repo := &stubBufferRepo{}
	svc := newTestBufferService(repo)

	config, err := svc.Upsert(context.Background(), "clinic-1", BufferUpsertInput{PreMinutes: 10, PostMinutes: 5})
	require.NoError(t, err)

	assert.Equal(t, "clinic-1", config.ClinicID)
	assert.Nil(t, config.ProviderID)
	assert.Nil(t, config.AppointmentTypeID)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, 10, repo.upserted.PreMinutes)
}
