package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

// BufferConfigRepository abstracts persistence for buffer configurations.
type BufferConfigRepository interface {
	ListCandidates(ctx context.Context, clinicID, providerID, appointmentTypeID string) ([]models.BufferConfiguration, error)
	ListByClinic(ctx context.Context, clinicID string) ([]models.BufferConfiguration, error)
	Upsert(ctx context.Context, config *models.BufferConfiguration) error
	Delete(ctx context.Context, id string) error
}

// BufferUpsertInput captures a buffer configuration write.
type BufferUpsertInput struct {
	ProviderID        *string `json:"provider_id" validate:"omitempty,uuid4"`
	AppointmentTypeID *string `json:"appointment_type_id" validate:"omitempty,uuid4"`
	PreMinutes        int     `json:"pre_minutes" validate:"min=0,max=120"`
	PostMinutes       int     `json:"post_minutes" validate:"min=0,max=120"`
}

// BufferService resolves and manages pre/post appointment padding.
type BufferService struct {
	repo     BufferConfigRepository
	cache    *CacheService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBufferService constructs a buffer service.
func NewBufferService(repo BufferConfigRepository, cache *CacheService, logger *zap.Logger) *BufferService {
	return &BufferService{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

// Resolve returns the buffer window that applies to the given provider and
// appointment type. Candidates are ordered most specific first, so the
// first row wins; no matching row resolves to a zero window.
func (s *BufferService) Resolve(ctx context.Context, clinicID, providerID, appointmentTypeID string) (models.BufferWindow, error) {
	candidates, err := s.repo.ListCandidates(ctx, clinicID, providerID, appointmentTypeID)
	if err != nil {
		return models.BufferWindow{}, appErrors.Wrap(err, "BUFFER_LOOKUP_FAILED", http.StatusInternalServerError, "failed to resolve buffer configuration")
	}
	if len(candidates) == 0 {
		return models.BufferWindow{}, nil
	}
	winner := candidates[0]
	return models.BufferWindow{Pre: winner.PreMinutes, Post: winner.PostMinutes}, nil
}

// List returns all buffer configurations for a clinic.
func (s *BufferService) List(ctx context.Context, clinicID string) ([]models.BufferConfiguration, error) {
	configs, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, appErrors.Wrap(err, "BUFFER_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list buffer configurations")
	}
	return configs, nil
}

// Upsert creates or replaces the buffer configuration for its scope and
// invalidates cached availability, since padding changes every computed
// free window.
func (s *BufferService) Upsert(ctx context.Context, clinicID string, input BufferUpsertInput) (*models.BufferConfiguration, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	config := &models.BufferConfiguration{
		ClinicID:          clinicID,
		ProviderID:        input.ProviderID,
		AppointmentTypeID: input.AppointmentTypeID,
		PreMinutes:        input.PreMinutes,
		PostMinutes:       input.PostMinutes,
	}
	if err := s.repo.Upsert(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, "BUFFER_WRITE_FAILED", http.StatusInternalServerError, "failed to save buffer configuration")
	}

	s.invalidateAvailability(ctx, input.ProviderID)
	return config, nil
}

// Delete removes a buffer configuration.
func (s *BufferService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "buffer configuration not found")
		}
		return appErrors.Wrap(err, "BUFFER_WRITE_FAILED", http.StatusInternalServerError, "failed to delete buffer configuration")
	}
	s.invalidateAvailability(ctx, nil)
	return nil
}

func (s *BufferService) invalidateAvailability(ctx context.Context, providerID *string) {
	pattern := "availability:*"
	if providerID != nil && *providerID != "" {
		pattern = "availability:" + *providerID + ":*"
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil && s.logger != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
