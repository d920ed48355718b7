package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

// WeeklyBlockRepository covers weekly schedule block persistence.
type WeeklyBlockRepository interface {
	ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleBlock, error)
	FindByID(ctx context.Context, id string) (*models.WeeklyScheduleBlock, error)
	Create(ctx context.Context, block *models.WeeklyScheduleBlock) error
	Update(ctx context.Context, block *models.WeeklyScheduleBlock) error
	Delete(ctx context.Context, id string) error
}

// ExceptionRepository covers schedule exception persistence.
type ExceptionRepository interface {
	ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ScheduleException, error)
	Upsert(ctx context.Context, exception *models.ScheduleException) error
	Delete(ctx context.Context, id string) error
}

// WeeklyBlockInput captures a weekly schedule block write.
type WeeklyBlockInput struct {
	DayOfWeek   int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	IsAvailable *bool  `json:"is_available" validate:"required"`
}

// ExceptionInput captures a schedule exception write. StartTime and
// EndTime are required together when the date is open with special hours.
type ExceptionInput struct {
	ExceptionDate string  `json:"exception_date" validate:"required,datetime=2006-01-02"`
	IsAvailable   bool    `json:"is_available"`
	StartTime     *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime       *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Reason        string  `json:"reason" validate:"max=500"`
}

// ScheduleService manages weekly schedule blocks and per-date exceptions.
// Every write invalidates cached availability for the provider.
type ScheduleService struct {
	blocks     WeeklyBlockRepository
	exceptions ExceptionRepository
	cache      *CacheService
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(blocks WeeklyBlockRepository, exceptions ExceptionRepository, cache *CacheService, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		blocks:     blocks,
		exceptions: exceptions,
		cache:      cache,
		validate:   validator.New(),
		logger:     logger,
	}
}

// ListWeeklyBlocks returns every weekly block for a provider.
func (s *ScheduleService) ListWeeklyBlocks(ctx context.Context, providerID string) ([]models.WeeklyScheduleBlock, error) {
	blocks, err := s.blocks.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, appErrors.Wrap(err, "SCHEDULE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list weekly schedule blocks")
	}
	return blocks, nil
}

// CreateWeeklyBlock validates and stores a new weekly block.
func (s *ScheduleService) CreateWeeklyBlock(ctx context.Context, providerID string, input WeeklyBlockInput) (*models.WeeklyScheduleBlock, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}
	if input.EndTime <= input.StartTime {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "end_time must be after start_time")
	}

	block := &models.WeeklyScheduleBlock{
		ProviderID:  providerID,
		DayOfWeek:   input.DayOfWeek,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		IsAvailable: *input.IsAvailable,
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, "SCHEDULE_WRITE_FAILED", http.StatusInternalServerError, "failed to create weekly schedule block")
	}
	s.invalidate(ctx, providerID)
	return block, nil
}

// UpdateWeeklyBlock validates and applies changes to an existing block.
func (s *ScheduleService) UpdateWeeklyBlock(ctx context.Context, id string, input WeeklyBlockInput) (*models.WeeklyScheduleBlock, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}
	if input.EndTime <= input.StartTime {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "end_time must be after start_time")
	}

	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly schedule block not found")
		}
		return nil, appErrors.Wrap(err, "SCHEDULE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load weekly schedule block")
	}

	block.DayOfWeek = input.DayOfWeek
	block.StartTime = input.StartTime
	block.EndTime = input.EndTime
	block.IsAvailable = *input.IsAvailable
	if err := s.blocks.Update(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, "SCHEDULE_WRITE_FAILED", http.StatusInternalServerError, "failed to update weekly schedule block")
	}
	s.invalidate(ctx, block.ProviderID)
	return block, nil
}

// DeleteWeeklyBlock removes a weekly block.
func (s *ScheduleService) DeleteWeeklyBlock(ctx context.Context, id string) error {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly schedule block not found")
		}
		return appErrors.Wrap(err, "SCHEDULE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load weekly schedule block")
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, "SCHEDULE_WRITE_FAILED", http.StatusInternalServerError, "failed to delete weekly schedule block")
	}
	s.invalidate(ctx, block.ProviderID)
	return nil
}

// ListExceptions returns exceptions for a provider within [from, to].
func (s *ScheduleService) ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]models.ScheduleException, error) {
	exceptions, err := s.exceptions.ListByProviderRange(ctx, providerID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, "SCHEDULE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list schedule exceptions")
	}
	return exceptions, nil
}

// UpsertException creates or replaces the exception for a provider+date.
// An open exception either carries both special-hours bounds or neither.
func (s *ScheduleService) UpsertException(ctx context.Context, providerID string, input ExceptionInput) (*models.ScheduleException, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}
	if (input.StartTime == nil) != (input.EndTime == nil) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if input.StartTime != nil && *input.EndTime <= *input.StartTime {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "end_time must be after start_time")
	}

	date, err := time.ParseInLocation(dateLayout, input.ExceptionDate, time.UTC)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "exception_date must be YYYY-MM-DD")
	}

	exception := &models.ScheduleException{
		ProviderID:    providerID,
		ExceptionDate: date,
		IsAvailable:   input.IsAvailable,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		Reason:        input.Reason,
	}
	if err := s.exceptions.Upsert(ctx, exception); err != nil {
		return nil, appErrors.Wrap(err, "SCHEDULE_WRITE_FAILED", http.StatusInternalServerError, "failed to save schedule exception")
	}
	s.invalidate(ctx, providerID)
	return exception, nil
}

// DeleteException removes an exception.
func (s *ScheduleService) DeleteException(ctx context.Context, providerID, id string) error {
	if err := s.exceptions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, "SCHEDULE_WRITE_FAILED", http.StatusInternalServerError, "failed to delete schedule exception")
	}
	s.invalidate(ctx, providerID)
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context, providerID string) {
	if err := s.cache.Invalidate(ctx, "availability:"+providerID+":*"); err != nil && s.logger != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("provider_id", providerID), zap.Error(err))
	}
}
