package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

// PreferenceRepository covers scheduling preference persistence.
type PreferenceRepository interface {
	GetBySubject(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error)
	Upsert(ctx context.Context, pref *models.SchedulingPreference) error
	Delete(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) error
}

// PreferenceInput captures a scheduling preference write.
type PreferenceInput struct {
	PreferredTimeOfDay string `json:"preferred_time_of_day" validate:"omitempty,oneof=morning afternoon evening any"`
	PreferredStartHour *int   `json:"preferred_start_hour" validate:"omitempty,min=0,max=23"`
	PreferredEndHour   *int   `json:"preferred_end_hour" validate:"omitempty,min=1,max=24"`
	PreferredDays      []int  `json:"preferred_days" validate:"dive,min=0,max=6"`
	AvoidedDays        []int  `json:"avoided_days" validate:"dive,min=0,max=6"`
	Strength           int    `json:"strength" validate:"omitempty,min=1,max=10"`
}

// PreferenceService manages the optional soft-preference records consumed
// by the slot recommender.
type PreferenceService struct {
	repo     PreferenceRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPreferenceService constructs the preference service.
func NewPreferenceService(repo PreferenceRepository, logger *zap.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, validate: validator.New(), logger: logger}
}

// Get returns the preference for a subject. A missing record is reported
// as not found; callers that treat absence as neutral do their own lookup.
func (s *PreferenceService) Get(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error) {
	pref, err := s.repo.GetBySubject(ctx, subjectType, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling preference not found")
		}
		return nil, appErrors.Wrap(err, "PREFERENCE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load scheduling preference")
	}
	return pref, nil
}

// Upsert creates or replaces the preference for a subject.
func (s *PreferenceService) Upsert(ctx context.Context, subjectType models.PreferenceSubject, subjectID string, input PreferenceInput) (*models.SchedulingPreference, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}
	if input.PreferredStartHour != nil && input.PreferredEndHour != nil && *input.PreferredEndHour <= *input.PreferredStartHour {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "preferred_end_hour must be after preferred_start_hour")
	}

	timeOfDay := models.TimeOfDay(input.PreferredTimeOfDay)
	if timeOfDay == "" {
		timeOfDay = models.TimeOfDayAny
	}
	strength := input.Strength
	if strength == 0 {
		strength = 5
	}

	pref := &models.SchedulingPreference{
		SubjectType:        subjectType,
		SubjectID:          subjectID,
		PreferredTimeOfDay: timeOfDay,
		PreferredStartHour: input.PreferredStartHour,
		PreferredEndHour:   input.PreferredEndHour,
		PreferredDays:      encodeDays(input.PreferredDays),
		AvoidedDays:        encodeDays(input.AvoidedDays),
		Strength:           strength,
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, "PREFERENCE_WRITE_FAILED", http.StatusInternalServerError, "failed to save scheduling preference")
	}
	return pref, nil
}

// Delete removes the preference for a subject.
func (s *PreferenceService) Delete(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) error {
	if err := s.repo.Delete(ctx, subjectType, subjectID); err != nil {
		return appErrors.Wrap(err, "PREFERENCE_WRITE_FAILED", http.StatusInternalServerError, "failed to delete scheduling preference")
	}
	return nil
}

func encodeDays(days []int) types.JSONText {
	if days == nil {
		days = []int{}
	}
	raw, _ := json.Marshal(days)
	return types.JSONText(raw)
}
