package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/pkg/config"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

const fallbackReason = "Available time slot"

// AvailabilityComputer is the engine dependency of the recommender. The
// call is in-process; a computation failure fails the whole request.
type AvailabilityComputer interface {
	ComputeAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
}

// PreferenceReader loads optional soft-preference records.
type PreferenceReader interface {
	GetBySubject(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error)
}

// RecommendationService ranks free windows against provider, patient, and
// appointment-type soft preferences plus temporal proximity.
type RecommendationService struct {
	availability AvailabilityComputer
	preferences  PreferenceReader
	types        AppointmentTypeFinder
	metrics      *MetricsService
	validate     *validator.Validate
	logger       *zap.Logger
	cfg          config.RecommendationsConfig
	now          func() time.Time
}

// NewRecommendationService constructs the slot recommender.
func NewRecommendationService(
	availability AvailabilityComputer,
	preferences PreferenceReader,
	types AppointmentTypeFinder,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.RecommendationsConfig,
) *RecommendationService {
	return &RecommendationService{
		availability: availability,
		preferences:  preferences,
		types:        types,
		metrics:      metrics,
		validate:     validator.New(),
		logger:       logger,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Recommend computes availability for the range and returns the topN
// highest-scoring candidate slots. Zero availability is a valid answer,
// not an error.
func (s *RecommendationService) Recommend(ctx context.Context, req dto.RecommendationRequest) (*dto.RecommendationResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	topN := req.TopN
	if topN <= 0 {
		topN = s.cfg.DefaultTopN
	}
	if s.cfg.MaxTopN > 0 && topN > s.cfg.MaxTopN {
		topN = s.cfg.MaxTopN
	}

	availability, err := s.availability.ComputeAvailability(ctx, dto.AvailabilityRequest{
		ProviderID:        req.ProviderID,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AppointmentTypeID: req.AppointmentTypeID,
	})
	if err != nil {
		return nil, err
	}

	began := time.Now()
	bundle, typeName, err := s.resolveContext(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recommendations := make([]models.SlotRecommendation, 0, len(availability.AvailableBlocks))
	for _, block := range availability.AvailableBlocks {
		slotEnd := block.StartTime.Add(time.Duration(availability.DurationMinutes) * time.Minute)
		score, reasons := scoreSlot(block.StartTime, now, bundle)
		recommendations = append(recommendations, models.SlotRecommendation{
			StartTime:       block.StartTime,
			EndTime:         slotEnd,
			ConfidenceScore: score,
			Reasons:         reasons,
			Date:            block.Date,
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].ConfidenceScore != recommendations[j].ConfidenceScore {
			return recommendations[i].ConfidenceScore > recommendations[j].ConfidenceScore
		}
		return recommendations[i].StartTime.Before(recommendations[j].StartTime)
	})
	if len(recommendations) > topN {
		recommendations = recommendations[:topN]
	}

	s.metrics.ObserveCompute("recommendations", time.Since(began))

	return &dto.RecommendationResponse{
		ProviderID:          req.ProviderID,
		AppointmentTypeID:   req.AppointmentTypeID,
		PatientID:           req.PatientID,
		DateRange:           dto.DateRange{StartDate: req.StartDate, EndDate: req.EndDate},
		TotalSlotsAvailable: len(availability.AvailableBlocks),
		Recommendations:     recommendations,
		Metadata: dto.RecommendationMetadata{
			AppointmentType:        typeName,
			DurationMinutes:        availability.DurationMinutes,
			ProviderHasPreferences: bundle.HasProvider(),
			PatientHasPreferences:  bundle.HasPatient(),
		},
	}, nil
}

// resolveContext loads the preference bundle and appointment-type name.
// The reads are independent and issued concurrently; a missing record is
// score-neutral, a query failure fails the request.
func (s *RecommendationService) resolveContext(ctx context.Context, req dto.RecommendationRequest) (models.PreferenceBundle, string, error) {
	var (
		bundle   models.PreferenceBundle
		typeName string
		wg       sync.WaitGroup
		errs     = make([]error, 4)
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		bundle.Provider, errs[0] = s.lookupPreference(ctx, models.PreferenceSubjectProvider, req.ProviderID)
	}()
	if req.PatientID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle.Patient, errs[1] = s.lookupPreference(ctx, models.PreferenceSubjectPatient, req.PatientID)
		}()
	}
	if req.AppointmentTypeID != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bundle.AppointmentType, errs[2] = s.lookupPreference(ctx, models.PreferenceSubjectAppointmentType, req.AppointmentTypeID)
		}()
		go func() {
			defer wg.Done()
			appointmentType, err := s.types.FindByID(ctx, req.AppointmentTypeID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return
				}
				errs[3] = err
				return
			}
			typeName = appointmentType.Name
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return models.PreferenceBundle{}, "", appErrors.Wrap(err, "PREFERENCE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load scheduling preferences")
		}
	}
	return bundle, typeName, nil
}

func (s *RecommendationService) lookupPreference(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error) {
	pref, err := s.preferences.GetBySubject(ctx, subjectType, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return pref, nil
}

// scoreSlot rates a candidate starting instant against the preference
// bundle and proximity to now. The score starts at 100 and is clamped to
// [0, 100]; only preference-driven adjustments contribute reasons.
func scoreSlot(start, now time.Time, bundle models.PreferenceBundle) (int, []string) {
	score := 100
	var reasons []string

	hour := start.Hour()
	weekday := int(start.Weekday())
	bucket := bucketForHour(hour)

	if pref := bundle.Provider; pref != nil {
		switch {
		case pref.PreferredTimeOfDay == "" || pref.PreferredTimeOfDay == models.TimeOfDayAny:
		case pref.PreferredTimeOfDay == bucket:
			score += 5 * pref.Strength
			reasons = append(reasons, "Matches provider's preferred time of day")
		default:
			score -= 10
			reasons = append(reasons, "Outside provider's preferred time of day")
		}
		if withinHourWindow(pref, hour) {
			score += 15
			reasons = append(reasons, "Within provider's preferred hours")
		}
		if containsDay(pref.AvoidedWeekdays(), weekday) {
			score -= 20
			reasons = append(reasons, "Provider prefers to avoid this day")
		}
	}

	if pref := bundle.AppointmentType; pref != nil {
		if pref.PreferredTimeOfDay != "" && pref.PreferredTimeOfDay != models.TimeOfDayAny && pref.PreferredTimeOfDay == bucket {
			score += 10
			reasons = append(reasons, "Good time of day for this appointment type")
		}
		if withinHourWindow(pref, hour) {
			score += 10
			reasons = append(reasons, "Within the usual hours for this appointment type")
		}
	}

	if pref := bundle.Patient; pref != nil {
		if pref.PreferredTimeOfDay != "" && pref.PreferredTimeOfDay != models.TimeOfDayAny && pref.PreferredTimeOfDay == bucket {
			score += 15
			reasons = append(reasons, "Matches patient's preferred time of day")
		}
		if containsDay(pref.PreferredWeekdays(), weekday) {
			score += 10
			reasons = append(reasons, "On a day the patient prefers")
		}
		if containsDay(pref.AvoidedWeekdays(), weekday) {
			score -= 30
			reasons = append(reasons, "On a day the patient prefers to avoid")
		}
	}

	switch days := daysUntil(now, start); {
	case days <= 0:
		score -= 50
	case days == 1:
		score += 5
	case days <= 3:
		score += 20
	case days <= 7:
		score += 15
	case days <= 14:
		score += 10
	case days <= 30:
		score += 5
	default:
		score -= 5
	}

	if hour >= 8 && hour < 10 {
		score += 5
	}
	if hour < 8 || hour >= 18 {
		score -= 10
	}
	if weekday == 0 || weekday == 6 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if len(reasons) == 0 {
		reasons = []string{fallbackReason}
	}
	return score, reasons
}

func bucketForHour(hour int) models.TimeOfDay {
	switch {
	case hour < 12:
		return models.TimeOfDayMorning
	case hour < 17:
		return models.TimeOfDayAfternoon
	default:
		return models.TimeOfDayEvening
	}
}

func withinHourWindow(pref *models.SchedulingPreference, hour int) bool {
	if pref.PreferredStartHour == nil || pref.PreferredEndHour == nil {
		return false
	}
	return hour >= *pref.PreferredStartHour && hour < *pref.PreferredEndHour
}

func containsDay(days []int, weekday int) bool {
	for _, day := range days {
		if day == weekday {
			return true
		}
	}
	return false
}

// daysUntil returns the whole-day distance between the date of now and the
// date of the slot, both in UTC.
func daysUntil(now, slot time.Time) int {
	nowDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	slotDate := time.Date(slot.Year(), slot.Month(), slot.Day(), 0, 0, 0, 0, time.UTC)
	return int(slotDate.Sub(nowDate) / (24 * time.Hour))
}
