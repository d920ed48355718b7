package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/pkg/config"
)

type stubAvailability struct {
	resp *dto.AvailabilityResponse
	err  error
}

func (s *stubAvailability) ComputeAvailability(_ context.Context, _ dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	return s.resp, s.err
}

type stubPreferences struct {
	bySubject map[models.PreferenceSubject]*models.SchedulingPreference
}

func (s *stubPreferences) GetBySubject(_ context.Context, subjectType models.PreferenceSubject, _ string) (*models.SchedulingPreference, error) {
	pref, ok := s.bySubject[subjectType]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return pref, nil
}

func newTestRecommendationService(avail *stubAvailability, prefs *stubPreferences, typeRecord *models.AppointmentType) *RecommendationService {
	if prefs == nil {
		prefs = &stubPreferences{}
	}
	svc := NewRecommendationService(
		avail,
		prefs,
		&stubTypeFinder{record: typeRecord},
		NewMetricsService(),
		zap.NewNop(),
		config.RecommendationsConfig{DefaultTopN: 5, MaxTopN: 25},
	)
	svc.now = func() time.Time { return utcTime("2025-06-01", "08:00") }
	return svc
}

func availabilityFor(blocks ...models.AvailabilityBlock) *dto.AvailabilityResponse {
	return &dto.AvailabilityResponse{
		ProviderID:      "prov-1",
		StartDate:       mondayDate,
		EndDate:         mondayDate,
		DurationMinutes: 30,
		AvailableBlocks: blocks,
	}
}

func blockAt(date, clock string) models.AvailabilityBlock {
	start := utcTime(date, clock)
	return models.AvailabilityBlock{
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		DayOfWeek: int(start.Weekday()),
		Date:      date,
	}
}

func recommendationRequest() dto.RecommendationRequest {
	return dto.RecommendationRequest{
		ProviderID: "prov-1",
		StartDate:  mondayDate,
		EndDate:    mondayDate,
	}
}

func TestRecommendEmptyAvailabilityIsNotAnError(t *testing.T) {
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor()}, nil, nil)

	resp, err := svc.Recommend(context.Background(), recommendationRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Recommendations)
	assert.Equal(t, 0, resp.TotalSlotsAvailable)
}

func TestRecommendSlotSizedToRequestedDuration(t *testing.T) {
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(blockAt(mondayDate, "09:00"))}, nil, nil)

	resp, err := svc.Recommend(context.Background(), recommendationRequest())
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 1)
	slot := resp.Recommendations[0]
	assert.Equal(t, utcTime(mondayDate, "09:00"), slot.StartTime)
	assert.Equal(t, utcTime(mondayDate, "09:30"), slot.EndTime)
	assert.Equal(t, mondayDate, slot.Date)
}

func TestRecommendFallbackReasonWithoutPreferences(t *testing.T) {
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(blockAt(mondayDate, "09:00"))}, nil, nil)

	resp, err := svc.Recommend(context.Background(), recommendationRequest())
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, []string{fallbackReason}, resp.Recommendations[0].Reasons)
}

func TestRecommendScoresStayWithinBounds(t *testing.T) {
	strong := &models.SchedulingPreference{
		SubjectType:        models.PreferenceSubjectProvider,
		SubjectID:          "prov-1",
		PreferredTimeOfDay: models.TimeOfDayMorning,
		Strength:           10,
	}
	prefs := &stubPreferences{bySubject: map[models.PreferenceSubject]*models.SchedulingPreference{
		models.PreferenceSubjectProvider: strong,
	}}
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(
		blockAt(mondayDate, "09:00"),
		blockAt(mondayDate, "19:00"),
	)}, prefs, nil)

	resp, err := svc.Recommend(context.Background(), recommendationRequest())
	require.NoError(t, err)

	for _, rec := range resp.Recommendations {
		assert.GreaterOrEqual(t, rec.ConfidenceScore, 0)
		assert.LessOrEqual(t, rec.ConfidenceScore, 100)
	}
}

func TestRecommendRanksByScoreWithChronologicalTiebreak(t *testing.T) {
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(
		blockAt(mondayDate, "14:00"),
		blockAt(mondayDate, "13:00"),
	)}, nil, nil)

	resp, err := svc.Recommend(context.Background(), recommendationRequest())
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, resp.Recommendations[0].ConfidenceScore, resp.Recommendations[1].ConfidenceScore)
	assert.True(t, resp.Recommendations[0].StartTime.Before(resp.Recommendations[1].StartTime))
}

func TestRecommendTruncatesToTopN(t *testing.T) {
	blocks := []models.AvailabilityBlock{
		blockAt(mondayDate, "09:00"),
		blockAt(mondayDate, "10:00"),
		blockAt(mondayDate, "11:00"),
	}
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(blocks...)}, nil, nil)

	req := recommendationRequest()
	req.TopN = 2
	resp, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, resp.Recommendations, 2)
	assert.Equal(t, 3, resp.TotalSlotsAvailable)
}

func TestRecommendPropagatesAvailabilityFailure(t *testing.T) {
	svc := newTestRecommendationService(&stubAvailability{err: assert.AnError}, nil, nil)

	_, err := svc.Recommend(context.Background(), recommendationRequest())
	require.Error(t, err)
}

func TestRecommendMetadataReflectsPreferences(t *testing.T) {
	prefs := &stubPreferences{bySubject: map[models.PreferenceSubject]*models.SchedulingPreference{
		models.PreferenceSubjectProvider: {SubjectType: models.PreferenceSubjectProvider, PreferredTimeOfDay: models.TimeOfDayAny},
		models.PreferenceSubjectPatient:  {SubjectType: models.PreferenceSubjectPatient, PreferredTimeOfDay: models.TimeOfDayAny},
	}}
	typeRecord := &models.AppointmentType{ID: "type-1", Name: "Consultation"}
	svc := newTestRecommendationService(&stubAvailability{resp: availabilityFor(blockAt(mondayDate, "09:00"))}, prefs, typeRecord)

	req := recommendationRequest()
	req.PatientID = "pat-1"
	req.AppointmentTypeID = "type-1"
	resp, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.Metadata.ProviderHasPreferences)
	assert.True(t, resp.Metadata.PatientHasPreferences)
	assert.Equal(t, "Consultation", resp.Metadata.AppointmentType)
	assert.Equal(t, 30, resp.Metadata.DurationMinutes)
}

func TestScoreSlotProximityTiers(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")

	cases := []struct {
		name     string
		start    time.Time
		expected int
	}{
		{"same day", utcTime("2025-06-01", "14:00"), 45},     // 100 - 50, -5 Sunday
		{"tomorrow", utcTime("2025-06-02", "14:00"), 100},    // 100 + 5, clamped
		{"three days", utcTime("2025-06-04", "14:00"), 100},  // 100 + 20, clamped
		{"over a month", utcTime("2025-07-10", "14:00"), 95}, // 100 - 5
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, reasons := scoreSlot(tc.start, now, models.PreferenceBundle{})
			assert.Equal(t, tc.expected, score)
			assert.Equal(t, []string{fallbackReason}, reasons)
		})
	}
}

func TestScoreSlotPatientAvoidedDayPenalty(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")
	patient := &models.SchedulingPreference{
		SubjectType: models.PreferenceSubjectPatient,
		AvoidedDays: []byte("[1]"),
	}

	// A far-out Monday keeps both scores below the clamp.
	slot := utcTime("2025-07-14", "14:00")
	neutral, _ := scoreSlot(slot, now, models.PreferenceBundle{})
	penalised, reasons := scoreSlot(slot, now, models.PreferenceBundle{Patient: patient})

	assert.Equal(t, neutral-30, penalised)
	assert.Contains(t, reasons, "On a day the patient prefers to avoid")
}

func TestScoreSlotProviderStrengthScalesBonus(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")
	weak := &models.SchedulingPreference{PreferredTimeOfDay: models.TimeOfDayAfternoon, Strength: 1}
	strong := &models.SchedulingPreference{PreferredTimeOfDay: models.TimeOfDayAfternoon, Strength: 4}

	// The patient avoided-day penalty drags both scores well below the
	// clamp so the strength-scaled bonus stays visible.
	patient := &models.SchedulingPreference{AvoidedDays: []byte("[1]")}
	slot := utcTime("2025-07-14", "14:00")
	weakScore, _ := scoreSlot(slot, now, models.PreferenceBundle{Provider: weak, Patient: patient})
	strongScore, _ := scoreSlot(slot, now, models.PreferenceBundle{Provider: strong, Patient: patient})

	assert.Equal(t, 15, strongScore-weakScore)
}

func TestScoreSlotOffHoursAndWeekendPenalties(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")

	offHours, _ := scoreSlot(utcTime("2025-07-10", "19:00"), now, models.PreferenceBundle{}) // Thursday evening
	daytime, _ := scoreSlot(utcTime("2025-07-10", "14:00"), now, models.PreferenceBundle{})
	assert.Equal(t, daytime-10, offHours)

	weekend, _ := scoreSlot(utcTime("2025-07-12", "14:00"), now, models.PreferenceBundle{}) // Saturday
	assert.Equal(t, daytime-5, weekend)
}

func TestScoreSlotEarlyMorningBonus(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")

	early, _ := scoreSlot(utcTime("2025-07-10", "09:00"), now, models.PreferenceBundle{})
	midday, _ := scoreSlot(utcTime("2025-07-10", "14:00"), now, models.PreferenceBundle{})
	assert.Equal(t, midday+5, early)
}

func TestScoreSlotProviderMismatchPenalty(t *testing.T) {
	now := utcTime("2025-06-01", "08:00")
	provider := &models.SchedulingPreference{PreferredTimeOfDay: models.TimeOfDayMorning, Strength: 5}

	slot := utcTime("2025-07-10", "14:00")
	neutral, _ := scoreSlot(slot, now, models.PreferenceBundle{})
	mismatch, reasons := scoreSlot(slot, now, models.PreferenceBundle{Provider: provider})

	assert.Equal(t, neutral-10, mismatch)
	assert.Contains(t, reasons, "Outside provider's preferred time of day")
}
