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
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

// mondayDate is a known Monday used across engine tests.
const mondayDate = "2025-06-02"

type availabilityStubs struct {
	provider   *models.Provider
	weekly     []models.WeeklyScheduleBlock
	exceptions []models.ScheduleException
	busy       []models.Appointment
	buffers    models.BufferWindow
	typeRecord *models.AppointmentType
}

func (s *availabilityStubs) FindByID(_ context.Context, id string) (*models.Provider, error) {
	return s.provider, nil
}

func (s *availabilityStubs) ListByProvider(_ context.Context, _ string) ([]models.WeeklyScheduleBlock, error) {
	return s.weekly, nil
}

func (s *availabilityStubs) ListByProviderRange(_ context.Context, _ string, _, _ time.Time) ([]models.ScheduleException, error) {
	return s.exceptions, nil
}

func (s *availabilityStubs) ListBusyByProviderRange(_ context.Context, _ string, _, _ time.Time) ([]models.Appointment, error) {
	return s.busy, nil
}

func (s *availabilityStubs) Resolve(_ context.Context, _, _, _ string) (models.BufferWindow, error) {
	return s.buffers, nil
}

type stubTypeFinder struct {
	record *models.AppointmentType
}

func (s *stubTypeFinder) FindByID(_ context.Context, _ string) (*models.AppointmentType, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func newTestAvailabilityService(stubs *availabilityStubs) *AvailabilityService {
	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	return NewAvailabilityService(
		stubs,
		stubs,
		stubs,
		stubs,
		&stubTypeFinder{record: stubs.typeRecord},
		stubs,
		cache,
		NewMetricsService(),
		zap.NewNop(),
		config.AvailabilityConfig{DefaultDurationMinutes: 30, MaxRangeDays: 90, CacheTTL: time.Minute},
	)
}

func mondayRequest() dto.AvailabilityRequest {
	return dto.AvailabilityRequest{
		ProviderID: "prov-1",
		StartDate:  mondayDate,
		EndDate:    mondayDate,
	}
}

func utcTime(date, clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func mondayMorningBlock() models.WeeklyScheduleBlock {
	return models.WeeklyScheduleBlock{
		ID:          "blk-1",
		ProviderID:  "prov-1",
		DayOfWeek:   1,
		StartTime:   "09:00",
		EndTime:     "12:00",
		IsAvailable: true,
	}
}

func TestComputeAvailabilityWholeBlockFree(t *testing.T) {
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{mondayMorningBlock()},
	}
	svc := newTestAvailabilityService(stubs)

	resp, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)

	require.Len(t, resp.AvailableBlocks, 1)
	block := resp.AvailableBlocks[0]
	assert.Equal(t, utcTime(mondayDate, "09:00"), block.StartTime)
	assert.Equal(t, utcTime(mondayDate, "12:00"), block.EndTime)
	assert.Equal(t, 1, block.DayOfWeek)
	assert.Equal(t, mondayDate, block.Date)
	assert.Equal(t, 30, resp.DurationMinutes)
}

func TestComputeAvailabilitySplitsAroundBufferedAppointment(t *testing.T) {
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{mondayMorningBlock()},
		busy: []models.Appointment{{
			ID:              "appt-1",
			ProviderID:      "prov-1",
			AppointmentDate: utcTime(mondayDate, "10:00"),
			DurationMinutes: 30,
			Status:          models.AppointmentScheduled,
		}},
		buffers: models.BufferWindow{Pre: 10, Post: 10},
	}
	svc := newTestAvailabilityService(stubs)

	resp, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)

	require.Len(t, resp.AvailableBlocks, 2)
	assert.Equal(t, utcTime(mondayDate, "09:00"), resp.AvailableBlocks[0].StartTime)
	assert.Equal(t, utcTime(mondayDate, "09:50"), resp.AvailableBlocks[0].EndTime)
	assert.Equal(t, utcTime(mondayDate, "10:40"), resp.AvailableBlocks[1].StartTime)
	assert.Equal(t, utcTime(mondayDate, "12:00"), resp.AvailableBlocks[1].EndTime)
	assert.Equal(t, models.BufferWindow{Pre: 10, Post: 10}, resp.Buffers)
}

func TestComputeAvailabilityDropsGapsShorterThanDuration(t *testing.T) {
	short := mondayMorningBlock()
	short.EndTime = "09:45"
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{short},
	}
	svc := newTestAvailabilityService(stubs)

	req := mondayRequest()
	req.DurationMinutes = 60
	resp, err := svc.ComputeAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.AvailableBlocks)
}

func TestComputeAvailabilityClosedExceptionSkipsDay(t *testing.T) {
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{mondayMorningBlock()},
		exceptions: []models.ScheduleException{{
			ID:            "exc-1",
			ProviderID:    "prov-1",
			ExceptionDate: utcTime(mondayDate, "00:00"),
			IsAvailable:   false,
			Reason:        "public holiday",
		}},
	}
	svc := newTestAvailabilityService(stubs)

	resp, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.AvailableBlocks)
}

func TestComputeAvailabilitySpecialHoursReplaceWeeklyBlocks(t *testing.T) {
	start := "14:00"
	end := "16:00"
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{mondayMorningBlock()},
		exceptions: []models.ScheduleException{{
			ID:            "exc-1",
			ProviderID:    "prov-1",
			ExceptionDate: utcTime(mondayDate, "00:00"),
			IsAvailable:   true,
			StartTime:     &start,
			EndTime:       &end,
		}},
	}
	svc := newTestAvailabilityService(stubs)

	resp, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)

	require.Len(t, resp.AvailableBlocks, 1)
	assert.Equal(t, utcTime(mondayDate, "14:00"), resp.AvailableBlocks[0].StartTime)
	assert.Equal(t, utcTime(mondayDate, "16:00"), resp.AvailableBlocks[0].EndTime)
}

func TestComputeAvailabilityBreakBlockSplitsWorkingDay(t *testing.T) {
	workday := mondayMorningBlock()
	workday.EndTime = "17:00"
	lunch := models.WeeklyScheduleBlock{
		ID:          "blk-2",
		ProviderID:  "prov-1",
		DayOfWeek:   1,
		StartTime:   "12:00",
		EndTime:     "13:00",
		IsAvailable: false,
	}
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{workday, lunch},
	}
	svc := newTestAvailabilityService(stubs)

	resp, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)

	require.Len(t, resp.AvailableBlocks, 2)
	assert.Equal(t, utcTime(mondayDate, "09:00"), resp.AvailableBlocks[0].StartTime)
	assert.Equal(t, utcTime(mondayDate, "12:00"), resp.AvailableBlocks[0].EndTime)
	assert.Equal(t, utcTime(mondayDate, "13:00"), resp.AvailableBlocks[1].StartTime)
	assert.Equal(t, utcTime(mondayDate, "17:00"), resp.AvailableBlocks[1].EndTime)
}

func TestComputeAvailabilityIsIdempotent(t *testing.T) {
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{mondayMorningBlock()},
		busy: []models.Appointment{{
			ID:              "appt-1",
			ProviderID:      "prov-1",
			AppointmentDate: utcTime(mondayDate, "10:00"),
			DurationMinutes: 30,
			Status:          models.AppointmentConfirmed,
		}},
	}
	svc := newTestAvailabilityService(stubs)

	first, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)
	second, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeAvailabilityRejectsMissingProviderID(t *testing.T) {
	svc := newTestAvailabilityService(&availabilityStubs{provider: &models.Provider{ID: "prov-1"}})

	req := mondayRequest()
	req.ProviderID = ""
	_, err := svc.ComputeAvailability(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestComputeAvailabilityRejectsInvertedRange(t *testing.T) {
	svc := newTestAvailabilityService(&availabilityStubs{provider: &models.Provider{ID: "prov-1"}})

	req := mondayRequest()
	req.StartDate = "2025-06-03"
	req.EndDate = "2025-06-02"
	_, err := svc.ComputeAvailability(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErrors.FromError(err).Code)
}

func TestComputeAvailabilityRejectsOversizedRange(t *testing.T) {
	svc := newTestAvailabilityService(&availabilityStubs{provider: &models.Provider{ID: "prov-1"}})

	req := mondayRequest()
	req.EndDate = "2025-12-01"
	_, err := svc.ComputeAvailability(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErrors.FromError(err).Code)
}

func TestComputeAvailabilitySurfacesMalformedClockTimes(t *testing.T) {
	broken := mondayMorningBlock()
	broken.StartTime = "9am"
	stubs := &availabilityStubs{
		provider: &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:   []models.WeeklyScheduleBlock{broken},
	}
	svc := newTestAvailabilityService(stubs)

	_, err := svc.ComputeAvailability(context.Background(), mondayRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleIntegrity.Code, appErrors.FromError(err).Code)
}

func TestComputeAvailabilityUsesAppointmentTypeDuration(t *testing.T) {
	stubs := &availabilityStubs{
		provider:   &models.Provider{ID: "prov-1", ClinicID: "clinic-1"},
		weekly:     []models.WeeklyScheduleBlock{mondayMorningBlock()},
		typeRecord: &models.AppointmentType{ID: "type-1", DefaultDurationMinutes: 45},
	}
	svc := newTestAvailabilityService(stubs)

	req := mondayRequest()
	req.AppointmentTypeID = "type-1"
	resp, err := svc.ComputeAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 45, resp.DurationMinutes)
}

func TestComputeFreeBlocksMergesBridgedBusyPeriods(t *testing.T) {
	// Two appointments whose buffers bridge the gap between them must
	// yield a single busy period, not a bookable sliver.
	day := utcTime(mondayDate, "00:00")
	blocks, err := computeFreeBlocks(
		day, day, 30,
		models.BufferWindow{Pre: 15, Post: 15},
		[]models.WeeklyScheduleBlock{mondayMorningBlock()},
		nil,
		[]models.Appointment{
			{ID: "a", AppointmentDate: utcTime(mondayDate, "09:30"), DurationMinutes: 30, Status: models.AppointmentScheduled},
			{ID: "b", AppointmentDate: utcTime(mondayDate, "10:15"), DurationMinutes: 30, Status: models.AppointmentScheduled},
		},
	)
	require.NoError(t, err)

	require.Len(t, blocks, 1)
	assert.Equal(t, utcTime(mondayDate, "11:00"), blocks[0].StartTime)
	assert.Equal(t, utcTime(mondayDate, "12:00"), blocks[0].EndTime)
}

func TestComputeFreeBlocksIgnoresCancelledAppointments(t *testing.T) {
	day := utcTime(mondayDate, "00:00")
	blocks, err := computeFreeBlocks(
		day, day, 30,
		models.BufferWindow{},
		[]models.WeeklyScheduleBlock{mondayMorningBlock()},
		nil,
		[]models.Appointment{{
			ID:              "a",
			AppointmentDate: utcTime(mondayDate, "10:00"),
			DurationMinutes: 30,
			Status:          models.AppointmentCancelled,
		}},
	)
	require.NoError(t, err)

	require.Len(t, blocks, 1)
	assert.Equal(t, utcTime(mondayDate, "09:00"), blocks[0].StartTime)
	assert.Equal(t, utcTime(mondayDate, "12:00"), blocks[0].EndTime)
}
