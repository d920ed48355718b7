package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	"github.com/halcyon-health/clinic-emr-api/internal/interval"
	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/pkg/config"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// WeeklyBlockLister loads the recurring schedule rules for a provider.
type WeeklyBlockLister interface {
	ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleBlock, error)
}

// ExceptionLister loads per-date schedule overrides.
type ExceptionLister interface {
	ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ScheduleException, error)
}

// BusyAppointmentLister loads the appointments that occupy provider time.
type BusyAppointmentLister interface {
	ListBusyByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.Appointment, error)
}

// ProviderFinder resolves a provider record.
type ProviderFinder interface {
	FindByID(ctx context.Context, id string) (*models.Provider, error)
}

// AppointmentTypeFinder resolves an appointment type record.
type AppointmentTypeFinder interface {
	FindByID(ctx context.Context, id string) (*models.AppointmentType, error)
}

// BufferResolver resolves the applicable pre/post padding window.
type BufferResolver interface {
	Resolve(ctx context.Context, clinicID, providerID, appointmentTypeID string) (models.BufferWindow, error)
}

// AvailabilityService computes free bookable windows for a provider over an
// inclusive date range. All instants are UTC.
type AvailabilityService struct {
	providers    ProviderFinder
	schedules    WeeklyBlockLister
	exceptions   ExceptionLister
	appointments BusyAppointmentLister
	types        AppointmentTypeFinder
	buffers      BufferResolver
	cache        *CacheService
	metrics      *MetricsService
	validate     *validator.Validate
	logger       *zap.Logger
	cfg          config.AvailabilityConfig
}

// NewAvailabilityService constructs the availability engine.
func NewAvailabilityService(
	providers ProviderFinder,
	schedules WeeklyBlockLister,
	exceptions ExceptionLister,
	appointments BusyAppointmentLister,
	types AppointmentTypeFinder,
	buffers BufferResolver,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.AvailabilityConfig,
) *AvailabilityService {
	return &AvailabilityService{
		providers:    providers,
		schedules:    schedules,
		exceptions:   exceptions,
		appointments: appointments,
		types:        types,
		buffers:      buffers,
		cache:        cache,
		metrics:      metrics,
		validate:     validator.New(),
		logger:       logger,
		cfg:          cfg,
	}
}

type availabilityInputs struct {
	weekly     []models.WeeklyScheduleBlock
	exceptions []models.ScheduleException
	busy       []models.Appointment
	buffers    models.BufferWindow
}

// ComputeAvailability validates the request, gathers schedule inputs, and
// returns every free window of at least the requested duration.
func (s *AvailabilityService) ComputeAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	provider, err := s.providers.FindByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, "PROVIDER_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load provider")
	}

	duration, err := s.resolveDuration(ctx, req)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("availability:%s:%s:%s:%d:%s", req.ProviderID, req.StartDate, req.EndDate, duration, req.AppointmentTypeID)
	var cached dto.AvailabilityResponse
	if hit, cacheErr := s.cache.Get(ctx, cacheKey, &cached); cacheErr == nil && hit {
		return &cached, nil
	}

	began := time.Now()
	inputs, err := s.fetchInputs(ctx, provider.ClinicID, req.ProviderID, req.AppointmentTypeID, start, end)
	if err != nil {
		return nil, err
	}

	blocks, err := computeFreeBlocks(start, end, duration, inputs.buffers, inputs.weekly, inputs.exceptions, inputs.busy)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCompute("availability", time.Since(began))
	s.metrics.ObserveBlocksReturned(len(blocks))

	resp := &dto.AvailabilityResponse{
		ProviderID:      req.ProviderID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		DurationMinutes: duration,
		Buffers:         inputs.buffers,
		AvailableBlocks: blocks,
	}

	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("failed to cache availability", zap.String("key", cacheKey), zap.Error(err))
	}

	return resp, nil
}

func (s *AvailabilityService) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.WithDetails(appErrors.ErrInvalidDateRange, "start_date must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.WithDetails(appErrors.ErrInvalidDateRange, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.WithDetails(appErrors.ErrInvalidDateRange, "end_date must not precede start_date")
	}
	if maxDays := s.cfg.MaxRangeDays; maxDays > 0 {
		if int(end.Sub(start).Hours()/24)+1 > maxDays {
			return time.Time{}, time.Time{}, appErrors.WithDetails(appErrors.ErrInvalidDateRange, fmt.Sprintf("date range exceeds %d days", maxDays))
		}
	}
	return start, end, nil
}

func (s *AvailabilityService) resolveDuration(ctx context.Context, req dto.AvailabilityRequest) (int, error) {
	if req.DurationMinutes > 0 {
		return req.DurationMinutes, nil
	}
	if req.AppointmentTypeID != "" {
		appointmentType, err := s.types.FindByID(ctx, req.AppointmentTypeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
			}
			return 0, appErrors.Wrap(err, "APPOINTMENT_TYPE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load appointment type")
		}
		if appointmentType.DefaultDurationMinutes > 0 {
			return appointmentType.DefaultDurationMinutes, nil
		}
	}
	return s.cfg.DefaultDurationMinutes, nil
}

// fetchInputs issues the four independent reads concurrently. Any failure
// fails the whole request.
func (s *AvailabilityService) fetchInputs(ctx context.Context, clinicID, providerID, appointmentTypeID string, start, end time.Time) (*availabilityInputs, error) {
	inputs := &availabilityInputs{}
	errs := make([]error, 4)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		inputs.weekly, errs[0] = s.schedules.ListByProvider(ctx, providerID)
	}()
	go func() {
		defer wg.Done()
		inputs.exceptions, errs[1] = s.exceptions.ListByProviderRange(ctx, providerID, start, end)
	}()
	go func() {
		defer wg.Done()
		inputs.busy, errs[2] = s.appointments.ListBusyByProviderRange(ctx, providerID, start, end.AddDate(0, 0, 1))
	}()
	go func() {
		defer wg.Done()
		inputs.buffers, errs[3] = s.buffers.Resolve(ctx, clinicID, providerID, appointmentTypeID)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, appErrors.Wrap(err, "SCHEDULE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load schedule data")
		}
	}
	return inputs, nil
}

// computeFreeBlocks walks each calendar day in [start, end] and emits the
// free windows that satisfy the requested duration. It is a pure function
// of its inputs.
func computeFreeBlocks(start, end time.Time, durationMinutes int, buffers models.BufferWindow, weekly []models.WeeklyScheduleBlock, exceptions []models.ScheduleException, busy []models.Appointment) ([]models.AvailabilityBlock, error) {
	exceptionByDate := make(map[string]*models.ScheduleException, len(exceptions))
	for i := range exceptions {
		ex := &exceptions[i]
		exceptionByDate[ex.ExceptionDate.UTC().Format(dateLayout)] = ex
	}

	workByWeekday := make(map[int][]models.WeeklyScheduleBlock)
	breaksByWeekday := make(map[int][]models.WeeklyScheduleBlock)
	for _, block := range weekly {
		if block.IsAvailable {
			workByWeekday[block.DayOfWeek] = append(workByWeekday[block.DayOfWeek], block)
		} else {
			breaksByWeekday[block.DayOfWeek] = append(breaksByWeekday[block.DayOfWeek], block)
		}
	}

	busyByDate := make(map[string][]models.Appointment)
	for _, appt := range busy {
		if !appt.CountsAsBusy() {
			continue
		}
		key := appt.AppointmentDate.UTC().Format(dateLayout)
		busyByDate[key] = append(busyByDate[key], appt)
	}

	minDuration := time.Duration(durationMinutes) * time.Minute
	pre := time.Duration(buffers.Pre) * time.Minute
	post := time.Duration(buffers.Post) * time.Minute

	var out []models.AvailabilityBlock
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		weekday := int(day.Weekday())

		var working []interval.Span
		if ex, ok := exceptionByDate[key]; ok {
			if !ex.IsAvailable {
				continue
			}
			if ex.StartTime != nil && ex.EndTime != nil {
				span, err := spanOnDate(day, *ex.StartTime, *ex.EndTime)
				if err != nil {
					return nil, err
				}
				working = []interval.Span{span}
			}
		}
		if working == nil {
			for _, block := range workByWeekday[weekday] {
				span, err := spanOnDate(day, block.StartTime, block.EndTime)
				if err != nil {
					return nil, err
				}
				working = append(working, span)
			}
		}
		if len(working) == 0 {
			continue
		}

		var busySpans []interval.Span
		for _, block := range breaksByWeekday[weekday] {
			span, err := spanOnDate(day, block.StartTime, block.EndTime)
			if err != nil {
				return nil, err
			}
			busySpans = append(busySpans, span)
		}
		for _, appt := range busyByDate[key] {
			busySpans = append(busySpans, interval.Span{
				Start: appt.AppointmentDate.Add(-pre),
				End:   appt.End().Add(post),
			})
		}
		merged := interval.Merge(busySpans)

		for _, window := range working {
			for _, gap := range interval.Gaps(window, merged, minDuration) {
				out = append(out, models.AvailabilityBlock{
					StartTime: gap.Start,
					EndTime:   gap.End,
					DayOfWeek: weekday,
					Date:      key,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// spanOnDate anchors a "HH:MM" window onto a calendar day. A clock value
// that fails to parse is a data-integrity fault surfaced to the caller.
func spanOnDate(day time.Time, startClock, endClock string) (interval.Span, error) {
	startTime, err := clockOnDate(day, startClock)
	if err != nil {
		return interval.Span{}, err
	}
	endTime, err := clockOnDate(day, endClock)
	if err != nil {
		return interval.Span{}, err
	}
	return interval.Span{Start: startTime, End: endTime}, nil
}

func clockOnDate(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, appErrors.WithDetails(appErrors.ErrScheduleIntegrity, fmt.Sprintf("invalid clock time %q", clock))
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}
