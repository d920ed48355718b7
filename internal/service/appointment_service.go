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

// AppointmentRepository covers appointment persistence.
type AppointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListBusyByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.Appointment, error)
	Create(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	SoftDelete(ctx context.Context, id string) error
}

// AppointmentTypeRepository covers appointment type reads.
type AppointmentTypeRepository interface {
	ListByClinic(ctx context.Context, clinicID string) ([]models.AppointmentType, error)
	FindByID(ctx context.Context, id string) (*models.AppointmentType, error)
}

// AppointmentCreateInput captures a booking request.
type AppointmentCreateInput struct {
	ProviderID        string  `json:"provider_id" validate:"required"`
	PatientID         string  `json:"patient_id" validate:"required"`
	AppointmentTypeID *string `json:"appointment_type_id"`
	AppointmentDate   string  `json:"appointment_date" validate:"required"`
	DurationMinutes   int     `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Notes             string  `json:"notes" validate:"max=2000"`
}

// AppointmentUpdateInput captures a reschedule or edit.
type AppointmentUpdateInput struct {
	AppointmentDate string `json:"appointment_date" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=5,max=480"`
	Notes           string `json:"notes" validate:"max=2000"`
}

var validStatusTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentScheduled: {models.AppointmentConfirmed, models.AppointmentCancelled, models.AppointmentNoShow},
	models.AppointmentConfirmed: {models.AppointmentCompleted, models.AppointmentCancelled, models.AppointmentNoShow},
}

// AppointmentService manages booking, rescheduling, and status transitions.
// Every write invalidates cached availability for the provider.
type AppointmentService struct {
	appointments AppointmentRepository
	types        AppointmentTypeRepository
	cache        *CacheService
	validate     *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAppointmentService constructs the appointment service.
func NewAppointmentService(appointments AppointmentRepository, types AppointmentTypeRepository, cache *CacheService, logger *zap.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		types:        types,
		cache:        cache,
		validate:     validator.New(),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// List returns appointments matching the filter.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	appointments, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "APPOINTMENT_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return appointments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListTypes returns the active appointment types for a clinic.
func (s *AppointmentService) ListTypes(ctx context.Context, clinicID string) ([]models.AppointmentType, error) {
	types, err := s.types.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, appErrors.Wrap(err, "APPOINTMENT_TYPE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list appointment types")
	}
	return types, nil
}

// Get loads a single appointment.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, "APPOINTMENT_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load appointment")
	}
	return appt, nil
}

// Create books a new appointment after checking the slot does not collide
// with an existing booking for the provider.
func (s *AppointmentService) Create(ctx context.Context, clinicID string, input AppointmentCreateInput) (*models.Appointment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	start, err := time.Parse(time.RFC3339, input.AppointmentDate)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "appointment_date must be RFC 3339")
	}
	start = start.UTC()

	duration := input.DurationMinutes
	if duration == 0 && input.AppointmentTypeID != nil {
		appointmentType, typeErr := s.types.FindByID(ctx, *input.AppointmentTypeID)
		if typeErr != nil {
			if errors.Is(typeErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment type not found")
			}
			return nil, appErrors.Wrap(typeErr, "APPOINTMENT_TYPE_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load appointment type")
		}
		duration = appointmentType.DefaultDurationMinutes
	}
	if duration <= 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "duration_minutes is required when no appointment type is given")
	}

	end := start.Add(time.Duration(duration) * time.Minute)
	if err := s.ensureNoCollision(ctx, input.ProviderID, "", start, end); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		ClinicID:          clinicID,
		ProviderID:        input.ProviderID,
		PatientID:         input.PatientID,
		AppointmentTypeID: input.AppointmentTypeID,
		AppointmentDate:   start,
		DurationMinutes:   duration,
		Status:            models.AppointmentScheduled,
		Notes:             input.Notes,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, "APPOINTMENT_WRITE_FAILED", http.StatusInternalServerError, "failed to create appointment")
	}
	s.invalidate(ctx, input.ProviderID)
	return appt, nil
}

// Update reschedules or edits an appointment.
func (s *AppointmentService) Update(ctx context.Context, id string, input AppointmentUpdateInput) (*models.Appointment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, input.AppointmentDate)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "appointment_date must be RFC 3339")
	}
	start = start.UTC()
	end := start.Add(time.Duration(input.DurationMinutes) * time.Minute)
	if err := s.ensureNoCollision(ctx, appt.ProviderID, appt.ID, start, end); err != nil {
		return nil, err
	}

	appt.AppointmentDate = start
	appt.DurationMinutes = input.DurationMinutes
	appt.Notes = input.Notes
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, "APPOINTMENT_WRITE_FAILED", http.StatusInternalServerError, "failed to update appointment")
	}
	s.invalidate(ctx, appt.ProviderID)
	return appt, nil
}

// Transition moves an appointment to a new status.
func (s *AppointmentService) Transition(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range validStatusTransitions[appt.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.WithDetails(appErrors.ErrConflict, "invalid status transition")
	}

	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, "APPOINTMENT_WRITE_FAILED", http.StatusInternalServerError, "failed to update appointment status")
	}
	appt.Status = status
	s.invalidate(ctx, appt.ProviderID)
	return appt, nil
}

// Delete soft-deletes an appointment, freeing its slot.
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, "APPOINTMENT_WRITE_FAILED", http.StatusInternalServerError, "failed to delete appointment")
	}
	s.invalidate(ctx, appt.ProviderID)
	return nil
}

// ensureNoCollision rejects a booking that overlaps an existing busy
// appointment for the provider. Buffers are a soft availability concern
// and do not block an explicit booking.
func (s *AppointmentService) ensureNoCollision(ctx context.Context, providerID, excludeID string, start, end time.Time) error {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	busy, err := s.appointments.ListBusyByProviderRange(ctx, providerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return appErrors.Wrap(err, "APPOINTMENT_LOOKUP_FAILED", http.StatusInternalServerError, "failed to check booking conflicts")
	}
	for _, other := range busy {
		if other.ID == excludeID {
			continue
		}
		if start.Before(other.End()) && other.AppointmentDate.Before(end) {
			return appErrors.WithDetails(appErrors.ErrConflict, "appointment overlaps an existing booking")
		}
	}
	return nil
}

func (s *AppointmentService) invalidate(ctx context.Context, providerID string) {
	if err := s.cache.Invalidate(ctx, "availability:"+providerID+":*"); err != nil && s.logger != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("provider_id", providerID), zap.Error(err))
	}
}
