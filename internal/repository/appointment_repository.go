package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// AppointmentRepository provides persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "id, clinic_id, provider_id, patient_id, appointment_type_id, appointment_date, duration_minutes, status, notes, is_deleted, created_at, updated_at"

// List returns appointments with optional filtering and pagination.
// Soft-deleted rows are always excluded.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE clinic_id = $1 AND is_deleted = FALSE"
	args := []interface{}{filter.ClinicID}

	if filter.ProviderID != "" {
		base += fmt.Sprintf(" AND provider_id = $%d", len(args)+1)
		args = append(args, filter.ProviderID)
	}
	if filter.PatientID != "" {
		base += fmt.Sprintf(" AND patient_id = $%d", len(args)+1)
		args = append(args, filter.PatientID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		base += fmt.Sprintf(" AND appointment_date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		base += fmt.Sprintf(" AND appointment_date < $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"appointment_date": true, "status": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "appointment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", appointmentColumns, base, sortBy, order, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1 AND is_deleted = FALSE", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListBusyByProviderRange returns the appointments that occupy provider
// time within [from, to): non-deleted rows in any status except cancelled.
func (r *AppointmentRepository) ListBusyByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE provider_id = $1 AND is_deleted = FALSE AND status <> $2 AND appointment_date >= $3 AND appointment_date < $4 ORDER BY appointment_date ASC`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, providerID, models.AppointmentCancelled, from, to); err != nil {
		return nil, fmt.Errorf("list busy appointments: %w", err)
	}
	return appointments, nil
}

// Create stores a new appointment record.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, clinic_id, provider_id, patient_id, appointment_type_id, appointment_date, duration_minutes, status, notes, is_deleted, created_at, updated_at) VALUES (:id, :clinic_id, :provider_id, :patient_id, :appointment_type_id, :appointment_date, :duration_minutes, :status, :notes, :is_deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// Update modifies an appointment record.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET appointment_type_id = :appointment_type_id, appointment_date = :appointment_date, duration_minutes = :duration_minutes, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id AND is_deleted = FALSE`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an appointment's status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// SoftDelete flags an appointment as deleted without removing the row.
func (r *AppointmentRepository) SoftDelete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET is_deleted = TRUE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	return nil
}
