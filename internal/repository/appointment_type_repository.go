package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// AppointmentTypeRepository provides read access to appointment types.
type AppointmentTypeRepository struct {
	db *sqlx.DB
}

// NewAppointmentTypeRepository creates a new appointment type repository.
func NewAppointmentTypeRepository(db *sqlx.DB) *AppointmentTypeRepository {
	return &AppointmentTypeRepository{db: db}
}

const appointmentTypeColumns = "id, clinic_id, name, default_duration_minutes, active, created_at, updated_at"

// ListByClinic returns active appointment types for a clinic.
func (r *AppointmentTypeRepository) ListByClinic(ctx context.Context, clinicID string) ([]models.AppointmentType, error) {
	query := fmt.Sprintf("SELECT %s FROM appointment_types WHERE clinic_id = $1 AND active = TRUE ORDER BY name ASC", appointmentTypeColumns)
	var types []models.AppointmentType
	if err := r.db.SelectContext(ctx, &types, query, clinicID); err != nil {
		return nil, fmt.Errorf("list appointment types: %w", err)
	}
	return types, nil
}

// FindByID loads an appointment type by id.
func (r *AppointmentTypeRepository) FindByID(ctx context.Context, id string) (*models.AppointmentType, error) {
	query := fmt.Sprintf("SELECT %s FROM appointment_types WHERE id = $1", appointmentTypeColumns)
	var at models.AppointmentType
	if err := r.db.GetContext(ctx, &at, query, id); err != nil {
		return nil, err
	}
	return &at, nil
}
