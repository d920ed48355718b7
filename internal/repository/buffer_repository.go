package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// BufferRepository provides persistence for buffer configurations.
type BufferRepository struct {
	db *sqlx.DB
}

// NewBufferRepository creates a new buffer repository.
func NewBufferRepository(db *sqlx.DB) *BufferRepository {
	return &BufferRepository{db: db}
}

const bufferColumns = "id, clinic_id, provider_id, appointment_type_id, pre_minutes, post_minutes, created_at, updated_at"

// ListCandidates returns every buffer row that could apply to the given
// provider and appointment type, most specific first. Precedence is
// resolved by the service layer.
func (r *BufferRepository) ListCandidates(ctx context.Context, clinicID, providerID, appointmentTypeID string) ([]models.BufferConfiguration, error) {
	query := fmt.Sprintf(`SELECT %s FROM buffer_configurations
		WHERE clinic_id = $1
		  AND (provider_id IS NULL OR provider_id = $2)
		  AND (appointment_type_id IS NULL OR appointment_type_id = $3)
		ORDER BY appointment_type_id NULLS LAST, provider_id NULLS LAST`, bufferColumns)
	var configs []models.BufferConfiguration
	if err := r.db.SelectContext(ctx, &configs, query, clinicID, providerID, nullable(appointmentTypeID)); err != nil {
		return nil, fmt.Errorf("list buffer candidates: %w", err)
	}
	return configs, nil
}

// ListByClinic returns all buffer rows for a clinic.
func (r *BufferRepository) ListByClinic(ctx context.Context, clinicID string) ([]models.BufferConfiguration, error) {
	query := fmt.Sprintf("SELECT %s FROM buffer_configurations WHERE clinic_id = $1 ORDER BY created_at ASC", bufferColumns)
	var configs []models.BufferConfiguration
	if err := r.db.SelectContext(ctx, &configs, query, clinicID); err != nil {
		return nil, fmt.Errorf("list buffer configurations: %w", err)
	}
	return configs, nil
}

// Upsert creates or updates a buffer configuration for its scope.
func (r *BufferRepository) Upsert(ctx context.Context, config *models.BufferConfiguration) error {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now

	const query = `INSERT INTO buffer_configurations (id, clinic_id, provider_id, appointment_type_id, pre_minutes, post_minutes, created_at, updated_at)
		VALUES (:id, :clinic_id, :provider_id, :appointment_type_id, :pre_minutes, :post_minutes, :created_at, :updated_at)
		ON CONFLICT (clinic_id, provider_id, appointment_type_id) DO UPDATE
		SET pre_minutes = EXCLUDED.pre_minutes,
		    post_minutes = EXCLUDED.post_minutes,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("upsert buffer configuration: %w", err)
	}
	return nil
}

// Delete removes a buffer configuration by id.
func (r *BufferRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM buffer_configurations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete buffer configuration: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
