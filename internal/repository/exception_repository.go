package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// ExceptionRepository provides persistence for schedule exceptions.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository creates a new exception repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

const exceptionColumns = "id, provider_id, exception_date, is_available, start_time, end_time, reason, created_at, updated_at"

// ListByProviderRange returns exceptions for a provider whose date falls in
// [from, to] inclusive.
func (r *ExceptionRepository) ListByProviderRange(ctx context.Context, providerID string, from, to time.Time) ([]models.ScheduleException, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_exceptions WHERE provider_id = $1 AND exception_date >= $2 AND exception_date <= $3 ORDER BY exception_date ASC", exceptionColumns)
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, providerID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule exceptions: %w", err)
	}
	return exceptions, nil
}

// FindByProviderDate returns the single exception for a provider+date, if any.
func (r *ExceptionRepository) FindByProviderDate(ctx context.Context, providerID string, date time.Time) (*models.ScheduleException, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_exceptions WHERE provider_id = $1 AND exception_date = $2", exceptionColumns)
	var exception models.ScheduleException
	if err := r.db.GetContext(ctx, &exception, query, providerID, date); err != nil {
		return nil, err
	}
	return &exception, nil
}

// Upsert creates or replaces the exception for a provider+date. The unique
// constraint on (provider_id, exception_date) enforces one row per date.
func (r *ExceptionRepository) Upsert(ctx context.Context, exception *models.ScheduleException) error {
	if exception.ID == "" {
		exception.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exception.CreatedAt.IsZero() {
		exception.CreatedAt = now
	}
	exception.UpdatedAt = now

	const query = `INSERT INTO schedule_exceptions (id, provider_id, exception_date, is_available, start_time, end_time, reason, created_at, updated_at)
		VALUES (:id, :provider_id, :exception_date, :is_available, :start_time, :end_time, :reason, :created_at, :updated_at)
		ON CONFLICT (provider_id, exception_date) DO UPDATE
		SET is_available = EXCLUDED.is_available,
		    start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    reason = EXCLUDED.reason,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, exception); err != nil {
		return fmt.Errorf("upsert schedule exception: %w", err)
	}
	return nil
}

// Delete removes an exception by id.
func (r *ExceptionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_exceptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule exception: %w", err)
	}
	return nil
}
