package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// PreferenceRepository persists scheduling preferences for providers,
// patients, and appointment types.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

const preferenceColumns = "id, subject_type, subject_id, preferred_time_of_day, preferred_start_hour, preferred_end_hour, preferred_days, avoided_days, strength, created_at, updated_at"

// GetBySubject returns the stored preference for a subject, if any.
func (r *PreferenceRepository) GetBySubject(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduling_preferences WHERE subject_type = $1 AND subject_id = $2", preferenceColumns)
	var pref models.SchedulingPreference
	if err := r.db.GetContext(ctx, &pref, query, subjectType, subjectID); err != nil {
		return nil, err
	}
	return &pref, nil
}

// Upsert creates or updates the preference for a subject.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *models.SchedulingPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now
	if len(pref.PreferredDays) == 0 {
		pref.PreferredDays = []byte("[]")
	}
	if len(pref.AvoidedDays) == 0 {
		pref.AvoidedDays = []byte("[]")
	}

	const query = `INSERT INTO scheduling_preferences (id, subject_type, subject_id, preferred_time_of_day, preferred_start_hour, preferred_end_hour, preferred_days, avoided_days, strength, created_at, updated_at)
		VALUES (:id, :subject_type, :subject_id, :preferred_time_of_day, :preferred_start_hour, :preferred_end_hour, :preferred_days, :avoided_days, :strength, :created_at, :updated_at)
		ON CONFLICT (subject_type, subject_id) DO UPDATE
		SET preferred_time_of_day = EXCLUDED.preferred_time_of_day,
		    preferred_start_hour = EXCLUDED.preferred_start_hour,
		    preferred_end_hour = EXCLUDED.preferred_end_hour,
		    preferred_days = EXCLUDED.preferred_days,
		    avoided_days = EXCLUDED.avoided_days,
		    strength = EXCLUDED.strength,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert scheduling preference: %w", err)
	}
	return nil
}

// Delete removes the preference for a subject.
func (r *PreferenceRepository) Delete(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduling_preferences WHERE subject_type = $1 AND subject_id = $2`, subjectType, subjectID); err != nil {
		return fmt.Errorf("delete scheduling preference: %w", err)
	}
	return nil
}
