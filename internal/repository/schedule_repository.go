package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
)

// ScheduleRepository provides persistence for weekly schedule blocks.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const weeklyBlockColumns = "id, provider_id, day_of_week, start_time, end_time, is_available, created_at, updated_at"

// ListByProvider returns all weekly blocks for a provider ordered by day
// and start time. Working and break blocks are both included.
func (r *ScheduleRepository) ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleBlock, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_blocks WHERE provider_id = $1 ORDER BY day_of_week ASC, start_time ASC", weeklyBlockColumns)
	var blocks []models.WeeklyScheduleBlock
	if err := r.db.SelectContext(ctx, &blocks, query, providerID); err != nil {
		return nil, fmt.Errorf("list weekly schedule blocks: %w", err)
	}
	return blocks, nil
}

// FindByID loads a weekly block by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeeklyScheduleBlock, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_blocks WHERE id = $1", weeklyBlockColumns)
	var block models.WeeklyScheduleBlock
	if err := r.db.GetContext(ctx, &block, query, id); err != nil {
		return nil, err
	}
	return &block, nil
}

// Create stores a new weekly block.
func (r *ScheduleRepository) Create(ctx context.Context, block *models.WeeklyScheduleBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
	}
	block.UpdatedAt = now

	const query = `INSERT INTO weekly_schedule_blocks (id, provider_id, day_of_week, start_time, end_time, is_available, created_at, updated_at) VALUES (:id, :provider_id, :day_of_week, :start_time, :end_time, :is_available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create weekly schedule block: %w", err)
	}
	return nil
}

// Update modifies a weekly block.
func (r *ScheduleRepository) Update(ctx context.Context, block *models.WeeklyScheduleBlock) error {
	block.UpdatedAt = time.Now().UTC()
	const query = `UPDATE weekly_schedule_blocks SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, is_available = :is_available, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("update weekly schedule block: %w", err)
	}
	return nil
}

// Delete removes a weekly block by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM weekly_schedule_blocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete weekly schedule block: %w", err)
	}
	return nil
}
