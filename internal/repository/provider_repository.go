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

// ProviderRepository provides persistence for providers.
type ProviderRepository struct {
	db *sqlx.DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *sqlx.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

const providerColumns = "id, clinic_id, user_id, full_name, specialty, email, phone, active, created_at, updated_at"

// List returns providers with optional filtering and pagination.
func (r *ProviderRepository) List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, int, error) {
	base := "FROM providers WHERE clinic_id = $1"
	args := []interface{}{filter.ClinicID}

	if filter.Specialty != "" {
		base += fmt.Sprintf(" AND specialty = $%d", len(args)+1)
		args = append(args, filter.Specialty)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"full_name": true, "specialty": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", providerColumns, base, sortBy, order, size, offset)
	var providers []models.Provider
	if err := r.db.SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list providers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count providers: %w", err)
	}

	return providers, total, nil
}

// FindByID loads a provider by id.
func (r *ProviderRepository) FindByID(ctx context.Context, id string) (*models.Provider, error) {
	query := fmt.Sprintf("SELECT %s FROM providers WHERE id = $1", providerColumns)
	var provider models.Provider
	if err := r.db.GetContext(ctx, &provider, query, id); err != nil {
		return nil, err
	}
	return &provider, nil
}

// Create stores a new provider record.
func (r *ProviderRepository) Create(ctx context.Context, provider *models.Provider) error {
	if provider.ID == "" {
		provider.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = now
	}
	provider.UpdatedAt = now

	const query = `INSERT INTO providers (id, clinic_id, user_id, full_name, specialty, email, phone, active, created_at, updated_at) VALUES (:id, :clinic_id, :user_id, :full_name, :specialty, :email, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, provider); err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	return nil
}

// Update modifies a provider record.
func (r *ProviderRepository) Update(ctx context.Context, provider *models.Provider) error {
	provider.UpdatedAt = time.Now().UTC()
	const query = `UPDATE providers SET full_name = :full_name, specialty = :specialty, email = :email, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, provider); err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	return nil
}
