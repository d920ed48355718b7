package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

// ProviderRepository covers provider persistence.
type ProviderRepository interface {
	List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, int, error)
	FindByID(ctx context.Context, id string) (*models.Provider, error)
	Create(ctx context.Context, provider *models.Provider) error
	Update(ctx context.Context, provider *models.Provider) error
}

// ProviderInput captures a provider create or update.
type ProviderInput struct {
	FullName  string `json:"full_name" validate:"required,max=200"`
	Specialty string `json:"specialty" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=30"`
	Active    *bool  `json:"active"`
}

// ProviderService manages clinician records.
type ProviderService struct {
	repo     ProviderRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProviderService constructs the provider service.
func NewProviderService(repo ProviderRepository, logger *zap.Logger) *ProviderService {
	return &ProviderService{repo: repo, validate: validator.New(), logger: logger}
}

// List returns providers matching the filter with pagination metadata.
func (s *ProviderService) List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, *models.Pagination, error) {
	providers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "PROVIDER_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list providers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return providers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a provider and verifies tenant ownership.
func (s *ProviderService) Get(ctx context.Context, clinicID, id string) (*models.Provider, error) {
	provider, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, "PROVIDER_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load provider")
	}
	if provider.ClinicID != clinicID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
	}
	return provider, nil
}

// Create stores a new provider record.
func (s *ProviderService) Create(ctx context.Context, clinicID string, input ProviderInput) (*models.Provider, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	provider := &models.Provider{
		ClinicID:  clinicID,
		FullName:  input.FullName,
		Specialty: input.Specialty,
		Email:     input.Email,
		Phone:     input.Phone,
		Active:    active,
	}
	if err := s.repo.Create(ctx, provider); err != nil {
		return nil, appErrors.Wrap(err, "PROVIDER_WRITE_FAILED", http.StatusInternalServerError, "failed to create provider")
	}
	return provider, nil
}

// Update modifies an existing provider record.
func (s *ProviderService) Update(ctx context.Context, clinicID, id string, input ProviderInput) (*models.Provider, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	provider, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	provider.FullName = input.FullName
	provider.Specialty = input.Specialty
	provider.Email = input.Email
	provider.Phone = input.Phone
	if input.Active != nil {
		provider.Active = *input.Active
	}
	if err := s.repo.Update(ctx, provider); err != nil {
		return nil, appErrors.Wrap(err, "PROVIDER_WRITE_FAILED", http.StatusInternalServerError, "failed to update provider")
	}
	return provider, nil
}
