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

// PatientRepository covers patient persistence.
type PatientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
}

// PatientInput captures a patient create or update.
type PatientInput struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"max=30"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Active      *bool  `json:"active"`
}

// PatientService manages patient records.
type PatientService struct {
	repo     PatientRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPatientService constructs the patient service.
func NewPatientService(repo PatientRepository, logger *zap.Logger) *PatientService {
	return &PatientService{repo: repo, validate: validator.New(), logger: logger}
}

// List returns patients matching the filter with pagination metadata.
func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error) {
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "PATIENT_LOOKUP_FAILED", http.StatusInternalServerError, "failed to list patients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return patients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a patient and verifies tenant ownership.
func (s *PatientService) Get(ctx context.Context, clinicID, id string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, "PATIENT_LOOKUP_FAILED", http.StatusInternalServerError, "failed to load patient")
	}
	if patient.ClinicID != clinicID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
	}
	return patient, nil
}

// Create stores a new patient record.
func (s *PatientService) Create(ctx context.Context, clinicID string, input PatientInput) (*models.Patient, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	dob, err := parseOptionalDate(input.DateOfBirth)
	if err != nil {
		return nil, err
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	patient := &models.Patient{
		ClinicID:    clinicID,
		FullName:    input.FullName,
		Email:       input.Email,
		Phone:       input.Phone,
		DateOfBirth: dob,
		Active:      active,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, "PATIENT_WRITE_FAILED", http.StatusInternalServerError, "failed to create patient")
	}
	return patient, nil
}

// Update modifies an existing patient record.
func (s *PatientService) Update(ctx context.Context, clinicID, id string, input PatientInput) (*models.Patient, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, err.Error())
	}

	patient, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	dob, err := parseOptionalDate(input.DateOfBirth)
	if err != nil {
		return nil, err
	}
	patient.FullName = input.FullName
	patient.Email = input.Email
	patient.Phone = input.Phone
	if dob != nil {
		patient.DateOfBirth = dob
	}
	if input.Active != nil {
		patient.Active = *input.Active
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, "PATIENT_WRITE_FAILED", http.StatusInternalServerError, "failed to update patient")
	}
	return patient, nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return &parsed, nil
}
