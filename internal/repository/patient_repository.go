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

// PatientRepository provides persistence for patients.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientColumns = "id, clinic_id, full_name, email, phone, date_of_birth, active, created_at, updated_at"

// List returns patients with optional filtering and pagination.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	base := "FROM patients WHERE clinic_id = $1"
	args := []interface{}{filter.ClinicID}

	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"full_name": true, "created_at": true}
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", patientColumns, base, sortBy, order, size, offset)
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	return patients, total, nil
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1", patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

// Create stores a new patient record.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	const query = `INSERT INTO patients (id, clinic_id, full_name, email, phone, date_of_birth, active, created_at, updated_at) VALUES (:id, :clinic_id, :full_name, :email, :phone, :date_of_birth, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Update modifies a patient record.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET full_name = :full_name, email = :email, phone = :phone, date_of_birth = :date_of_birth, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}
