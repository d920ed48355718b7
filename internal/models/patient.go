package models

import "time"

// Patient represents a clinic patient record.
type Patient struct {
	ID          string     `db:"id" json:"id"`
	ClinicID    string     `db:"clinic_id" json:"clinic_id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Email       string     `db:"email" json:"email"`
	Phone       string     `db:"phone" json:"phone"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientFilter captures filtering criteria for listing patients.
type PatientFilter struct {
	ClinicID  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
