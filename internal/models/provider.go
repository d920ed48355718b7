package models

import "time"

// Provider represents a clinician who can be booked for appointments.
type Provider struct {
	ID        string    `db:"id" json:"id"`
	ClinicID  string    `db:"clinic_id" json:"clinic_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	FullName  string    `db:"full_name" json:"full_name"`
	Specialty string    `db:"specialty" json:"specialty"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProviderFilter captures filtering criteria for listing providers.
type ProviderFilter struct {
	ClinicID  string
	Specialty string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
