package models

import "time"

// BufferConfiguration defines pre/post padding minutes around appointments.
// ProviderID and AppointmentTypeID are nullable: a row with both set is the
// most specific, a row with only ProviderID applies to that provider, and a
// row with neither is the clinic default.
type BufferConfiguration struct {
	ID                string    `db:"id" json:"id"`
	ClinicID          string    `db:"clinic_id" json:"clinic_id"`
	ProviderID        *string   `db:"provider_id" json:"provider_id,omitempty"`
	AppointmentTypeID *string   `db:"appointment_type_id" json:"appointment_type_id,omitempty"`
	PreMinutes        int       `db:"pre_minutes" json:"pre_minutes"`
	PostMinutes       int       `db:"post_minutes" json:"post_minutes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// BufferWindow is the resolved pre/post padding applied by the engine.
type BufferWindow struct {
	Pre  int `json:"pre"`
	Post int `json:"post"`
}
