package models

import "time"

// AppointmentStatus enumerates the lifecycle of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a booked visit. AppointmentDate is the start
// instant in UTC; the visit occupies [start, start+duration).
type Appointment struct {
	ID                string            `db:"id" json:"id"`
	ClinicID          string            `db:"clinic_id" json:"clinic_id"`
	ProviderID        string            `db:"provider_id" json:"provider_id"`
	PatientID         string            `db:"patient_id" json:"patient_id"`
	AppointmentTypeID *string           `db:"appointment_type_id" json:"appointment_type_id,omitempty"`
	AppointmentDate   time.Time         `db:"appointment_date" json:"appointment_date"`
	DurationMinutes   int               `db:"duration_minutes" json:"duration_minutes"`
	Status            AppointmentStatus `db:"status" json:"status"`
	Notes             string            `db:"notes" json:"notes"`
	IsDeleted         bool              `db:"is_deleted" json:"-"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// CountsAsBusy reports whether this appointment blocks provider time.
// Deleted and cancelled rows never do.
func (a Appointment) CountsAsBusy() bool {
	return !a.IsDeleted && a.Status != AppointmentCancelled
}

// End returns the exclusive end instant of the visit.
func (a Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// AppointmentFilter captures filtering criteria for listing appointments.
type AppointmentFilter struct {
	ClinicID   string
	ProviderID string
	PatientID  string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AppointmentType describes a bookable visit category.
type AppointmentType struct {
	ID                     string    `db:"id" json:"id"`
	ClinicID               string    `db:"clinic_id" json:"clinic_id"`
	Name                   string    `db:"name" json:"name"`
	DefaultDurationMinutes int       `db:"default_duration_minutes" json:"default_duration_minutes"`
	Active                 bool      `db:"active" json:"active"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}
