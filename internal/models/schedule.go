package models

import "time"

// WeeklyScheduleBlock is a recurring availability rule for a provider.
// StartTime and EndTime are clock times in "HH:MM" 24-hour format with no
// date attached. IsAvailable=false marks a recurring break window.
type WeeklyScheduleBlock struct {
	ID          string    `db:"id" json:"id"`
	ProviderID  string    `db:"provider_id" json:"provider_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleException is a one-off override for a specific calendar date.
// When IsAvailable is false the whole date is closed regardless of weekly
// blocks. When true, StartTime/EndTime describe special hours that replace
// the weekly blocks for that date. At most one exception per provider+date.
type ScheduleException struct {
	ID            string    `db:"id" json:"id"`
	ProviderID    string    `db:"provider_id" json:"provider_id"`
	ExceptionDate time.Time `db:"exception_date" json:"exception_date"`
	IsAvailable   bool      `db:"is_available" json:"is_available"`
	StartTime     *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string   `db:"end_time" json:"end_time,omitempty"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
