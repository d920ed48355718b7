package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimeOfDay buckets a clock hour for preference matching.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"   // before 12:00
	TimeOfDayAfternoon TimeOfDay = "afternoon" // 12:00-16:59
	TimeOfDayEvening   TimeOfDay = "evening"   // 17:00 onward
	TimeOfDayAny       TimeOfDay = "any"
)

// PreferenceSubject identifies whose soft preference a record expresses.
type PreferenceSubject string

const (
	PreferenceSubjectProvider        PreferenceSubject = "provider"
	PreferenceSubjectPatient         PreferenceSubject = "patient"
	PreferenceSubjectAppointmentType PreferenceSubject = "appointment_type"
)

// SchedulingPreference is an optional soft-preference record. A missing
// record means "no preference" and is score-neutral. PreferredDays and
// AvoidedDays hold JSON arrays of weekday numbers (0 = Sunday).
type SchedulingPreference struct {
	ID                 string            `db:"id" json:"id"`
	SubjectType        PreferenceSubject `db:"subject_type" json:"subject_type"`
	SubjectID          string            `db:"subject_id" json:"subject_id"`
	PreferredTimeOfDay TimeOfDay         `db:"preferred_time_of_day" json:"preferred_time_of_day"`
	PreferredStartHour *int              `db:"preferred_start_hour" json:"preferred_start_hour,omitempty"`
	PreferredEndHour   *int              `db:"preferred_end_hour" json:"preferred_end_hour,omitempty"`
	PreferredDays      types.JSONText    `db:"preferred_days" json:"preferred_days"`
	AvoidedDays        types.JSONText    `db:"avoided_days" json:"avoided_days"`
	Strength           int               `db:"strength" json:"strength"` // 1-10
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// PreferredWeekdays decodes the preferred-days JSON column. Malformed or
// empty payloads decode to nil.
func (p *SchedulingPreference) PreferredWeekdays() []int {
	return decodeWeekdays(p.PreferredDays)
}

// AvoidedWeekdays decodes the avoided-days JSON column.
func (p *SchedulingPreference) AvoidedWeekdays() []int {
	return decodeWeekdays(p.AvoidedDays)
}

func decodeWeekdays(raw types.JSONText) []int {
	if len(raw) == 0 {
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil
	}
	return days
}

// PreferenceBundle groups the three optional preference lookups resolved
// once per recommendation request.
type PreferenceBundle struct {
	Provider        *SchedulingPreference
	Patient         *SchedulingPreference
	AppointmentType *SchedulingPreference
}

// HasProvider reports whether a provider preference is present.
func (b PreferenceBundle) HasProvider() bool { return b.Provider != nil }

// HasPatient reports whether a patient preference is present.
func (b PreferenceBundle) HasPatient() bool { return b.Patient != nil }
