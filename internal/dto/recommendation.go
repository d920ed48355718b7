package dto

import "github.com/halcyon-health/clinic-emr-api/internal/models"

// RecommendationRequest carries the validated query parameters for slot
// recommendation. PatientID enables patient preference lookups.
type RecommendationRequest struct {
	ProviderID        string `json:"provider_id" validate:"required"`
	StartDate         string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string `json:"end_date" validate:"required,datetime=2006-01-02"`
	AppointmentTypeID string `json:"appointment_type_id"`
	PatientID         string `json:"patient_id"`
	TopN              int    `json:"top_n" validate:"omitempty,min=1,max=50"`
}

// DateRange echoes the requested inclusive range.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// RecommendationMetadata summarises the inputs that shaped the scoring.
type RecommendationMetadata struct {
	AppointmentType        string `json:"appointmentType"`
	DurationMinutes        int    `json:"durationMinutes"`
	ProviderHasPreferences bool   `json:"providerHasPreferences"`
	PatientHasPreferences  bool   `json:"patientHasPreferences"`
}

// RecommendationResponse is the ranked shortlist answer.
type RecommendationResponse struct {
	ProviderID          string                      `json:"providerId"`
	AppointmentTypeID   string                      `json:"appointmentTypeId,omitempty"`
	PatientID           string                      `json:"patientId,omitempty"`
	DateRange           DateRange                   `json:"dateRange"`
	TotalSlotsAvailable int                         `json:"totalSlotsAvailable"`
	Recommendations     []models.SlotRecommendation `json:"recommendations"`
	Metadata            RecommendationMetadata      `json:"metadata"`
}
