package dto

import "github.com/halcyon-health/clinic-emr-api/internal/models"

// AvailabilityRequest carries the validated query parameters for an
// availability computation. Dates are inclusive YYYY-MM-DD.
type AvailabilityRequest struct {
	ProviderID        string `json:"provider_id" validate:"required"`
	StartDate         string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string `json:"end_date" validate:"required,datetime=2006-01-02"`
	DurationMinutes   int    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	AppointmentTypeID string `json:"appointment_type_id"`
}

// AvailabilityResponse is the computed free-window answer for a provider.
type AvailabilityResponse struct {
	ProviderID      string                     `json:"providerId"`
	StartDate       string                     `json:"startDate"`
	EndDate         string                     `json:"endDate"`
	DurationMinutes int                        `json:"durationMinutes"`
	Buffers         models.BufferWindow        `json:"buffers"`
	AvailableBlocks []models.AvailabilityBlock `json:"availableBlocks"`
}
