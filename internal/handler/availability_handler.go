package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

type availabilityService interface {
	ComputeAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
}

type recommendationService interface {
	Recommend(ctx context.Context, req dto.RecommendationRequest) (*dto.RecommendationResponse, error)
}

type availabilityExportService interface {
	ExportAvailability(ctx context.Context, req dto.AvailabilityRequest, format service.ExportFormat) (*service.ExportResult, error)
}

// AvailabilityHandler exposes the availability engine and slot recommender.
type AvailabilityHandler struct {
	availability    availabilityService
	recommendations recommendationService
	exports         availabilityExportService
}

// NewAvailabilityHandler constructs the availability handler.
func NewAvailabilityHandler(availability availabilityService, recommendations recommendationService, exports availabilityExportService) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability:    availability,
		recommendations: recommendations,
		exports:         exports,
	}
}

// Compute godoc
// @Summary Compute free bookable windows for a provider
// @Tags Availability
// @Produce json
// @Param provider_id query string true "Provider ID"
// @Param start_date query string true "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end date (YYYY-MM-DD)"
// @Param duration_minutes query int false "Requested slot duration (default 30)"
// @Param appointment_type_id query string false "Appointment type for duration and buffer resolution"
// @Success 200 {object} response.Envelope{data=dto.AvailabilityResponse}
// @Failure 400 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Compute(c *gin.Context) {
	req, err := availabilityRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp, err := h.availability.ComputeAvailability(c.Request.Context(), *req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Recommend godoc
// @Summary Recommend the best candidate slots for a booking
// @Tags Availability
// @Produce json
// @Param provider_id query string true "Provider ID"
// @Param start_date query string true "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end date (YYYY-MM-DD)"
// @Param appointment_type_id query string false "Appointment type"
// @Param patient_id query string false "Patient ID (enables patient preference scoring)"
// @Param top_n query int false "Shortlist size (default 5)"
// @Success 200 {object} response.Envelope{data=dto.RecommendationResponse}
// @Failure 400 {object} response.Envelope
// @Router /availability/recommendations [get]
func (h *AvailabilityHandler) Recommend(c *gin.Context) {
	req := dto.RecommendationRequest{
		ProviderID:        strings.TrimSpace(c.Query("provider_id")),
		StartDate:         strings.TrimSpace(c.Query("start_date")),
		EndDate:           strings.TrimSpace(c.Query("end_date")),
		AppointmentTypeID: strings.TrimSpace(c.Query("appointment_type_id")),
		PatientID:         strings.TrimSpace(c.Query("patient_id")),
	}
	if raw := c.Query("top_n"); raw != "" {
		topN, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "top_n must be an integer"))
			return
		}
		req.TopN = topN
	}

	resp, err := h.recommendations.Recommend(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Export godoc
// @Summary Download an availability report
// @Tags Availability
// @Produce text/csv
// @Produce application/pdf
// @Param provider_id query string true "Provider ID"
// @Param start_date query string true "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /availability/export [get]
func (h *AvailabilityHandler) Export(c *gin.Context) {
	req, err := availabilityRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.ExportAvailability(c.Request.Context(), *req, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func availabilityRequestFromQuery(c *gin.Context) (*dto.AvailabilityRequest, error) {
	req := dto.AvailabilityRequest{
		ProviderID:        strings.TrimSpace(c.Query("provider_id")),
		StartDate:         strings.TrimSpace(c.Query("start_date")),
		EndDate:           strings.TrimSpace(c.Query("end_date")),
		AppointmentTypeID: strings.TrimSpace(c.Query("appointment_type_id")),
	}
	if raw := c.Query("duration_minutes"); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "duration_minutes must be an integer")
		}
		req.DurationMinutes = duration
	}
	return &req, nil
}
