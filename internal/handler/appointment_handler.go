package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

type appointmentService interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	ListTypes(ctx context.Context, clinicID string) ([]models.AppointmentType, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Create(ctx context.Context, clinicID string, input service.AppointmentCreateInput) (*models.Appointment, error)
	Update(ctx context.Context, id string, input service.AppointmentUpdateInput) (*models.Appointment, error)
	Transition(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentHandler manages bookings and appointment types.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs the appointment handler.
func NewAppointmentHandler(service appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// List godoc
// @Summary List appointments for the caller's clinic
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param provider_id query string false "Filter by provider"
// @Param patient_id query string false "Filter by patient"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param date_to query string false "Exclusive upper date bound (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Appointment}
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}

	filter := models.AppointmentFilter{
		ClinicID:   clinicID,
		ProviderID: strings.TrimSpace(c.Query("provider_id")),
		PatientID:  strings.TrimSpace(c.Query("patient_id")),
		Status:     strings.TrimSpace(c.Query("status")),
		Page:       intQuery(c, "page"),
		PageSize:   intQuery(c, "page_size"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("date_from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "date_from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &parsed
	}
	if raw := c.Query("date_to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "date_to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &parsed
	}

	appointments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, pagination)
}

// ListTypes godoc
// @Summary List active appointment types for the caller's clinic
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.AppointmentType}
// @Router /appointment-types [get]
func (h *AppointmentHandler) ListTypes(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	types, err := h.service.ListTypes(c.Request.Context(), clinicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Load a single appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope{data=models.Appointment}
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Create godoc
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AppointmentCreateInput true "Booking payload"
// @Success 201 {object} response.Envelope{data=models.Appointment}
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.AppointmentCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	appt, err := h.service.Create(c.Request.Context(), clinicID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Update godoc
// @Summary Reschedule or edit an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body service.AppointmentUpdateInput true "Update payload"
// @Success 200 {object} response.Envelope{data=models.Appointment}
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var input service.AppointmentUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	appt, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

type statusTransitionRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Transition an appointment's status
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body statusTransitionRequest true "Target status"
// @Success 200 {object} response.Envelope{data=models.Appointment}
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req statusTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	appt, err := h.service.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Delete godoc
// @Summary Soft-delete an appointment
// @Tags Appointments
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func intQuery(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
