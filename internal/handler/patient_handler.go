package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

type patientService interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error)
	Get(ctx context.Context, clinicID, id string) (*models.Patient, error)
	Create(ctx context.Context, clinicID string, input service.PatientInput) (*models.Patient, error)
	Update(ctx context.Context, clinicID, id string, input service.PatientInput) (*models.Patient, error)
}

// PatientHandler manages patient records.
type PatientHandler struct {
	service patientService
}

// NewPatientHandler constructs the patient handler.
func NewPatientHandler(service patientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// List godoc
// @Summary List patients for the caller's clinic
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Patient}
// @Router /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}

	filter := models.PatientFilter{
		ClinicID:  clinicID,
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      intQuery(c, "page"),
		PageSize:  intQuery(c, "page_size"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	patients, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Load a patient
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope{data=models.Patient}
// @Failure 404 {object} response.Envelope
// @Router /patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	patient, err := h.service.Get(c.Request.Context(), clinicID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Create godoc
// @Summary Create a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PatientInput true "Patient payload"
// @Success 201 {object} response.Envelope{data=models.Patient}
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.PatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patient payload"))
		return
	}
	patient, err := h.service.Create(c.Request.Context(), clinicID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param payload body service.PatientInput true "Patient payload"
// @Success 200 {object} response.Envelope{data=models.Patient}
// @Router /patients/{id} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.PatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patient payload"))
		return
	}
	patient, err := h.service.Update(c.Request.Context(), clinicID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}
