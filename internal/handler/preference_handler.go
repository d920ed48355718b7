package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

type preferenceService interface {
	Get(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) (*models.SchedulingPreference, error)
	Upsert(ctx context.Context, subjectType models.PreferenceSubject, subjectID string, input service.PreferenceInput) (*models.SchedulingPreference, error)
	Delete(ctx context.Context, subjectType models.PreferenceSubject, subjectID string) error
}

// PreferenceHandler manages scheduling preferences per subject.
type PreferenceHandler struct {
	service preferenceService
}

// NewPreferenceHandler constructs the preference handler.
func NewPreferenceHandler(service preferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

var preferenceSubjects = map[string]models.PreferenceSubject{
	"providers":         models.PreferenceSubjectProvider,
	"patients":          models.PreferenceSubjectPatient,
	"appointment-types": models.PreferenceSubjectAppointmentType,
}

// Get godoc
// @Summary Get the scheduling preference for a subject
// @Tags Preferences
// @Produce json
// @Security BearerAuth
// @Param subject path string true "providers, patients, or appointment-types"
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope{data=models.SchedulingPreference}
// @Failure 404 {object} response.Envelope
// @Router /preferences/{subject}/{id} [get]
func (h *PreferenceHandler) Get(c *gin.Context) {
	subjectType, ok := resolveSubject(c)
	if !ok {
		return
	}
	pref, err := h.service.Get(c.Request.Context(), subjectType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// Upsert godoc
// @Summary Create or replace the scheduling preference for a subject
// @Tags Preferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subject path string true "providers, patients, or appointment-types"
// @Param id path string true "Subject ID"
// @Param payload body service.PreferenceInput true "Preference payload"
// @Success 200 {object} response.Envelope{data=models.SchedulingPreference}
// @Router /preferences/{subject}/{id} [put]
func (h *PreferenceHandler) Upsert(c *gin.Context) {
	subjectType, ok := resolveSubject(c)
	if !ok {
		return
	}
	var input service.PreferenceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	pref, err := h.service.Upsert(c.Request.Context(), subjectType, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// Delete godoc
// @Summary Remove the scheduling preference for a subject
// @Tags Preferences
// @Security BearerAuth
// @Param subject path string true "providers, patients, or appointment-types"
// @Param id path string true "Subject ID"
// @Success 204
// @Router /preferences/{subject}/{id} [delete]
func (h *PreferenceHandler) Delete(c *gin.Context) {
	subjectType, ok := resolveSubject(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), subjectType, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func resolveSubject(c *gin.Context) (models.PreferenceSubject, bool) {
	subjectType, ok := preferenceSubjects[c.Param("subject")]
	if !ok {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "subject must be providers, patients, or appointment-types"))
		return "", false
	}
	return subjectType, true
}
