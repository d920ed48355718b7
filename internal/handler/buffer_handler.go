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

type bufferService interface {
	List(ctx context.Context, clinicID string) ([]models.BufferConfiguration, error)
	Upsert(ctx context.Context, clinicID string, input service.BufferUpsertInput) (*models.BufferConfiguration, error)
	Delete(ctx context.Context, id string) error
}

// BufferHandler manages pre/post appointment padding configuration.
type BufferHandler struct {
	service bufferService
}

// NewBufferHandler constructs the buffer handler.
func NewBufferHandler(service bufferService) *BufferHandler {
	return &BufferHandler{service: service}
}

// List godoc
// @Summary List buffer configurations for the caller's clinic
// @Tags Buffers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.BufferConfiguration}
// @Router /buffers [get]
func (h *BufferHandler) List(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	configs, err := h.service.List(c.Request.Context(), clinicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Upsert godoc
// @Summary Create or replace a buffer configuration
// @Tags Buffers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BufferUpsertInput true "Buffer payload"
// @Success 200 {object} response.Envelope{data=models.BufferConfiguration}
// @Router /buffers [put]
func (h *BufferHandler) Upsert(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.BufferUpsertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid buffer payload"))
		return
	}
	config, err := h.service.Upsert(c.Request.Context(), clinicID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Delete godoc
// @Summary Delete a buffer configuration
// @Tags Buffers
// @Security BearerAuth
// @Param id path string true "Buffer configuration ID"
// @Success 204
// @Router /buffers/{id} [delete]
func (h *BufferHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
