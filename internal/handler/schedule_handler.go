package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

type scheduleService interface {
	ListWeeklyBlocks(ctx context.Context, providerID string) ([]models.WeeklyScheduleBlock, error)
	CreateWeeklyBlock(ctx context.Context, providerID string, input service.WeeklyBlockInput) (*models.WeeklyScheduleBlock, error)
	UpdateWeeklyBlock(ctx context.Context, id string, input service.WeeklyBlockInput) (*models.WeeklyScheduleBlock, error)
	DeleteWeeklyBlock(ctx context.Context, id string) error
	ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]models.ScheduleException, error)
	UpsertException(ctx context.Context, providerID string, input service.ExceptionInput) (*models.ScheduleException, error)
	DeleteException(ctx context.Context, providerID, id string) error
}

// ScheduleHandler manages weekly schedule blocks and date exceptions.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the schedule handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// ListWeeklyBlocks godoc
// @Summary List a provider's weekly schedule blocks
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Success 200 {object} response.Envelope{data=[]models.WeeklyScheduleBlock}
// @Router /providers/{id}/schedule [get]
func (h *ScheduleHandler) ListWeeklyBlocks(c *gin.Context) {
	blocks, err := h.service.ListWeeklyBlocks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// CreateWeeklyBlock godoc
// @Summary Add a weekly schedule block
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param payload body service.WeeklyBlockInput true "Block payload"
// @Success 201 {object} response.Envelope{data=models.WeeklyScheduleBlock}
// @Router /providers/{id}/schedule [post]
func (h *ScheduleHandler) CreateWeeklyBlock(c *gin.Context) {
	var input service.WeeklyBlockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	block, err := h.service.CreateWeeklyBlock(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// UpdateWeeklyBlock godoc
// @Summary Update a weekly schedule block
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param blockId path string true "Block ID"
// @Param payload body service.WeeklyBlockInput true "Block payload"
// @Success 200 {object} response.Envelope{data=models.WeeklyScheduleBlock}
// @Router /providers/{id}/schedule/{blockId} [put]
func (h *ScheduleHandler) UpdateWeeklyBlock(c *gin.Context) {
	var input service.WeeklyBlockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	block, err := h.service.UpdateWeeklyBlock(c.Request.Context(), c.Param("blockId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block, nil)
}

// DeleteWeeklyBlock godoc
// @Summary Delete a weekly schedule block
// @Tags Schedules
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param blockId path string true "Block ID"
// @Success 204
// @Router /providers/{id}/schedule/{blockId} [delete]
func (h *ScheduleHandler) DeleteWeeklyBlock(c *gin.Context) {
	if err := h.service.DeleteWeeklyBlock(c.Request.Context(), c.Param("blockId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExceptions godoc
// @Summary List schedule exceptions for a provider
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param start_date query string true "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope{data=[]models.ScheduleException}
// @Router /providers/{id}/exceptions [get]
func (h *ScheduleHandler) ListExceptions(c *gin.Context) {
	from, err := parseDateQuery(c, "start_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "end_date")
	if err != nil {
		response.Error(c, err)
		return
	}

	exceptions, err := h.service.ListExceptions(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions, nil)
}

// UpsertException godoc
// @Summary Create or replace the exception for a provider and date
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param payload body service.ExceptionInput true "Exception payload"
// @Success 200 {object} response.Envelope{data=models.ScheduleException}
// @Router /providers/{id}/exceptions [put]
func (h *ScheduleHandler) UpsertException(c *gin.Context) {
	var input service.ExceptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exception payload"))
		return
	}
	exception, err := h.service.UpsertException(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exception, nil)
}

// DeleteException godoc
// @Summary Delete a schedule exception
// @Tags Schedules
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param exceptionId path string true "Exception ID"
// @Success 204
// @Router /providers/{id}/exceptions/{exceptionId} [delete]
func (h *ScheduleHandler) DeleteException(c *gin.Context) {
	if err := h.service.DeleteException(c.Request.Context(), c.Param("id"), c.Param("exceptionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseDateQuery(c *gin.Context, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, appErrors.WithDetails(appErrors.ErrValidation, key+" is required")
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.WithDetails(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
	}
	return parsed, nil
}
