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

type providerService interface {
	List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, *models.Pagination, error)
	Get(ctx context.Context, clinicID, id string) (*models.Provider, error)
	Create(ctx context.Context, clinicID string, input service.ProviderInput) (*models.Provider, error)
	Update(ctx context.Context, clinicID, id string, input service.ProviderInput) (*models.Provider, error)
}

// ProviderHandler manages clinician records.
type ProviderHandler struct {
	service providerService
}

// NewProviderHandler constructs the provider handler.
func NewProviderHandler(service providerService) *ProviderHandler {
	return &ProviderHandler{service: service}
}

// List godoc
// @Summary List providers for the caller's clinic
// @Tags Providers
// @Produce json
// @Security BearerAuth
// @Param specialty query string false "Filter by specialty"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Provider}
// @Router /providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}

	filter := models.ProviderFilter{
		ClinicID:  clinicID,
		Specialty: strings.TrimSpace(c.Query("specialty")),
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

	providers, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, providers, pagination)
}

// Get godoc
// @Summary Load a provider
// @Tags Providers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Success 200 {object} response.Envelope{data=models.Provider}
// @Failure 404 {object} response.Envelope
// @Router /providers/{id} [get]
func (h *ProviderHandler) Get(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	provider, err := h.service.Get(c.Request.Context(), clinicID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, provider, nil)
}

// Create godoc
// @Summary Create a provider
// @Tags Providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ProviderInput true "Provider payload"
// @Success 201 {object} response.Envelope{data=models.Provider}
// @Router /providers [post]
func (h *ProviderHandler) Create(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.ProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid provider payload"))
		return
	}
	provider, err := h.service.Create(c.Request.Context(), clinicID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, provider)
}

// Update godoc
// @Summary Update a provider
// @Tags Providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param payload body service.ProviderInput true "Provider payload"
// @Success 200 {object} response.Envelope{data=models.Provider}
// @Router /providers/{id} [put]
func (h *ProviderHandler) Update(c *gin.Context) {
	clinicID := requireClinicID(c)
	if clinicID == "" {
		return
	}
	var input service.ProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid provider payload"))
		return
	}
	provider, err := h.service.Update(c.Request.Context(), clinicID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, provider, nil)
}
