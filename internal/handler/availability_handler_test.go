package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

type availabilityServiceMock struct {
	lastReq dto.AvailabilityRequest
	resp    *dto.AvailabilityResponse
	err     error
}

func (m *availabilityServiceMock) ComputeAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

type recommendationServiceMock struct {
	lastReq dto.RecommendationRequest
	resp    *dto.RecommendationResponse
	err     error
}

func (m *recommendationServiceMock) Recommend(ctx context.Context, req dto.RecommendationRequest) (*dto.RecommendationResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

type exportServiceMock struct {
	result *service.ExportResult
	err    error
}

func (m *exportServiceMock) ExportAvailability(ctx context.Context, req dto.AvailabilityRequest, format service.ExportFormat) (*service.ExportResult, error) {
	return m.result, m.err
}

func newAvailabilityTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestAvailabilityHandlerCompute(t *testing.T) {
	mockSvc := &availabilityServiceMock{resp: &dto.AvailabilityResponse{ProviderID: "prov-1", DurationMinutes: 30}}
	handler := NewAvailabilityHandler(mockSvc, &recommendationServiceMock{}, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06&duration_minutes=45")

	handler.Compute(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "prov-1", mockSvc.lastReq.ProviderID)
	require.Equal(t, 45, mockSvc.lastReq.DurationMinutes)
}

func TestAvailabilityHandlerComputeRejectsBadDuration(t *testing.T) {
	mockSvc := &availabilityServiceMock{}
	handler := NewAvailabilityHandler(mockSvc, &recommendationServiceMock{}, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06&duration_minutes=thirty")

	handler.Compute(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "duration_minutes")
}

func TestAvailabilityHandlerComputeValidationError(t *testing.T) {
	mockSvc := &availabilityServiceMock{err: appErrors.ErrValidation}
	handler := NewAvailabilityHandler(mockSvc, &recommendationServiceMock{}, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability?provider_id=prov-1&start_date=bogus&end_date=2025-06-06")

	handler.Compute(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerComputeProviderNotFound(t *testing.T) {
	mockSvc := &availabilityServiceMock{err: appErrors.ErrNotFound}
	handler := NewAvailabilityHandler(mockSvc, &recommendationServiceMock{}, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability?provider_id=ghost&start_date=2025-06-02&end_date=2025-06-06")

	handler.Compute(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvailabilityHandlerRecommend(t *testing.T) {
	mockSvc := &recommendationServiceMock{resp: &dto.RecommendationResponse{ProviderID: "prov-1", TotalSlotsAvailable: 3}}
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, mockSvc, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability/recommendations?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06&patient_id=pat-1&top_n=3")

	handler.Recommend(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pat-1", mockSvc.lastReq.PatientID)
	require.Equal(t, 3, mockSvc.lastReq.TopN)
}

func TestAvailabilityHandlerRecommendRejectsBadTopN(t *testing.T) {
	mockSvc := &recommendationServiceMock{}
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, mockSvc, &exportServiceMock{})
	c, w := newAvailabilityTestContext(t, "/availability/recommendations?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06&top_n=five")

	handler.Recommend(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "top_n")
}

func TestAvailabilityHandlerExport(t *testing.T) {
	mockSvc := &exportServiceMock{result: &service.ExportResult{
		Content:     []byte("Date,Day,Start,End,Minutes\n"),
		ContentType: "text/csv",
		Filename:    "availability_prov-1_2025-06-02_2025-06-06.csv",
	}}
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, &recommendationServiceMock{}, mockSvc)
	c, w := newAvailabilityTestContext(t, "/availability/export?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06&format=csv")

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "availability_prov-1")
}

func TestAvailabilityHandlerExportDisabled(t *testing.T) {
	mockSvc := &exportServiceMock{err: appErrors.ErrForbidden}
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, &recommendationServiceMock{}, mockSvc)
	c, w := newAvailabilityTestContext(t, "/availability/export?provider_id=prov-1&start_date=2025-06-02&end_date=2025-06-06")

	handler.Export(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}
