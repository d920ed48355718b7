package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/halcyon-health/clinic-emr-api/internal/middleware"
	"github.com/halcyon-health/clinic-emr-api/internal/models"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClinicID resolves the caller's tenant or writes a 401 and returns
// the empty string.
func requireClinicID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.ClinicID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return ""
	}
	return claims.ClinicID
}
