package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/middleware"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/response"
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

// requireClaims writes a 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func auditMeta(c *gin.Context) models.AuditMeta {
	return models.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
