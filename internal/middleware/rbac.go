package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

// RoleSelf lets a caller through when the :id route param is their own user id.
const RoleSelf = "SELF"

// Role groups used by the router.
var (
	// FundManagers may approve, reject and pay out cases and settle dues.
	FundManagers = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleTreasurer}
	// Administrators manage accounts and reference data.
	Administrators = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == RoleSelf {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
