package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/response"
)

// RequireRoles lets the request through when the caller holds one of the
// roles. It must run after JWTAuth.
func RequireRoles(denied string, roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.CurrentPrincipal(c)
		if !ok {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !slices.Contains(roles, p.Role) {
			logger.WithContext(c.Request.Context()).Warn("role_denied",
				"role", p.Role, "path", c.FullPath())
			response.CustomError(c, http.StatusForbidden, "FORBIDDEN", denied)
			return
		}
		c.Next()
	}
}

// StaffOnly guards the admin booking, chat inbox and notification routes.
func StaffOnly() gin.HandlerFunc {
	return RequireRoles("Admin access required", auth.RoleStaff)
}
