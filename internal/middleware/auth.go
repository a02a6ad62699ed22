package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/jwt"
	"tourbooking/internal/pkg/response"
)

// JWTAuth requires a valid bearer token and stores the caller on the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		principal, code, ok := parseBearer(jwtService, header)
		if !ok {
			msg := "Invalid or expired token"
			if code == "INVALID_AUTH_FORMAT" {
				msg = "Authorization header must be 'Bearer <token>'"
			}
			response.CustomError(c, http.StatusUnauthorized, code, msg)
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalJWTAuth authenticates the caller when a token is present and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func OptionalJWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		principal, code, ok := parseBearer(jwtService, header)
		if !ok {
			response.CustomError(c, http.StatusUnauthorized, code, "Invalid or expired token")
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

func parseBearer(jwtService *jwt.Service, header string) (auth.Principal, string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return auth.Principal{}, "INVALID_AUTH_FORMAT", false
	}

	claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return auth.Principal{}, "INVALID_TOKEN", false
	}

	role, err := auth.ParseRole(claims.Role)
	if err != nil {
		return auth.Principal{}, "INVALID_TOKEN", false
	}

	return auth.Principal{UserID: claims.UserID, Role: role}, "", true
}

func setPrincipal(c *gin.Context, p auth.Principal) {
	auth.SetPrincipal(c, p)
	c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), p.UserID))
}
