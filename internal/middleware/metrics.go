package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
	"tourbooking/internal/pkg/response"
)

// Metrics records request counts and latency per route template.
func Metrics(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		reg.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		reg.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsTokenAuth protects the scrape endpoint with a static bearer token.
// An empty token leaves the endpoint open, which is the dev default.
func MetricsTokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logAuthFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			response.CustomError(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			logAuthFailure(c, http.StatusForbidden, "invalid_token")
			response.CustomError(c, http.StatusForbidden, "AUTH_INVALID", "Invalid metrics token")
			return
		}

		c.Next()
	}
}

func logAuthFailure(c *gin.Context, status int, reason string) {
	logger.WithContext(c.Request.Context()).Warn("metrics_auth_failed", "status", status, "reason", reason)
}
