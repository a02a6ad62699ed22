package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

const (
	corsAllowHeaders  = "Content-Type, Authorization, Accept, Origin, X-Requested-With, X-Request-ID"
	corsAllowMethods  = "GET, POST, PATCH, DELETE, OPTIONS"
	corsExposeHeaders = "X-Request-ID"
)

// CORS answers browser preflights for the booking frontend. Configured
// origins are added to the local dev ones; "*" opens the API to any origin
// but then credentials are not allowed.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(devOrigins)+len(origins))
	wildcard := false
	for _, o := range append(append([]string{}, devOrigins...), origins...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			wildcard = true
		default:
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			} else if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			}
		}
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		// preflight ends here, before auth
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
