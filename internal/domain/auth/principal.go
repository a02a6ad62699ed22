package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// SetPrincipal stores the caller on the gin context.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(ctxUserID, p.UserID)
	c.Set(ctxRole, string(p.Role))
}

// CurrentPrincipal returns the caller set by the auth middleware.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	userID := c.GetInt64(ctxUserID)
	if userID == 0 {
		return Principal{}, false
	}
	role, err := ParseRole(c.GetString(ctxRole))
	if err != nil {
		return Principal{}, false
	}
	return Principal{UserID: userID, Role: role}, true
}
