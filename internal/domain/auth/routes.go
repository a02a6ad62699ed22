package auth

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts signup and login; /auth/me needs a token and
// is mounted by RegisterProtectedRoutes.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	g := v1.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/auth/me", h.Me)
}
