package notification

import "github.com/gin-gonic/gin"

// RegisterStaffRoutes expects a group already guarded by staff middleware.
func (h *Handler) RegisterStaffRoutes(staff *gin.RouterGroup) {
	staff.GET("/admin/notifications", h.ListDeliveries)
}
