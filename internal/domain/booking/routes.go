package booking

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the guest endpoints. optionalAuth attaches a
// principal when a valid token is present.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	bookings := v1.Group("/bookings")
	{
		bookings.POST("/create", optionalAuth, h.Create)
		bookings.POST("/lookup", h.LookupGuest)
		bookings.POST("/cancel-guest", h.CancelGuest)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	bookings := protected.Group("/bookings")
	{
		bookings.GET("/my-bookings", h.ListMine)
		bookings.GET("/my-bookings/:reference", h.GetMine)
		bookings.PATCH("/my-bookings/:reference/update", h.Update)
		bookings.POST("/my-bookings/:reference/cancel", h.Cancel)
		bookings.GET("/stats", h.Stats)
		bookings.GET("/upcoming", h.Upcoming)
	}
}

// RegisterStaffRoutes expects a group already guarded by staff middleware.
func (h *Handler) RegisterStaffRoutes(staff *gin.RouterGroup) {
	admin := staff.Group("/bookings/admin")
	{
		admin.GET("/all", h.AdminList)
		admin.POST("/:reference/confirm", h.AdminConfirm)
		admin.POST("/:reference/decline", h.AdminDecline)
		admin.POST("/:reference/payments", h.AdminRecordPayment)
	}
}
