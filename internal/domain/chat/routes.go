package chat

import "github.com/gin-gonic/gin"

// RegisterProtectedRoutes mounts the endpoints open to any signed-in user.
func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	chat := protected.Group("/chat")
	{
		chat.POST("/send", h.Send)
		chat.GET("/my-messages", h.MyMessages)
		chat.POST("/mark-read", h.MarkRead)
		chat.GET("/unread", h.Unread)
	}
}

// RegisterStaffRoutes expects a group already guarded by staff middleware.
func (h *Handler) RegisterStaffRoutes(staff *gin.RouterGroup) {
	chat := staff.Group("/chat")
	{
		chat.GET("/conversations", h.Conversations)
		chat.GET("/conversation/:id/messages", h.ConversationMessages)
		chat.DELETE("/messages/:id", h.DeleteMessage)
		chat.DELETE("/conversation/:id", h.DeleteConversation)
	}
}

// RegisterSocketRoute mounts the websocket endpoint, which authenticates
// with ?token= instead of the Authorization header.
func (h *WSHandler) RegisterSocketRoute(v1 *gin.RouterGroup) {
	v1.GET("/chat/ws", h.HandleWebSocket)
}
