package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/jwt"
	"tourbooking/internal/pkg/response"
)

// WSHandler upgrades authenticated requests to chat sockets.
type WSHandler struct {
	hub      *Hub
	jwt      *jwt.Service
	sender   Sender
	upgrader websocket.Upgrader
}

// NewWSHandler builds the socket endpoint. allowedOrigins empty accepts any
// origin.
func NewWSHandler(hub *Hub, jwtService *jwt.Service, sender Sender, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		jwt:    jwtService,
		sender: sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket godoc
// @Summary	Open the support chat socket
// @Tags		Chat
// @Param		token	query	string	true	"JWT access token"
// @Router		/chat/ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}
	role, err := auth.ParseRole(claims.Role)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("chat_upgrade_failed", "error", err)
		return
	}

	h.hub.ServeWS(conn, auth.Principal{UserID: claims.UserID, Role: role}, h.sender)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
