package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/response"
)

// Handler handles HTTP requests for the chat domain
type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

type sendRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  *int64 `json:"user_id"`
}

type markReadRequest struct {
	ConversationID *int64 `json:"conversation_id"`
}

// Send godoc
// @Summary	Send a chat message over HTTP
// @Tags		Chat
// @Security	BearerAuth
// @Accept		json
// @Produce	json
// @Param		body	body	sendRequest	true	"Message"
// @Success	201	{object}	map[string]interface{}
// @Router		/chat/send [post]
func (h *Handler) Send(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrEmptyMessage.Error())
		return
	}

	d, err := h.service.Send(c.Request.Context(), p, req.Message, req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.hub.Deliver(c.Request.Context(), d)
	h.service.NotifyStaff(c.Request.Context(), d)

	response.Success(c, http.StatusCreated, gin.H{
		"message":         d.Message,
		"conversation_id": d.ConversationID,
	})
}

// Conversations godoc
// @Summary	List support conversations (staff)
// @Tags		Chat
// @Security	BearerAuth
// @Produce	json
// @Router		/chat/conversations [get]
func (h *Handler) Conversations(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.service.Conversations(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"conversations": list})
}

func (h *Handler) ConversationMessages(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	msgs, err := h.service.Messages(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"conversation_id": id, "messages": msgs})
}

func (h *Handler) MyMessages(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	thread, err := h.service.MyMessages(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, thread)
}

func (h *Handler) MarkRead(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req markReadRequest
	// body is optional for customers
	_ = c.ShouldBindJSON(&req)

	if err := h.service.MarkRead(c.Request.Context(), p, req.ConversationID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Messages marked as read"})
}

func (h *Handler) Unread(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	summary, err := h.service.Unread(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteMessage(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Message deleted"})
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteConversation(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Conversation deleted"})
}

// ---- helpers ----

func mustPrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return p, ok
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrTargetRequired),
		errors.Is(err, ErrConversationRequired):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, ErrConversationNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Message not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	default:
		logger.WithContext(c.Request.Context()).Error("chat_request_failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process chat request")
	}
}
