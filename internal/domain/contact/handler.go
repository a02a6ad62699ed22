package contact

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/domain/booking"
	"tourbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Send godoc
// @Summary	Send a contact form message
// @Tags		Contact
// @Accept		json
// @Produce	json
// @Param		body	body	Message	true	"Contact form"
// @Success	200	{object}	map[string]interface{}
// @Router		/contact [post]
func (h *Handler) Send(c *gin.Context) {
	var req Message
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrMissingFields.Error())
		return
	}

	receipt, err := h.service.Submit(c.Request.Context(), req)
	var fields FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fields):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), fields)
		return
	case errors.Is(err, ErrMissingFields):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	case errors.Is(err, booking.ErrInvalidEmail):
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", "Please provide a valid email address")
		return
	default:
		response.Error(c, http.StatusInternalServerError, "EMAIL_FAILED", ErrDeliveryFailed.Error())
		return
	}

	body := gin.H{
		"message":    "Your message has been sent successfully! We will get back to you within 24 hours.",
		"email_sent": receipt.EmailSent,
	}
	if receipt.Warning != "" {
		body["email_warning"] = receipt.Warning
	}
	response.Success(c, http.StatusOK, body)
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.POST("/contact", h.Send)
}
