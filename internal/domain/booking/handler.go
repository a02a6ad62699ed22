package booking

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: service.now}
}

// Create godoc
// @Summary		Create a booking (guests allowed)
// @Tags		Bookings
// @Accept		json
// @Produce		json
// @Param		body	body	CreateBookingRequest	true	"payload"
// @Success		201	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/bookings/create [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var caller *auth.Principal
	if p, ok := auth.CurrentPrincipal(c); ok {
		caller = &p
	}

	in, err := req.toInput(caller != nil && caller.IsStaff())
	if err != nil {
		h.writeError(c, err, "Failed to create booking")
		return
	}

	out, err := h.service.Create(c.Request.Context(), caller, in)
	if err != nil {
		h.writeError(c, err, "Failed to create booking")
		return
	}

	response.Success(c, http.StatusCreated, h.outcomeBody(out, "Booking created successfully"))
}

// ListMine godoc
// @Summary		Bookings of the current user
// @Tags		Bookings
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Router		/bookings/my-bookings [get]
func (h *Handler) ListMine(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	list, err := h.service.ListMine(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "Failed to load bookings")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"bookings": bookingViews(list, h.now()),
		"count":    len(list),
	})
}

func (h *Handler) GetMine(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	b, err := h.service.GetMine(c.Request.Context(), p, c.Param("reference"))
	if err != nil {
		h.writeError(c, err, "Failed to load booking")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": NewBookingView(b, h.now())})
}

func (h *Handler) Update(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(c, err, "Failed to update booking")
		return
	}

	b, err := h.service.Update(c.Request.Context(), p, c.Param("reference"), in)
	if err != nil {
		h.writeError(c, err, "Failed to update booking")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "Booking updated successfully",
		"booking": NewBookingView(b, h.now()),
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	reason, err := req.parse()
	if err != nil {
		h.writeError(c, err, "Failed to cancel booking")
		return
	}

	out, err := h.service.Cancel(c.Request.Context(), p, c.Param("reference"), reason, req.ReasonDetails)
	if err != nil {
		h.writeError(c, err, "Failed to cancel booking")
		return
	}
	response.Success(c, http.StatusOK, h.outcomeBody(out, "Booking cancelled successfully"))
}

// LookupGuest godoc
// @Summary		Find a booking by reference and email
// @Tags		Bookings
// @Accept		json
// @Param		body	body	GuestLookupRequest	true	"payload"
// @Success		200	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/bookings/lookup [post]
func (h *Handler) LookupGuest(c *gin.Context) {
	var req GuestLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_reference and email are required")
		return
	}
	b, err := h.service.LookupGuest(c.Request.Context(), req.BookingReference, req.Email)
	if err != nil {
		h.writeError(c, err, "Failed to look up booking")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": NewBookingView(b, h.now())})
}

func (h *Handler) CancelGuest(c *gin.Context) {
	var req GuestCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_reference and email are required")
		return
	}
	reason, err := req.parse()
	if err != nil {
		h.writeError(c, err, "Failed to cancel booking")
		return
	}

	out, err := h.service.CancelGuest(c.Request.Context(), req.BookingReference, req.Email, reason, req.ReasonDetails)
	if err != nil {
		h.writeError(c, err, "Failed to cancel booking")
		return
	}
	response.Success(c, http.StatusOK, h.outcomeBody(out, "Booking cancelled successfully"))
}

func (h *Handler) Stats(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	st, err := h.service.Stats(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "Failed to load stats")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": st})
}

func (h *Handler) Upcoming(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	list, err := h.service.Upcoming(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "Failed to load bookings")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": bookingViews(list, h.now())})
}

// AdminList godoc
// @Summary		All bookings for staff
// @Tags		Admin
// @Security	BearerAuth
// @Param		status	query	string	false	"pending|confirmed|cancelled|completed|no_show|all"
// @Success		200	{object}	map[string]interface{}
// @Router		/bookings/admin/all [get]
func (h *Handler) AdminList(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.service.AdminList(c.Request.Context(), p, c.DefaultQuery("status", "all"))
	if err != nil {
		h.writeError(c, err, "Failed to load bookings")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"bookings": items,
		"count":    len(items),
	})
}

func (h *Handler) AdminConfirm(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	ref := c.Param("reference")
	out, err := h.service.AdminConfirm(c.Request.Context(), p, ref)
	if err != nil {
		h.writeError(c, err, "Failed to confirm booking")
		return
	}
	response.Success(c, http.StatusOK, h.statusBody(out, "Booking "+ref+" confirmed successfully"))
}

func (h *Handler) AdminDecline(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req DeclineRequest
	// an empty body declines with the default reason
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	ref := c.Param("reference")
	out, err := h.service.AdminDecline(c.Request.Context(), p, ref, req.Reason)
	if err != nil {
		h.writeError(c, err, "Failed to decline booking")
		return
	}
	response.Success(c, http.StatusOK, h.statusBody(out, "Booking "+ref+" declined successfully"))
}

func (h *Handler) AdminRecordPayment(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount must be a positive number of cents")
		return
	}

	b, err := h.service.AdminRecordPayment(c.Request.Context(), p, c.Param("reference"), PaymentInput{
		Amount:               req.Amount,
		Gateway:              req.Gateway,
		GatewayTransactionID: req.GatewayTransactionID,
		GatewayFee:           req.GatewayFee,
	})
	if err != nil {
		h.writeError(c, err, "Failed to record payment")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": NewBookingView(b, h.now())})
}

func (h *Handler) outcomeBody(out *Outcome, message string) gin.H {
	body := gin.H{
		"message":    message,
		"booking":    NewBookingView(out.Booking, h.now()),
		"email_sent": out.EmailSent,
	}
	if out.Warning != "" {
		body["email_warning"] = out.Warning
	}
	return body
}

func (h *Handler) statusBody(out *Outcome, message string) gin.H {
	body := gin.H{
		"message":        message,
		"booking_status": out.Booking.Status,
		"email_sent":     out.EmailSent,
	}
	if out.Warning != "" {
		body["email_warning"] = out.Warning
	}
	return body
}

func requirePrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return p, ok
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var conflict *ConflictError
	var transition *TransitionError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithFields(c, http.StatusConflict, "DUPLICATE_BOOKING", conflict.Error(), gin.H{
			"error_code":       "DUPLICATE_BOOKING",
			"existing_booking": conflict.Existing,
		})
	case errors.As(err, &transition):
		response.Error(c, http.StatusBadRequest, "INVALID_STATUS", transition.Error())
	case errors.Is(err, ErrInvalidEmail):
		response.ErrorWithFields(c, http.StatusBadRequest, "INVALID_EMAIL", "Please provide a valid email address", gin.H{
			"error_code": "INVALID_EMAIL",
		})
	case errors.Is(err, ErrInvalidTravelers):
		response.Error(c, http.StatusBadRequest, "INVALID_TRAVELERS", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPastDate), errors.Is(err, ErrTourNotFound):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrCannotCancel):
		response.Error(c, http.StatusBadRequest, "CANNOT_CANCEL", "This booking cannot be cancelled")
	case errors.Is(err, ErrCannotUpdate):
		response.Error(c, http.StatusBadRequest, "CANNOT_UPDATE", "This booking can no longer be modified")
	case errors.Is(err, ErrInvalidStatus):
		response.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid status filter")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	default:
		logger.WithContext(c.Request.Context()).Error("booking request failed", "error", err, "path", c.FullPath())
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
