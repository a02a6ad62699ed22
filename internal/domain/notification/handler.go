package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/pkg/response"
)

type Handler struct {
	deliveries *DeliveryRepository
}

func NewHandler(deliveries *DeliveryRepository) *Handler {
	return &Handler{deliveries: deliveries}
}

// ListDeliveries godoc
// @Summary		Recent notification deliveries
// @Tags		Notifications
// @Security	BearerAuth
// @Param		booking_reference	query	string	false	"Filter by booking reference"
// @Param		limit	query	int	false	"Max rows (default 50, max 200)"
// @Success		200	{object}	map[string]interface{}
// @Router		/admin/notifications [get]
func (h *Handler) ListDeliveries(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, 200)
		}
	}

	list, err := h.deliveries.ListRecent(c.Request.Context(), c.Query("booking_reference"), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load deliveries")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deliveries": list})
}
