package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/pkg/response"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListTours godoc
// @Summary List active tours
// @Tags Catalog
// @Produce json
// @Param page query integer false "Page" example(1)
// @Param limit query integer false "Page size (max 100)" example(20)
// @Success 200 {object} map[string]interface{}
// @Router /tours [get]
func (h *Handler) ListTours(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}

	tours, total, err := h.repo.ListActive(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tours")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tours": tours,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetTour godoc
// @Summary Get a tour by slug
// @Tags Catalog
// @Produce json
// @Param slug path string true "Tour slug"
// @Success 200 {object} map[string]interface{}
// @Router /tours/{slug} [get]
func (h *Handler) GetTour(c *gin.Context) {
	tour, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrTourNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Tour not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load tour")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tour": tour})
}

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list categories")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"categories": cats})
}
