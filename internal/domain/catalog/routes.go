package catalog

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tours := r.Group("/tours")
	{
		tours.GET("", h.ListTours)
		tours.GET("/categories", h.ListCategories)
		tours.GET("/:slug", h.GetTour)
	}
}
