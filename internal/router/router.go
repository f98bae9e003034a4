package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/movierag/internal/handler"
)

// RegisterRoutes wires all endpoints.
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/recommend", h.Recommend)
		api.GET("/stats", h.Stats)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/ingest", h.Ingest)
		admin.DELETE("/movies", h.ClearMovies)
	}
}
