package routes

import (
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
	"matatu_hub/internal/middleware"
)

// SaccoRoutes is the catalog any signed-in user may browse.
func SaccoRoutes(r *gin.Engine, h *controllers.Handler) {
	sacco := r.Group("/saccos")
	sacco.Use(middleware.RequireAuth(h.DB))
	{
		sacco.GET("", h.ListSaccos)
		sacco.GET("/:id/routes", h.ListRoutesBySacco)
	}

	route := r.Group("/routes")
	route.Use(middleware.RequireAuth(h.DB))
	{
		route.GET("/:id/earnings", h.GetRouteEarnings)
	}
}
