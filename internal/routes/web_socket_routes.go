package routes

import (
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
)

// WebSocketRoutes authenticates with ?token= inside the handler.
func WebSocketRoutes(r *gin.Engine, h *controllers.Handler) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/notifications", h.HandleNotificationWebSocket)
	}
}
