package routes

import (
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
)

func AuthRoutes(r *gin.Engine, h *controllers.Handler) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.LoginUser)
	}
}
