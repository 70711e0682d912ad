package routes

import (
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
	"matatu_hub/internal/middleware"
	"matatu_hub/internal/models"
)

func OwnerRoutes(r *gin.Engine, h *controllers.Handler) {
	owner := r.Group("/owner")
	owner.Use(middleware.RequireAuth(h.DB), middleware.RequireRole(models.RoleVehicleOwner))
	{
		owner.GET("/vehicles", h.GetMyVehicles)
		owner.POST("/vehicles", h.CreateVehicle)
		owner.GET("/vehicles/:id/documents", h.ListVehicleDocuments)
		owner.POST("/vehicles/:id/documents", h.UploadVehicleDocument)
		owner.GET("/vehicles/:id/documents/status", h.GetDocumentStatus)
		owner.GET("/vehicles/:id/earnings", h.GetVehicleEarnings)

		owner.POST("/join-requests", h.CreateJoinRequest)
		owner.GET("/join-requests", h.ListMyJoinRequests)
		owner.GET("/join-requests/:id", h.GetMyJoinRequest)
	}
}
