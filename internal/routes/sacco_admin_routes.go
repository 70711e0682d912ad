package routes

import (
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
	"matatu_hub/internal/middleware"
	"matatu_hub/internal/models"
)

// SaccoAdminRoutes are open to sacco admins; per-sacco checks happen in
// the services. Superusers hold the sacco_admin role implicitly.
func SaccoAdminRoutes(r *gin.Engine, h *controllers.Handler) {
	admin := r.Group("/sacco-admin")
	admin.Use(middleware.RequireAuth(h.DB), middleware.RequireRole(models.RoleSaccoAdmin))
	{
		admin.GET("/saccos/:id/join-requests/pending", h.ListPendingRequests)
		admin.GET("/saccos/:id/join-requests", h.ListSaccoRequests)
		admin.GET("/join-requests/:id", h.GetJoinRequest)
		admin.POST("/join-requests/:id/review", h.ReviewJoinRequest)
		admin.POST("/join-requests/:id/approve", h.ApproveJoinRequest)
		admin.POST("/join-requests/:id/reject", h.RejectJoinRequest)
		admin.PATCH("/routes/:id/financials", h.UpdateRouteFinancials)
	}
}
