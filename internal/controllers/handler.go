package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/middleware"
	"matatu_hub/internal/notify"
	"matatu_hub/internal/services"
)

// Handler bundles the services the HTTP layer talks to.
type Handler struct {
	DB           *gorm.DB
	JoinRequests *services.JoinRequestService
	Queries      *services.JoinRequestQueries
	Documents    *services.DocumentService
	Vehicles     *services.VehicleService
	Earnings     *services.EarningsService
	Catalog      *services.CatalogService
	Hub          *notify.Hub
}

// New wires every service over db. cache may be nil.
func New(db *gorm.DB, n notify.Notifier, cache services.RouteCache, hub *notify.Hub) *Handler {
	return &Handler{
		DB:           db,
		JoinRequests: services.NewJoinRequestService(db, n),
		Queries:      services.NewJoinRequestQueries(db),
		Documents:    services.NewDocumentService(db),
		Vehicles:     services.NewVehicleService(db),
		Earnings:     services.NewEarningsService(db, cache),
		Catalog:      services.NewCatalogService(db, cache),
		Hub:          hub,
	}
}

func principal(c *gin.Context) authz.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(c *gin.Context, op string, err error) {
	var (
		verr    *services.ValidationError
		missing *services.MissingDocumentsError
		already *services.AlreadyProcessedError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error(), "missing_documents": missing.Missing})
	case errors.Is(err, services.ErrVehicleInSacco):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &already):
		c.JSON(http.StatusConflict, gin.H{"error": already.Error(), "status": already.Status})
	case errors.Is(err, services.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to manage this sacco"})
	default:
		logrus.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error(op + ": unexpected failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
