package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"matatu_hub/internal/geo"
	"matatu_hub/internal/models"
	"matatu_hub/internal/services"
)

// RouteResponse mirrors models.Route with Geometry rendered as GeoJSON.
type RouteResponse struct {
	ID                      uint           `json:"ID"`
	CreatedAt               time.Time      `json:"CreatedAt"`
	UpdatedAt               time.Time      `json:"UpdatedAt"`
	Name                    string         `json:"name"`
	StartLocation           string         `json:"start_location"`
	EndLocation             string         `json:"end_location"`
	Distance                float64        `json:"distance"`
	DurationMinutes         int            `json:"duration_minutes"`
	Fare                    float64        `json:"fare"`
	SaccoID                 uint           `json:"sacco_id"`
	AvgDailyTrips           int            `json:"avg_daily_trips"`
	FuelCostPerKm           float64        `json:"fuel_cost_per_km"`
	MaintenanceCostPerMonth float64        `json:"maintenance_cost_per_month"`
	PeakHoursMultiplier     float64        `json:"peak_hours_multiplier"`
	SeasonalVariance        float64        `json:"seasonal_variance"`
	AvgMonthlyRevenue       float64        `json:"avg_monthly_revenue"`
	Geometry                string         `json:"geometry"`
	Stages                  []models.Stage `json:"stages"`
}

// toRouteResponse converts a models.Route to a RouteResponse
func toRouteResponse(route models.Route) RouteResponse {
	jsonGeom, err := geo.ToGeoJSON(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("toRouteResponse: stored geometry is not valid WKB")
	}
	stages := route.Stages
	if stages == nil {
		stages = []models.Stage{}
	}
	return RouteResponse{
		ID:                      route.ID,
		CreatedAt:               route.CreatedAt,
		UpdatedAt:               route.UpdatedAt,
		Name:                    route.Name(),
		StartLocation:           route.StartLocation,
		EndLocation:             route.EndLocation,
		Distance:                route.Distance,
		DurationMinutes:         route.DurationMinutes,
		Fare:                    route.Fare,
		SaccoID:                 route.SaccoID,
		AvgDailyTrips:           route.AvgDailyTrips,
		FuelCostPerKm:           route.FuelCostPerKm,
		MaintenanceCostPerMonth: route.MaintenanceCostPerMonth,
		PeakHoursMultiplier:     route.PeakHoursMultiplier,
		SeasonalVariance:        route.SeasonalVariance,
		AvgMonthlyRevenue:       route.AvgMonthlyRevenue,
		Geometry:                jsonGeom,
		Stages:                  stages,
	}
}

// ListRoutesBySacco fetches routes for a specific sacco, stages included
func (h *Handler) ListRoutesBySacco(c *gin.Context) {
	saccoID, ok := parseID(c, "id")
	if !ok {
		return
	}
	routes, err := h.Catalog.ListRoutes(c.Request.Context(), saccoID)
	if err != nil {
		writeServiceError(c, "ListRoutesBySacco", err)
		return
	}
	routeResponses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		routeResponses = append(routeResponses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeResponses})
}

// GetRouteEarnings returns the route-level profitability preview.
func (h *Handler) GetRouteEarnings(c *gin.Context) {
	routeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.Earnings.EstimateRouteEarnings(c.Request.Context(), routeID)
	if err != nil {
		writeServiceError(c, "GetRouteEarnings", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateRouteFinancials lets a sacco admin maintain a route's modelling
// fields and geometry.
func (h *Handler) UpdateRouteFinancials(c *gin.Context) {
	routeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Fare                    *float64 `json:"fare"`
		Distance                *float64 `json:"distance"`
		AvgDailyTrips           *int     `json:"avg_daily_trips"`
		FuelCostPerKm           *float64 `json:"fuel_cost_per_km"`
		MaintenanceCostPerMonth *float64 `json:"maintenance_cost_per_month"`
		PeakHoursMultiplier     *float64 `json:"peak_hours_multiplier"`
		SeasonalVariance        *float64 `json:"seasonal_variance"`
		AvgMonthlyRevenue       *float64 `json:"avg_monthly_revenue"`
		Geometry                *string  `json:"geometry"` // GeoJSON, "" clears
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRouteFinancials: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := services.RouteFinancials{
		Fare:                    input.Fare,
		Distance:                input.Distance,
		AvgDailyTrips:           input.AvgDailyTrips,
		FuelCostPerKm:           input.FuelCostPerKm,
		MaintenanceCostPerMonth: input.MaintenanceCostPerMonth,
		PeakHoursMultiplier:     input.PeakHoursMultiplier,
		SeasonalVariance:        input.SeasonalVariance,
		AvgMonthlyRevenue:       input.AvgMonthlyRevenue,
	}
	if input.Geometry != nil {
		if *input.Geometry == "" {
			upd.ClearGeometry = true
		} else {
			wkbGeom, err := geo.ToWKB(*input.Geometry)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
				return
			}
			upd.Geometry = wkbGeom
		}
	}

	route, err := h.Catalog.UpdateRouteFinancials(c.Request.Context(), principal(c), routeID, upd)
	if err != nil {
		writeServiceError(c, "UpdateRouteFinancials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}
