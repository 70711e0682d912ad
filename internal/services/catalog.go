package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
)

// CatalogService serves the sacco and route listings owners browse before
// applying, and lets sacco admins maintain route financials.
type CatalogService struct {
	DB    *gorm.DB
	Cache RouteCache
}

func NewCatalogService(db *gorm.DB, cache RouteCache) *CatalogService {
	return &CatalogService{DB: db, Cache: cache}
}

func (s *CatalogService) ListSaccos(ctx context.Context) ([]models.Sacco, error) {
	var out []models.Sacco
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (s *CatalogService) ListRoutes(ctx context.Context, saccoID uint) ([]models.Route, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Sacco{}).Where("id = ?", saccoID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	var out []models.Route
	err := s.DB.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("sacco_id = ?", saccoID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// RouteFinancials is a partial update; nil fields are left unchanged.
type RouteFinancials struct {
	Fare                    *float64
	Distance                *float64
	AvgDailyTrips           *int
	FuelCostPerKm           *float64
	MaintenanceCostPerMonth *float64
	PeakHoursMultiplier     *float64
	SeasonalVariance        *float64
	AvgMonthlyRevenue       *float64
	Geometry                []byte
	ClearGeometry           bool
}

// UpdateRouteFinancials applies in to a route the actor administers and
// drops the cached route projection.
func (s *CatalogService) UpdateRouteFinancials(ctx context.Context, actor authz.Principal, routeID uint, in RouteFinancials) (models.Route, error) {
	var route models.Route
	db := s.DB.WithContext(ctx)
	if err := db.Preload("Sacco").First(&route, routeID).Error; err != nil {
		return route, notFound("route", err)
	}
	if route.Sacco == nil || !actor.CanAdminister(*route.Sacco) {
		return route, ErrForbidden
	}
	if err := applyRouteFinancials(&route, in); err != nil {
		return route, err
	}
	if err := db.Omit("Sacco", "Stages").Save(&route).Error; err != nil {
		return route, err
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, route.ID); err != nil {
			logrus.WithError(err).WithField("route_id", route.ID).Warn("catalog: route cache invalidation failed")
		}
	}
	return route, nil
}

func applyRouteFinancials(r *models.Route, in RouteFinancials) error {
	// Checked in declaration order so the first bad field is reported.
	amounts := []struct {
		field string
		v     *float64
	}{
		{"fare", in.Fare},
		{"distance", in.Distance},
		{"fuel_cost_per_km", in.FuelCostPerKm},
		{"maintenance_cost_per_month", in.MaintenanceCostPerMonth},
		{"peak_hours_multiplier", in.PeakHoursMultiplier},
		{"avg_monthly_revenue", in.AvgMonthlyRevenue},
	}
	for _, a := range amounts {
		if a.v != nil && *a.v < 0 {
			return &ValidationError{Field: a.field, Msg: "must not be negative"}
		}
	}
	if in.AvgDailyTrips != nil && *in.AvgDailyTrips < 0 {
		return &ValidationError{Field: "avg_daily_trips", Msg: "must not be negative"}
	}
	if in.SeasonalVariance != nil && *in.SeasonalVariance < -1 {
		return &ValidationError{Field: "seasonal_variance", Msg: "must be at least -1"}
	}

	if in.Fare != nil {
		r.Fare = *in.Fare
	}
	if in.Distance != nil {
		r.Distance = *in.Distance
	}
	if in.AvgDailyTrips != nil {
		r.AvgDailyTrips = *in.AvgDailyTrips
	}
	if in.FuelCostPerKm != nil {
		r.FuelCostPerKm = *in.FuelCostPerKm
	}
	if in.MaintenanceCostPerMonth != nil {
		r.MaintenanceCostPerMonth = *in.MaintenanceCostPerMonth
	}
	if in.PeakHoursMultiplier != nil {
		r.PeakHoursMultiplier = *in.PeakHoursMultiplier
	}
	if in.SeasonalVariance != nil {
		r.SeasonalVariance = *in.SeasonalVariance
	}
	if in.AvgMonthlyRevenue != nil {
		r.AvgMonthlyRevenue = *in.AvgMonthlyRevenue
	}
	switch {
	case in.ClearGeometry:
		r.Geometry = nil
	case in.Geometry != nil:
		r.Geometry = in.Geometry
	}
	return nil
}
