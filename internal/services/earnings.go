package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/earnings"
	"matatu_hub/internal/models"
)

type VehicleEarnings struct {
	Vehicle     models.Vehicle               `json:"vehicle"`
	Estimations []earnings.VehicleProjection `json:"earnings_estimations"`
}

// EarningsService loads vehicles and routes and runs the earnings policies
// over them.
type EarningsService struct {
	DB    *gorm.DB
	Cache RouteCache
}

func NewEarningsService(db *gorm.DB, cache RouteCache) *EarningsService {
	return &EarningsService{DB: db, Cache: cache}
}

// EstimateVehicleEarnings projects an owner's vehicle on candidate routes.
// Routes come from saccoID when given, else the vehicle's own sacco, else
// every route.
func (s *EarningsService) EstimateVehicleEarnings(ctx context.Context, ownerID, vehicleID uint, saccoID *uint) (VehicleEarnings, error) {
	db := s.DB.WithContext(ctx)
	vehicle, err := ownedVehicle(db, ownerID, vehicleID)
	if err != nil {
		return VehicleEarnings{}, err
	}

	q := db.Preload("Sacco").Order("id ASC")
	switch {
	case saccoID != nil:
		var sacco models.Sacco
		if err := db.Select("id").First(&sacco, *saccoID).Error; err != nil {
			return VehicleEarnings{}, notFound("sacco", err)
		}
		q = q.Where("sacco_id = ?", *saccoID)
	case vehicle.SaccoID != nil:
		q = q.Where("sacco_id = ?", *vehicle.SaccoID)
	}
	var routes []models.Route
	if err := q.Find(&routes).Error; err != nil {
		return VehicleEarnings{}, err
	}
	return VehicleEarnings{
		Vehicle:     vehicle,
		Estimations: earnings.RankRoutes(vehicle, routes),
	}, nil
}

// EstimateRouteEarnings returns the route-level preview, served from the
// cache when possible. Cache failures fall through to computation.
func (s *EarningsService) EstimateRouteEarnings(ctx context.Context, routeID uint) (earnings.RouteProjection, error) {
	log := logrus.WithField("route_id", routeID)
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, routeID)
		if err != nil {
			log.WithError(err).Warn("earnings: route cache read failed")
		} else if ok {
			return p, nil
		}
	}

	var route models.Route
	if err := s.DB.WithContext(ctx).Preload("Sacco").First(&route, routeID).Error; err != nil {
		return earnings.RouteProjection{}, notFound("route", err)
	}
	var sacco models.Sacco
	if route.Sacco != nil {
		sacco = *route.Sacco
	}
	p := earnings.RouteMonthly(route, sacco)

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p); err != nil {
			log.WithError(err).Warn("earnings: route cache write failed")
		}
	}
	return p, nil
}
