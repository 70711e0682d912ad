package models

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	DefaultTripsPerDay         = 8
	DefaultPeakHoursMultiplier = 1.0
)

// Route represents a service path operated by a sacco.
// A sacco can have multiple routes; each route has many stages.
type Route struct {
	gorm.Model

	StartLocation   string  `json:"start_location" binding:"required"`
	EndLocation     string  `json:"end_location" binding:"required"`
	Distance        float64 `json:"distance"` // km, stored not computed
	DurationMinutes int     `json:"duration_minutes"`
	Fare            float64 `json:"fare"`
	SaccoID         uint    `json:"sacco_id" gorm:"index"`
	Sacco           *Sacco  `gorm:"foreignKey:SaccoID" json:"sacco,omitempty"`

	// Geometry stored as WKB; the API exchanges GeoJSON.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	// Financial modelling fields. Zero means "not configured" and the
	// Effective* accessors resolve the defaults.
	AvgDailyTrips           int     `json:"avg_daily_trips" gorm:"default:0"`
	FuelCostPerKm           float64 `json:"fuel_cost_per_km" gorm:"default:0"`
	MaintenanceCostPerMonth float64 `json:"maintenance_cost_per_month" gorm:"default:0"`
	PeakHoursMultiplier     float64 `json:"peak_hours_multiplier" gorm:"default:1"`
	SeasonalVariance        float64 `json:"seasonal_variance" gorm:"default:0"`
	AvgMonthlyRevenue       float64 `json:"avg_monthly_revenue" gorm:"default:0"`

	Stages []Stage `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stages,omitempty"`
}

func (r Route) Name() string {
	return fmt.Sprintf("%s to %s", r.StartLocation, r.EndLocation)
}

func (r Route) EffectiveTripsPerDay() int {
	if r.AvgDailyTrips > 0 {
		return r.AvgDailyTrips
	}
	return DefaultTripsPerDay
}

func (r Route) EffectivePeakMultiplier() float64 {
	if r.PeakHoursMultiplier > 0 {
		return r.PeakHoursMultiplier
	}
	return DefaultPeakHoursMultiplier
}
