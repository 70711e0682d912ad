// Package earnings projects monthly revenue, costs and profit for matatu
// routes. Two policies exist and are kept apart on purpose: VehicleMonthly
// answers "what would this vehicle earn here" for an owner, RouteMonthly
// previews a route's profitability for anyone browsing a sacco.
package earnings

import (
	"github.com/shopspring/decimal"

	"matatu_hub/internal/models"
)

// Vehicle-level assumptions.
const (
	WorkingDaysPerMonth = 26
	FuelPricePerLiter   = 150
	VehicleCommission   = 0.12
)

// Route-level assumptions.
const (
	RouteDaysPerMonth = 30
	RouteAssumedSeats = 14
)

// OccupancyRate is shared by both policies.
const OccupancyRate = 0.75

// Assumptions echoes the inputs a projection was computed with.
type Assumptions struct {
	TripsPerDay   int     `json:"trips_per_day"`
	WorkingDays   int     `json:"working_days"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

// VehicleProjection is the per-vehicle monthly estimate for one route.
type VehicleProjection struct {
	RouteID         uint        `json:"route_id"`
	RouteName       string      `json:"route_name"`
	RouteDistance   float64     `json:"route_distance"`
	RouteFare       float64     `json:"route_fare"`
	SaccoID         uint        `json:"sacco_id"`
	SaccoName       string      `json:"sacco_name"`
	GrossRevenue    float64     `json:"gross_revenue"`
	FuelCosts       float64     `json:"fuel_costs"`
	InsuranceCosts  float64     `json:"insurance_costs"`
	MaintenanceCost float64     `json:"maintenance_costs"`
	SaccoCommission float64     `json:"sacco_commission"`
	TotalCosts      float64     `json:"total_costs"`
	NetEarnings     float64     `json:"net_earnings"`
	Assumptions     Assumptions `json:"assumptions"`

	net decimal.Decimal
}

// RouteProjection is the route-centric preview with peak and seasonal
// adjustments applied to net earnings.
type RouteProjection struct {
	RouteID             uint        `json:"route_id"`
	RouteName           string      `json:"route_name"`
	SaccoID             uint        `json:"sacco_id"`
	GrossRevenue        float64     `json:"gross_revenue"`
	FuelCosts           float64     `json:"fuel_costs"`
	MaintenanceCost     float64     `json:"maintenance_costs"`
	SaccoCommission     float64     `json:"sacco_commission"`
	CommissionRate      float64     `json:"commission_rate"`
	TotalCosts          float64     `json:"total_costs"`
	BaseNetEarnings     float64     `json:"base_net_earnings"`
	PeakHoursMultiplier float64     `json:"peak_hours_multiplier"`
	SeasonalVariance    float64     `json:"seasonal_variance"`
	NetEarnings         float64     `json:"net_earnings"`
	Assumptions         Assumptions `json:"assumptions"`
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// VehicleMonthly projects one vehicle on one route over a 26 working day
// month. Zero seats or distance yield zero components, never an error.
func VehicleMonthly(v models.Vehicle, r models.Route) VehicleProjection {
	trips := decimal.NewFromInt(int64(r.EffectiveTripsPerDay()))
	days := decimal.NewFromInt(WorkingDaysPerMonth)
	occupancy := dec(OccupancyRate)

	perTrip := dec(r.Fare).Mul(decimal.NewFromInt(int64(v.SeatingCapacity))).Mul(occupancy)
	revenue := perTrip.Mul(trips).Mul(days)

	monthlyDistance := dec(r.Distance).Mul(trips).Mul(decimal.NewFromInt(2)).Mul(days)
	fuel := monthlyDistance.Mul(dec(v.FuelConsumptionPerKm)).Mul(decimal.NewFromInt(FuelPricePerLiter))

	insurance := dec(v.MonthlyInsurance)
	maintenance := dec(v.MonthlyMaintenance)
	commission := revenue.Mul(dec(VehicleCommission))

	total := fuel.Add(insurance).Add(maintenance).Add(commission)
	net := revenue.Sub(total)

	p := VehicleProjection{
		RouteID:         r.ID,
		RouteName:       r.Name(),
		RouteDistance:   r.Distance,
		RouteFare:       r.Fare,
		SaccoID:         r.SaccoID,
		GrossRevenue:    revenue.InexactFloat64(),
		FuelCosts:       fuel.InexactFloat64(),
		InsuranceCosts:  insurance.InexactFloat64(),
		MaintenanceCost: maintenance.InexactFloat64(),
		SaccoCommission: commission.InexactFloat64(),
		TotalCosts:      total.InexactFloat64(),
		NetEarnings:     net.InexactFloat64(),
		Assumptions: Assumptions{
			TripsPerDay:   r.EffectiveTripsPerDay(),
			WorkingDays:   WorkingDaysPerMonth,
			OccupancyRate: OccupancyRate,
		},
		net: net,
	}
	if r.Sacco != nil {
		p.SaccoName = r.Sacco.Name
	}
	return p
}

// RouteMonthly previews a route's monthly profitability over 30 days using
// the sacco's commission rate and the route's own cost fields.
func RouteMonthly(r models.Route, s models.Sacco) RouteProjection {
	trips := decimal.NewFromInt(int64(r.EffectiveTripsPerDay()))
	days := decimal.NewFromInt(RouteDaysPerMonth)

	revenue := dec(r.Fare).
		Mul(decimal.NewFromInt(RouteAssumedSeats)).
		Mul(dec(OccupancyRate)).
		Mul(trips).
		Mul(days)

	fuel := dec(r.Distance).Mul(decimal.NewFromInt(2)).Mul(dec(r.FuelCostPerKm)).Mul(days)
	rate := dec(s.CommissionFraction())
	commission := revenue.Mul(rate)
	maintenance := dec(r.MaintenanceCostPerMonth)

	total := fuel.Add(commission).Add(maintenance)
	base := revenue.Sub(total)

	peak := r.EffectivePeakMultiplier()
	net := base.Mul(dec(peak)).Mul(decimal.NewFromInt(1).Add(dec(r.SeasonalVariance)))

	return RouteProjection{
		RouteID:             r.ID,
		RouteName:           r.Name(),
		SaccoID:             r.SaccoID,
		GrossRevenue:        revenue.InexactFloat64(),
		FuelCosts:           fuel.InexactFloat64(),
		MaintenanceCost:     maintenance.InexactFloat64(),
		SaccoCommission:     commission.InexactFloat64(),
		CommissionRate:      rate.Mul(decimal.NewFromInt(100)).InexactFloat64(),
		TotalCosts:          total.InexactFloat64(),
		BaseNetEarnings:     base.InexactFloat64(),
		PeakHoursMultiplier: peak,
		SeasonalVariance:    r.SeasonalVariance,
		NetEarnings:         net.InexactFloat64(),
		Assumptions: Assumptions{
			TripsPerDay:   r.EffectiveTripsPerDay(),
			WorkingDays:   RouteDaysPerMonth,
			OccupancyRate: OccupancyRate,
		},
	}
}
