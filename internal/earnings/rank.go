package earnings

import (
	"sort"

	"matatu_hub/internal/models"
)

// RankRoutes projects v on every route and orders the result by net
// earnings, highest first. Ties keep route order.
func RankRoutes(v models.Vehicle, routes []models.Route) []VehicleProjection {
	out := make([]VehicleProjection, 0, len(routes))
	for _, r := range routes {
		out = append(out, VehicleMonthly(v, r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].net.GreaterThan(out[j].net)
	})
	return out
}
