// README: Candidate ranking by distance to the pickup point.
package matching

import (
	"sort"

	"ridematch/internal/modules/location"
)

// Rank orders drivers by haversine distance to the request origin, closest
// first, with ties broken by driver id. The result is a fresh slice.
func Rank(req Request, drivers []location.AgentStatus) []Candidate {
	out := make([]Candidate, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, Candidate{
			DriverID:   d.DriverID,
			DistanceKm: location.DistanceKm(d.Position, req.From.Point),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out
}
