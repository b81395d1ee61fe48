// README: Great-circle distance between points and nearest-first ordering.
package location

import (
	"math"
	"sort"

	"ridematch/internal/types"
)

// EarthRadiusKm is the mean radius used for every distance in the system.
const EarthRadiusKm = 6371.0

// DistanceKm is the haversine distance between a and b.
func DistanceKm(a, b types.Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := sq(math.Sin(dLat/2)) + math.Cos(lat1)*math.Cos(lat2)*sq(math.Sin(dLng/2))
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func sq(x float64) float64 { return x * x }

// sortNearest orders drivers closest first, ties by driver id.
func sortNearest(ds []NearbyDriver) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].DistanceKm != ds[j].DistanceKm {
			return ds[i].DistanceKm < ds[j].DistanceKm
		}
		return ds[i].DriverID < ds[j].DriverID
	})
}
