// README: Travel-time estimates for requests that arrive without a duration.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"ridematch/internal/modules/location"
	"ridematch/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// RouteService asks the Directions API for a driving estimate.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a RouteService. Extra client options (such as a
// base URL) are passed through to the maps client.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// EstimateMinutes returns the driving time from origin to destination.
func (s *RouteService) EstimateMinutes(ctx context.Context, origin, destination types.Point) (float64, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, ErrNoRoute
	}
	return math.Ceil(routes[0].Legs[0].Duration.Minutes()), nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// StraightLine estimates travel time from great-circle distance at a fixed
// average speed. Used when no maps API key is configured.
type StraightLine struct {
	SpeedKmh float64
}

func (s StraightLine) EstimateMinutes(_ context.Context, origin, destination types.Point) (float64, error) {
	if s.SpeedKmh <= 0 {
		return 0, fmt.Errorf("straight-line speed must be positive, got %v", s.SpeedKmh)
	}
	km := location.DistanceKm(origin, destination)
	return math.Ceil(km / s.SpeedKmh * 60), nil
}
