// README: Reverse geocoding for pickup and dropoff points sent without an address.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridematch/internal/types"
)

type PlacesService struct {
	client *maps.Client
}

func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// Address returns the formatted address closest to p.
func (s *PlacesService) Address(ctx context.Context, p types.Point) (string, error) {
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
	})
	if err != nil {
		return "", fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no address for %f,%f", p.Lat, p.Lng)
	}
	return results[0].FormattedAddress, nil
}
