// README: Shared identifiers and coordinates used across modules.
package types

type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lon"`
}

// Place is a point with an optional free-text label.
type Place struct {
	Point
	Address string `json:"address,omitempty"`
}
