// README: Driver handlers; profiles, live statuses and nearby search.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridematch/internal/modules/location"
	"ridematch/internal/modules/profile"
	"ridematch/internal/types"
)

const defaultNearbyRadiusKm = 5.0

type DriverDirectory interface {
	Drivers() []profile.Driver
}

type StatusReader interface {
	All() []location.AgentStatus
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]location.NearbyDriver, error)
}

type DriverHandler struct {
	profiles DriverDirectory
	statuses StatusReader
}

func NewDriverHandler(profiles DriverDirectory, statuses StatusReader) *DriverHandler {
	return &DriverHandler{profiles: profiles, statuses: statuses}
}

func (h *DriverHandler) List(c *gin.Context) {
	drivers := h.profiles.Drivers()
	writeList(c, len(drivers), drivers)
}

// Statuses lists the last reported status of every driver, connected or not.
func (h *DriverHandler) Statuses(c *gin.Context) {
	all := h.statuses.All()
	writeList(c, len(all), all)
}

type nearbyQuery struct {
	Lat      *float64 `form:"lat" binding:"required"`
	Lon      *float64 `form:"lon" binding:"required"`
	RadiusKm float64  `form:"radius_km"`
}

func (h *DriverHandler) Nearby(c *gin.Context) {
	var q nearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "lat and lon are required")
		return
	}
	radius := q.RadiusKm
	if radius <= 0 {
		radius = defaultNearbyRadiusKm
	}
	found, err := h.statuses.Nearby(c.Request.Context(), types.Point{Lat: *q.Lat, Lng: *q.Lon}, radius)
	if err != nil {
		writeError(c, http.StatusBadGateway, "nearby search failed")
		return
	}
	writeList(c, len(found), found)
}
