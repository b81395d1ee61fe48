// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ridematch/internal/http/handlers"
	"ridematch/internal/http/middleware"
)

// Presence counts live driver connections for the health endpoint.
type Presence interface {
	Count() int
}

type PendingCounter interface {
	Pending() int
}

type RouterDeps struct {
	Requests  *handlers.RequestHandler
	Drivers   *handlers.DriverHandler
	Customers *handlers.CustomerHandler
	// Channel serves the driver websocket.
	Channel http.Handler

	Presence Presence
	Pending  PendingCounter

	// Gatherer is exposed on /metrics when set.
	Gatherer    prometheus.Gatherer
	HTTPMetrics *middleware.HTTPMetrics
	Logger      zerolog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is running!"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"drivers_connected": deps.Presence.Count(),
			"pending_requests":  deps.Pending.Pending(),
		})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	// Websocket upgrades stay out of the request log; the channel logs its own lifecycle.
	r.GET("/ws", gin.WrapH(deps.Channel))

	api := r.Group("/api", middleware.Logging(deps.Logger))
	api.POST("/customer_request", deps.Requests.Create)
	api.GET("/requests", deps.Requests.List)
	api.GET("/requests/:id", deps.Requests.Get)

	api.GET("/drivers", deps.Drivers.List)
	api.GET("/drivers/status", deps.Drivers.Statuses)
	api.GET("/drivers/nearby", deps.Drivers.Nearby)

	api.GET("/customers", deps.Customers.List)
	api.GET("/customers/:id", deps.Customers.Get)

	return r
}
