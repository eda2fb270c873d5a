package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var fiberProm *fiberprometheus.FiberPrometheus

// InitMetrics registers the Prometheus HTTP metrics collector and exposes
// the scrape endpoint at /metrics.
func InitMetrics(app *fiber.App) {
	// The collector registers with the default Prometheus registry, so it is
	// created once even when several apps are set up in one process.
	if fiberProm == nil {
		fiberProm = fiberprometheus.New("accessdesk-api")
	}
	fiberProm.RegisterAt(app, "/metrics")
}

// MetricsMiddleware returns the Fiber handler that records per-request
// latency and status metrics. InitMetrics must have been called first.
func MetricsMiddleware() fiber.Handler {
	if fiberProm == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return fiberProm.Middleware
}
