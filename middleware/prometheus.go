package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardhub_requests_total",
			Help: "Total number of requests processed by the cardhub API.",
		},
		[]string{"path", "status"},
	)

	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardhub_requests_errors_total",
			Help: "Total number of error requests processed by the cardhub API.",
		},
		[]string{"path", "status"},
	)
)

// PrometheusInit registers the request metrics
func PrometheusInit(registerer prometheus.Registerer) {
	registerer.MustRegister(RequestCount)
	registerer.MustRegister(ErrorCount)
}

// TrackMetrics is a middleware that tracks request metrics
func TrackMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// route pattern keeps card codes out of the label set
		err := c.Next()
		path := c.Route().Path
		status := c.Response().StatusCode()

		RequestCount.WithLabelValues(path, http.StatusText(status)).Inc()

		if status >= 400 {
			ErrorCount.WithLabelValues(path, http.StatusText(status)).Inc()
		}

		return err
	}
}
