package router

import (
	"cardhub/handler"
	"cardhub/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.elastic.co/apm/module/apmfiber"
)

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App, h *handler.Handler, gatherer prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api", logger.New())
	api.Use(apmfiber.Middleware())
	api.Use(middleware.TrackMetrics())
	api.Get("/", handler.Hello)

	auth := api.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
	auth.Get("/verify", middleware.Protected(), h.Verify)

	cards := api.Group("/cards")

	// activation paths are open; fixed segments go before :code
	cards.Post("/batch/activate", h.BatchActivate)
	cards.Post("/:code/activate", h.ActivateCard)
	cards.Post("/:code/query", h.QueryCard)

	protected := cards.Group("", middleware.Protected())
	protected.Get("/batch/unreturned-card-numbers", h.UnreturnedCardNumbers)
	protected.Get("/query/by-limit", h.CardsByLimit)
	protected.Get("/export", h.ExportCards)
	protected.Post("/", h.CreateCard)
	protected.Get("/", h.ListCards)
	protected.Get("/:code", h.GetCard)
	protected.Put("/:code", h.UpdateCard)
	protected.Delete("/:code", h.DeleteCard)
	protected.Get("/:code/logs", h.ActivationLogs)
	protected.Get("/:code/raw-responses", h.RawResponses)
	protected.Get("/:code/transactions", h.Transactions)
	protected.Post("/:code/refund", h.ToggleRefund)
	protected.Post("/:code/mark-used", h.ToggleUsed)
	protected.Post("/:code/mark-sold", h.ToggleSold)
}
