package main

import (
	"cardhub/config"
	"cardhub/database"
	"cardhub/handler"
	"cardhub/helper"
	"cardhub/lib"
	"cardhub/middleware"
	"cardhub/repository"
	"cardhub/router"
	"cardhub/scheduler"
	"cardhub/service"
	"cardhub/worker"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	config.SetupEnvFile()
	config.SetupLogfile()

	if err := config.InitIssuerLoggers(); err != nil {
		log.Fatalf("Failed to init issuer loggers: %v", err)
	}
	defer config.ShutdownIssuerLoggers()

	database.ConnectDB()
	defer database.Close()

	cards := repository.NewCardRepository(database.DB)
	logs := repository.NewActivationLogRepository(database.DB)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	middleware.PrometheusInit(registry)
	metrics := service.NewActivationMetrics()
	metrics.MustRegister(registry)

	issuerTimeout := config.ConfigDuration("ISSUER_TIMEOUT_SECONDS", time.Second, 30*time.Second)
	issuers := lib.DefaultRegistry(&http.Client{Timeout: issuerTimeout + 5*time.Second})
	helper.Info("Issuers registered: %s", strings.Join(issuers.Kinds(), ", "))
	activator := service.NewActivator(issuers, service.NewNormalizer())
	activator.Metrics = metrics

	inflightTTL := config.ConfigDuration("INFLIGHT_TTL_SECONDS", time.Second, 5*time.Minute)
	if redisClient := database.InitRedis(); redisClient != nil {
		activator.Guard = service.NewRedisInflightGuard(redisClient, inflightTTL)
	} else {
		activator.Guard = service.NewMemoryInflightGuard(inflightTTL)
	}

	var rawResponses *repository.RawResponseRepository
	if database.SetupMongoDB() {
		dbName := config.Config("MONGODB_DATABASE", "cardhub")
		rawResponses = repository.NewRawResponseRepository(database.GetCollection(dbName, "activation_raw"))
		activator.Recorder = rawResponses
	}

	activation := service.NewActivationService(activator, cards, logs)
	batch := worker.NewBatchCoordinator(activator, cards, logs)
	batch.Metrics = metrics

	expiry := scheduler.NewExpiryScheduler(cards)
	if err := expiry.Start(); err != nil {
		log.Printf("Expiry scheduler disabled: %v", err)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ServerHeader:  "Fiber",
		AppName:       "cardhub",
		ReadTimeout:   30 * time.Second,
	})

	h := handler.New(cards, logs, activation, batch)
	if rawResponses != nil {
		h.Raw = rawResponses
	}
	router.SetupRoutes(app, h, registry)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := ":" + config.Config("PORT", "8000")
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-sigs
	log.Println("Shutting down server...")

	expiry.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
