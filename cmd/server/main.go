package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"parcelvoice/internal/config"
	"parcelvoice/internal/database"
	"parcelvoice/internal/dispatch"
	"parcelvoice/internal/handlers"
	"parcelvoice/internal/jobs"
	"parcelvoice/internal/logging"
	"parcelvoice/internal/middleware"
	"parcelvoice/internal/models"
	"parcelvoice/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting ParcelVoice Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Confidence threshold: %.2f)", cfg.Port, cfg.ConfidenceThreshold)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Redis is optional; without it rollup events simply aren't published.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Failed to connect to Redis: %v (rollup events disabled)", err)
		} else {
			defer redisService.Close()
			log.Println("✅ Redis connected successfully")
		}
	}

	// Services
	metrics := services.InitMetrics()
	shortcutService := services.NewShortcutService(db)
	helpService := services.NewHelpService(db)
	analyticsService := services.NewAnalyticsService(db, redisService)
	recoveryService := services.NewErrorRecoveryService(helpService)

	if cfg.HelpSeedsPath != "" {
		if err := helpService.SeedFromFile(context.Background(), cfg.HelpSeedsPath); err != nil {
			log.Printf("⚠️  Failed to seed help content: %v", err)
		}
	}

	// Domain handlers. Deployments embed their own; the stubs make every
	// command type resolvable so callers always get recovery guidance.
	registry := dispatch.NewRegistry()
	for _, ct := range []models.CommandType{
		models.CommandTypeNavigation,
		models.CommandTypeAssessment,
		models.CommandTypeDataQuery,
		models.CommandTypeSystem,
		models.CommandTypeWorkflow,
		models.CommandTypeCoding,
	} {
		handler := dispatch.Noop()
		if cfg.HandlerRateLimit > 0 {
			handler = dispatch.RateLimited(handler, cfg.HandlerRateLimit, int(cfg.HandlerRateLimit)+1)
		}
		registry.Register(ct, handler)
	}

	processor := services.NewCommandProcessor(
		shortcutService,
		services.NewIntentClassifier(),
		services.NewParamExtractor(),
		services.NewConfidenceScorer(),
		recoveryService,
		helpService,
		registry,
		analyticsService,
		metrics,
		cfg.ConfidenceThreshold,
	)

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("retention_cleanup", jobs.NewRetentionCleanupJob(analyticsService, cfg.LogRetentionDays))
	jobScheduler.Register("rollup_backfill", jobs.NewRollupBackfillJob(analyticsService))
	jobScheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ParcelVoice v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // commands are small; 1MB is generous
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("parcelvoice")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Session-ID,X-User-ID",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Per-IP rate limit on the API surface
	app.Use("/api", limiter.New(limiter.Config{
		Max:        200,
		Expiration: 1 * time.Minute,
	}))

	app.Use(middleware.Session())

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	commandHandler := handlers.NewCommandHandler(processor)
	shortcutHandler := handlers.NewShortcutHandler(shortcutService)
	helpHandler := handlers.NewHelpHandler(helpService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/commands", commandHandler.Process)

	shortcuts := api.Group("/shortcuts")
	shortcuts.Get("/", shortcutHandler.List)
	shortcuts.Post("/", shortcutHandler.Create)
	shortcuts.Get("/:id", shortcutHandler.Get)
	shortcuts.Put("/:id", shortcutHandler.Update)
	shortcuts.Delete("/:id", shortcutHandler.Delete)

	help := api.Group("/help")
	help.Get("/", helpHandler.List)
	help.Get("/contextual", helpHandler.Contextual)
	help.Get("/search", helpHandler.Search)
	help.Post("/", helpHandler.Create)
	help.Get("/:id", helpHandler.Get)
	help.Put("/:id", helpHandler.Update)
	help.Delete("/:id", helpHandler.Delete)

	analytics := api.Group("/analytics")
	analytics.Get("/daily", analyticsHandler.Daily)
	analytics.Get("/overview", analyticsHandler.Overview)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		// Let in-flight rollup recomputes finish before the DB closes
		analyticsService.Wait()
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
