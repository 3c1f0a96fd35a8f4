package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"portraitly/config"
	"portraitly/middleware"
	"portraitly/models"
	"portraitly/routes"
	"portraitly/utils"
	"portraitly/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "PORTRAITLY: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry for error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Seed the plan catalog
	if err := models.CreateDefaultPlans(config.DB); err != nil {
		logger.Fatalf("Failed to seed plans: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize the rendering backend client
	workerLog := logrus.New()
	workerLog.SetFormatter(&logrus.JSONFormatter{})
	generationClient := utils.NewGenerationClient(
		config.AppConfig.GenerationAPIURL,
		config.AppConfig.GenerationAPIKey,
		workerLog,
	)

	// Initialize and start the generation worker
	generationWorker := worker.NewGenerationWorker(config.DB, generationClient, workerLog)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go generationWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
