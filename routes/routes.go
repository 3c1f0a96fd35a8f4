package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "portraitly/controllers"
	"portraitly/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	// Payment routes; the webhook is authenticated by its Stripe signature
	payment := app.Group("/payment")
	payment.Post("/create-intent", middleware.Protected(), controller.CreatePaymentIntent)
	payment.Post("/webhook", controller.HandlePaymentWebhook)

	// Log initialization
	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Plan and credit routes
	api.Get("/plan", controller.GetPlan)
	api.Get("/plans", controller.ListPlans)
	credits := api.Group("/credits")
	credits.Get("/", controller.GetCreditBalance)
	credits.Get("/transactions", controller.ListCreditTransactions)
	credits.Get("/usage", controller.ListCreditUsage)

	// Selfie routes
	selfie := api.Group("/selfies")
	selfie.Get("/", controller.ListSelfies)
	selfie.Post("/", controller.CreateSelfie)
	selfie.Get("/selected", controller.ListSelectedSelfies)
	selfie.Post("/select", controller.SelectSelfies)
	selfie.Delete("/:id", controller.DeleteSelfie)

	// Style routes
	styles := api.Group("/styles")
	styles.Get("/", controller.GetStyleData)
	styles.Get("/packages", controller.ListPackages)
	styles.Post("/contexts", controller.CreateContext)
	styles.Get("/contexts/:id", controller.GetContext)
	styles.Put("/contexts/:id", controller.UpdateContext)
	styles.Delete("/contexts/:id", controller.DeleteContext)
	styles.Post("/contexts/:id/activate", controller.ActivateContext)
	styles.Delete("/contexts/:id/activate", controller.DeactivateContext)

	// Generation routes with rate limiting on submission
	generation := api.Group("/generations")
	generation.Get("/eligibility", controller.GetEligibility)
	generation.Post("/", middleware.GenerationRateLimiter(), controller.CreateGeneration)
	generation.Get("/", controller.ListGenerations)
	generation.Get("/:id", controller.GetGeneration)

	// WebSocket route for generation progress
	app.Get("/ws/generations/:id", controller.WebSocketUpgrade(), controller.GenerationStatusSocket())

	// Team routes
	team := api.Group("/team")
	team.Post("/", controller.CreateTeam)
	team.Get("/", controller.GetTeam)
	team.Post("/invites", controller.InviteTeamMember)
	team.Post("/invites/accept", controller.AcceptTeamInvite)
	team.Delete("/members/:id", controller.RemoveTeamMember)

	// Admin routes
	admin := api.Group("/admin", middleware.AdminOnly())
	admin.Get("/settings/:key", controller.GetAppSetting)
	admin.Put("/settings/:key", controller.SetAppSetting)
	admin.Post("/contexts", controller.CreateSystemContext)
	admin.Get("/stats", controller.AdminStats)
	admin.Post("/credits/grant", controller.GrantCredits)

	// Log initialization
	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize Stripe
	controller.InitStripe()

	// Initialize Google OAuth
	controller.InitGoogleOAuth()

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
