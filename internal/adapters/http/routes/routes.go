package routes

import (
	"foodlink/internal/adapters/http/handlers"
	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/config"
	"foodlink/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, svc *services.Container, cfg *config.Config, log *zap.Logger) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.User, cfg, log.Named("auth"))
	userHandler := handlers.NewUserHandler(svc.User, log.Named("profile"))
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	donationHandler := handlers.NewDonationHandler(svc.Donation, log.Named("donations"))
	claimHandler := handlers.NewClaimHandler(svc.Claim, log.Named("claims"))
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, log.Named("dashboard"))
	eventHandler := handlers.NewEventHandler(svc.Hub, log.Named("events"))

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(svc.Tokens)

	// Auth routes (public)
	setupAuthRoutes(apiV1.Group("/auth"), authHandler, auth)

	// Profile routes (Authenticated users)
	setupProfileRoutes(apiV1.Group("/profile", auth), userHandler)

	// Catalog & statistics (public)
	apiV1.Get("/categories", middleware.CategoryCache(), categoryHandler.List)
	apiV1.Get("/categories/:id", middleware.CategoryCache(), categoryHandler.Get)
	apiV1.Get("/stats", dashboardHandler.GetStats)

	// Donations
	setupDonationRoutes(apiV1.Group("/donations", middleware.NoCacheHeaders()), donationHandler, claimHandler, auth)

	// Claims (Authenticated users)
	setupClaimRoutes(apiV1.Group("/claims", auth, middleware.NoCacheHeaders()), claimHandler)

	// Dashboard (Authenticated users)
	apiV1.Get("/dashboard", auth, middleware.PrivateCacheHeaders(0), dashboardHandler.GetDashboard)

	// Live events (optional auth)
	apiV1.Get("/events/stream", middleware.OptionalAuth(svc.Tokens), eventHandler.Stream)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, auth fiber.Handler) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", auth, handler.Me)
	router.Post("/logout-all", auth, handler.LogoutAll)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", middleware.StrictRateLimiter(), handler.ChangePassword)
	router.Delete("/", middleware.StrictRateLimiter(), handler.Deactivate)
}

// setupDonationRoutes configures donation routes. Browsing is public; the
// rest requires a donor or NGO account.
func setupDonationRoutes(router fiber.Router, handler *handlers.DonationHandler, claimHandler *handlers.ClaimHandler, auth fiber.Handler) {
	// Donor routes; registered before /:id so "mine" is not parsed as an id
	router.Get("/mine", auth, middleware.DonorOnly(), handler.ListMine)
	router.Post("/", auth, middleware.DonorOnly(), handler.Create)
	router.Put("/:id", auth, middleware.DonorOnly(), handler.Update)
	router.Delete("/:id", auth, middleware.DonorOnly(), handler.Delete)

	// NGO routes
	router.Post("/:id/claim", auth, middleware.NGOOnly(), claimHandler.Create)

	// Public routes
	router.Get("/", handler.ListAvailable)
	router.Get("/:id", handler.Get)
}

// setupClaimRoutes configures claim routes
func setupClaimRoutes(router fiber.Router, handler *handlers.ClaimHandler) {
	router.Get("/mine", middleware.NGOOnly(), handler.ListMine)
	router.Get("/received", middleware.DonorOnly(), handler.ListReceived)
	router.Get("/:id", handler.Get)

	// NGO progress
	router.Put("/:id/schedule", middleware.NGOOnly(), handler.Schedule)
	router.Put("/:id/pickup", middleware.NGOOnly(), handler.MarkPickedUp)
	router.Put("/:id/complete", middleware.NGOOnly(), handler.Complete)

	// NGO or donor
	router.Put("/:id/cancel", handler.Cancel)
}
