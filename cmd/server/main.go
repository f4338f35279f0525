package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"stockvel-tracker/internal/adapters/http/middleware"
	"stockvel-tracker/internal/adapters/http/routes"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "stockvel-tracker/docs" // Swagger docs
)

// @title Stockvel Tracker API
// @version 1.0
// @description Contributions, loans and year-end payouts for a rotating savings group
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase(db)

	// Migrate and seed
	if err := config.PrepareDatabase(db, cfg); err != nil {
		log.Fatalf("❌ Failed to prepare database: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Stockvel Tracker API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    6 * 1024 * 1024,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	cronService, err := routes.Setup(app, db, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to setup routes: %v", err)
	}

	// Background jobs: open the month, risk snapshot, token cleanup
	if cfg.Cron.Enabled {
		if err := cronService.Start(); err != nil {
			log.Fatalf("❌ Failed to start cron service: %v", err)
		}
	} else {
		log.Println("⚠️ Cron disabled, background jobs run only on demand")
	}

	// Graceful shutdown
	go gracefulShutdown(app, cronService, cfg.Cron.Enabled)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown stops the scheduler, then drains the HTTP server
func gracefulShutdown(app *fiber.App, cronService *services.CronService, cronStarted bool) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if cronStarted {
		cronService.Stop()
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
