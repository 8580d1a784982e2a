package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/radgate/backend/internal/aaa"
	"github.com/radgate/backend/internal/config"
	"github.com/radgate/backend/internal/database"
	"github.com/radgate/backend/internal/handlers"
	"github.com/radgate/backend/internal/middleware"
	"github.com/radgate/backend/internal/models"
	"github.com/radgate/backend/internal/radius"
	"github.com/radgate/backend/internal/store"
)

func main() {
	log.Println("Starting RadGate AAA server...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Stores
	subscribers := store.NewCachedSubscribers(store.NewSubscribers(database.DB), database.Redis)
	plans := store.NewPlans(database.DB)
	nasDevices := store.NewNasDevices(database.DB)
	special := store.NewSpecialAccounting(database.DB)
	sessions := store.NewSessions(database.DB)
	audit := store.NewAudit(database.DB)

	// AAA engine
	engine := aaa.NewEngine(subscribers, plans, nasDevices, special, sessions, audit)

	// Disconnect client
	terminator := radius.NewTerminator(sessions, nasDevices, cfg.DisconnectTimeout)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RadGate AAA v1.0",
		ServerHeader: "RadGate",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "radgate-aaa",
		})
	})

	// Handlers
	handlers.NewRadiusHandler(engine).Register(app)
	handlers.NewSessionHandler(terminator).Register(app)
	handlers.NewNasHandler(
		store.NewNasDevices(database.DB),
		cfg.RouterApiTimeout,
		cfg.ReachabilityTimeout,
	).Register(app)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting AAA API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
