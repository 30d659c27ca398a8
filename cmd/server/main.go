package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"server/internal/app"
	"server/internal/handlers"
	"server/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	log := logger.New("main").Function("main")

	logger.Init(os.Getenv("ENVIRONMENT"))

	app, err := app.New()
	if err != nil {
		log.Er("failed to initialize application", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Er("failed to close application cleanly", err)
		}
	}()

	server := fiber.New(fiber.Config{
		AppName:   "election-admin",
		BodyLimit: 32 * 1024 * 1024, // voter files
	})

	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.HTTPOrigin,
		AllowCredentials: true,
	}))

	if err := handlers.Router(server, app); err != nil {
		log.Er("failed to register routes", err)
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("Shutting down")
		_ = server.Shutdown()
	}()

	log.Info("Starting server", "port", app.Config.Port, "environment", app.Config.Environment)
	if err := server.Listen(fmt.Sprintf(":%d", app.Config.Port)); err != nil {
		log.Er("server stopped with error", err)
		os.Exit(1)
	}
}
