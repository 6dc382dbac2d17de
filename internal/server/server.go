package server

import (
	"time"

	"github.com/flowbaker/signalwatch/internal/controllers"
	"github.com/flowbaker/signalwatch/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

type HTTPServerDependencies struct {
	RunController *controllers.RunController
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: version.ServiceName,
	})

	router.Use(recover.New())
	router.Use(logger.New())

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   version.ServiceName,
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Post("/dispatch", deps.RunController.Dispatch)

	runs := router.Group("/runs")
	runs.Get("/last", deps.RunController.LastRun)

	return router
}
