// classroom-server: development WebSocket hub for classroom sessions.
// Students connect at /ws/session/:id/student/:pid, teachers at
// /ws/session/:id/teacher/:pid. Frames are answered with scripted
// classifications so clients can run without the production backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/classroom"
)

var (
	port     = flag.Int("port", 8000, "HTTP server port")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if envPort := os.Getenv("PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", port)
	}

	app := fiber.New(fiber.Config{
		AppName:               "classroom-server",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	hub := classroom.NewHub()
	hub.RegisterRoutes(app)

	api := app.Group("/api")
	hub.RegisterAPIRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"sessions": hub.GetStats().SessionCount,
		})
	})

	go func() {
		addr := fmt.Sprintf(":%d", *port)
		log.Info("classroom server listening",
			"addr", addr,
			"websocket", fmt.Sprintf("ws://localhost:%d/ws/session/:id/:role/:pid", *port))
		if err := app.Listen(addr); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
