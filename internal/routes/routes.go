package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/shafran-auth/internal/config"
	"github.com/example/shafran-auth/internal/handlers"
	"github.com/example/shafran-auth/internal/middleware"
	"github.com/example/shafran-auth/internal/services"
	"github.com/example/shafran-auth/internal/utils"
)

// NewApp builds the Fiber application with global middleware and all routes.
func NewApp(cfg *config.Config, auth *services.AuthService, sessions *utils.SessionIssuer) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:      "Shafran Auth",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
			},
		}))
	}

	if err := Register(app, auth, sessions); err != nil {
		return nil, err
	}
	return app, nil
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, auth *services.AuthService, sessions *utils.SessionIssuer) error {
	validator, err := utils.NewValidator()
	if err != nil {
		return err
	}
	authHandler := handlers.NewAuthHandler(auth, validator)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "msg": "auth server is running"})
	})

	api := app.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/verify", authHandler.Verify)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/login-verify", authHandler.LoginVerify)
	authGroup.Get("/me", middleware.AuthMiddleware(sessions), authHandler.Me)

	return nil
}
