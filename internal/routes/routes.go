// Package routes defines the API routing configuration.
// It builds the fiber app with its middleware stack and mounts every
// handler under its route group.
package routes

import (
	"time"

	"wyse/internal/handlers"
	"wyse/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options configures the middleware stack.
type Options struct {
	Production      bool
	CORSOrigin      string
	RateLimitWindow time.Duration
	RateLimitMax    int
	// StrictLimitMax caps send-otp and signin per IP per minute.
	StrictLimitMax int
	AccessLog      bool
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Mono   *handlers.MonoHandler
	AI     *handlers.AIHandler
	Health *handlers.HealthHandler
}

// NewApp creates the fiber app with the shared middleware stack.
func NewApp(opts Options) *fiber.App {
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 15 * time.Minute
	}
	if opts.RateLimitMax <= 0 {
		opts.RateLimitMax = 100
	}
	if opts.StrictLimitMax <= 0 {
		opts.StrictLimitMax = 5
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "http://localhost:3000"
	}

	app := fiber.New(fiber.Config{
		AppName:      "wyse",
		ErrorHandler: handlers.ErrorHandler(opts.Production),
		BodyLimit:    10 * 1024 * 1024,
		// Device ids embed the user agent and arrive percent-encoded.
		UnescapePath: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !opts.Production}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Use("/api", limiter.New(limiter.Config{
		Max:          opts.RateLimitMax,
		Expiration:   opts.RateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: tooManyRequests,
	}))
	for _, path := range []string{"/api/auth/send-otp", "/api/auth/signin"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:          opts.StrictLimitMax,
			Expiration:   1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
			LimitReached: tooManyRequests,
		}))
	}

	return app
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":   "Too many requests",
		"message": "Too many requests from this IP, please try again later.",
	})
}

// SetupRoutes mounts the handlers. Everything under /api/mono and /api/ai
// additionally requires a verified email.
func SetupRoutes(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware) {
	app.Get("/health", h.Health.HealthCheck)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/send-otp", h.Auth.SendOTP)
	authGroup.Post("/verify-otp", h.Auth.VerifyOTP)
	authGroup.Post("/signup", h.Auth.Signup)
	authGroup.Post("/signin", h.Auth.Signin)
	authGroup.Post("/forgot-passcode", h.Auth.ForgotPasscode)
	authGroup.Post("/verify-reset-otp", h.Auth.VerifyResetOTP)
	authGroup.Post("/reset-passcode", h.Auth.ResetPasscode)
	authGroup.Post("/signout", auth.Handler, h.Auth.Signout)
	authGroup.Get("/verify", auth.Handler, h.Auth.Verify)

	user := api.Group("/user", auth.Handler)
	user.Get("/profile", h.User.GetProfile)
	user.Put("/profile", h.User.UpdateProfile)
	user.Put("/preferences", h.User.UpdatePreferences)
	user.Get("/devices", h.User.GetDevices)
	user.Delete("/devices/:deviceId", h.User.RemoveDevice)
	user.Get("/stats", h.User.GetStats)

	mono := api.Group("/mono", auth.Handler, middleware.RequireEmailVerification)
	mono.Post("/exchange-code", h.Mono.ExchangeCode)
	mono.Get("/transactions", h.Mono.GetTransactions)
	mono.Get("/accounts", h.Mono.GetAccounts)
	mono.Get("/account-data", h.Mono.GetAccountData)

	ai := api.Group("/ai", auth.Handler, middleware.RequireEmailVerification)
	ai.Post("/query-transactions", h.AI.QueryTransactions)
	ai.Post("/chat", h.AI.Chat)
	ai.Post("/setup", h.AI.Setup)
	ai.Get("/evaluate", h.AI.Evaluate)
	ai.Post("/llm-table-answer", h.AI.LLMTableAnswer)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Route not found",
			"message": "Cannot " + c.Method() + " " + c.OriginalURL(),
		})
	})
}
