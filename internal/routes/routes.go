package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	resolver *services.IdentityResolver,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	storyHandler *handlers.StoryHandler,
	moderationHandler *handlers.ModerationHandler,
) {
	// Prometheus scrape endpoint, outside /api and its limiter
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: RATE_LIMIT_PER_MINUTE req/min per IP
	if cfg.RateLimit > 0 {
		api.Use(perIPLimiter(cfg.RateLimit))
	}

	api.Get("/health", healthHandler.Check)

	// Every route below knows who is calling: account, session and address.
	api.Use(middleware.ResolveIdentity(resolver))

	// Auth: stricter limit, 10 req/min per IP
	auth := api.Group("/auth")
	if cfg.RateLimit > 0 {
		auth.Use(perIPLimiter(10))
	}
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	api.Get("/auth/me", middleware.JWTProtected(cfg), authHandler.Me)

	// Public stories
	stories := api.Group("/stories")
	submit := []fiber.Handler{}
	if cfg.RateLimit > 0 {
		submit = append(submit, perIPLimiter(5))
	}
	stories.Post("/", append(submit, storyHandler.Submit)...)
	stories.Get("/featured", storyHandler.Featured)
	stories.Get("/:id", storyHandler.Get)
	stories.Post("/:id/view", storyHandler.View)
	stories.Post("/:id/like", storyHandler.Like)
	stories.Post("/:id/report", storyHandler.Report)

	// Staff moderation (X-Admin-Token or a staff-tier account)
	admin := api.Group("/admin/stories", middleware.StaffRequired(cfg))
	admin.Get("/", moderationHandler.ListAll)
	admin.Get("/pending", moderationHandler.ListPending)
	admin.Get("/reported", moderationHandler.ListReported)
	admin.Get("/stats", moderationHandler.Stats)
	admin.Post("/bulk-moderate", moderationHandler.BulkModerate)
	admin.Post("/reconcile", moderationHandler.Reconcile)
	admin.Put("/:id/moderate", moderationHandler.Moderate)
	admin.Delete("/:id", moderationHandler.Delete)
}

func perIPLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}
