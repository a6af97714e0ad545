package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/goccy/go-json"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/database"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/logging"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/routes"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var (
		stories repository.StoryRepository
		events  repository.EngagementRepository
		users   repository.UserRepository
		ping    func() error
	)

	cleanupDone := make(chan struct{})
	var pgLogHandler *logging.PGHandler

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		store := memory.New()
		stories, events, users = store, store, store

	default:
		if cfg.DBPassword == "" {
			slog.Error("DB_PASSWORD environment variable is required")
			os.Exit(1)
		}
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(database.DB); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(&logging.ContextHandler{Handler: logging.NewMultiHandler(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)}),
			pgLogHandler,
		)}))

		// Log cleanup (30-day retention)
		logging.StartCleanup(database.DB, cleanupDone)

		stories = repository.NewStoryRepository(database.DB)
		events = repository.NewEngagementRepository(database.DB)
		users = repository.NewUserRepository(database.DB)
		ping = database.Ping
	}

	// Services
	authService := services.NewAuthService(users, cfg)
	resolver := services.NewIdentityResolver(authService, cfg.StaffRoles, cfg.TrustProxyHeaders)
	storyStore := services.NewStoryStore(stories)
	intake := services.NewIntake(services.NewContentSanitizer(), services.NewContentFilter(), storyStore)
	tracker := services.NewEngagementTracker(events, storyStore)
	queue := services.NewModerationQueue(stories, storyStore)

	// Jobs
	reconcileJob := jobs.NewReconcileJob(stories, events)
	scheduler := jobs.NewScheduler(reconcileJob, cfg.ReconcileSchedule)
	if err := scheduler.RegisterJobs(); err != nil {
		slog.Error("invalid job schedule", "schedule", cfg.ReconcileSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(cfg.StoreDriver, ping)
	storyHandler := handlers.NewStoryHandler(intake, storyStore, tracker)
	moderationHandler := handlers.NewModerationHandler(queue, reconcileJob)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: handlers.ErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Trace())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, resolver, authHandler, healthHandler, storyHandler, moderationHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	scheduler.Stop()

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	// Close database connections
	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("database close error", "error", err)
			}
		}
	}

	slog.Info("server stopped")
}
