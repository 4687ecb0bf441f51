package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ashmitsharp/contaspiccioli-api/internal/config"
	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/handlers"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/middleware"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Configure(cfg.LogFormat, cfg.LogLevel)
	if envErr != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}
	ctx := logger.WithContext(context.Background(), log)

	// Store
	var (
		store     database.Store
		pinger    handlers.Pinger
		storeName = "memory"
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBConnectionTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		store = database.NewPostgresStore(pool)
		pinger = pool
		storeName = "postgres"
	} else {
		log.Warn().Msg("DATABASE_URL not set, data lives in memory only")
		store = database.NewMemoryStore()
	}
	log.Info().Str("store", storeName).Msg("store ready")

	if cfg.SeedOnStart {
		if _, err := database.Seed(ctx, store, time.Now().Year()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed defaults")
		}
	}

	// Services
	categorizer := services.NewCategorizer(store)
	if err := categorizer.LoadCategories(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}
	importer := services.NewImportService(store, categorizer, services.NewFileValidator(cfg.MaxUploadBytes))

	var storage handlers.StorageService
	if cfg.S3Bucket != "" {
		s3, err := services.NewStorageService(ctx, cfg.S3Bucket, cfg.S3Region, cfg.AWSEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize storage service")
		}
		importer = importer.WithArchive(s3)
		storage = s3
		log.Info().Str("bucket", cfg.S3Bucket).Msg("statement archive enabled")
	}

	pillars := services.NewPillarService(store)
	tax := services.NewTaxService(store)
	forecast := services.NewForecastService(store)
	transactions := services.NewTransactionService(store)
	projector := services.NewProjector(store, services.ProjectionDefaults{
		Income: cfg.DefaultMonthlyIncome,
		Costs:  cfg.DefaultMonthlyCosts,
	})
	budget := services.BudgetConfig{
		InvestmentPercentage:  cfg.InvestmentPercentage,
		EmergencyContribution: cfg.EmergencyContribution,
		DefaultMonthlyIncome:  cfg.DefaultMonthlyIncome,
	}

	app := fiber.New(fiber.Config{
		AppName:      "contaspiccioli API v1.0",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// Apply global middleware
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// Health check endpoint (public)
	app.Get("/health", handlers.Health(pinger, storeName))

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Get("/ping", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})

	var api fiber.Router = v1
	if cfg.ClerkSecretKey != "" {
		api = v1.Group("", middleware.ClerkAuth(cfg.ClerkSecretKey))
	} else {
		log.Warn().Msg("CLERK_SECRET_KEY not set, API is unauthenticated")
	}

	for _, h := range []interface{ Register(fiber.Router) }{
		handlers.NewTaxHandler(tax),
		handlers.NewPillarHandler(pillars, budget),
		handlers.NewForecastHandler(forecast, projector),
		handlers.NewUploadHandler(importer, storage),
		handlers.NewTransactionHandler(transactions),
		handlers.NewCategoryHandler(services.NewCategoryService(store, categorizer), categorizer),
		handlers.NewPlannedExpenseHandler(services.NewPlannedExpenseService(store)),
		handlers.NewSettingsHandler(services.NewSettingsService(store)),
		handlers.NewSummaryHandler(transactions, pillars, tax, forecast),
	} {
		h.Register(api)
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info().Str("addr", addr).Str("environment", cfg.Environment).Msg("contaspiccioli API is running")
		if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	waitForShutdown(app, cfg.ShutdownTimeout, log)
}

func waitForShutdown(app *fiber.App, timeout time.Duration, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("shutting down")
	if err := app.ShutdownWithTimeout(timeout); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server stopped cleanly")
}
