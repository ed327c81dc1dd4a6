package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/opskpi/backend/internal/analyst"
	"github.com/opskpi/backend/internal/api/handlers"
	"github.com/opskpi/backend/internal/dataset"
	"github.com/opskpi/backend/internal/llm"
	"github.com/opskpi/backend/internal/metrics"
	"github.com/opskpi/backend/internal/middleware/ratelimit"
	"github.com/opskpi/backend/internal/middleware/security"
	"github.com/opskpi/backend/internal/store"
	"github.com/opskpi/backend/pkg/config"
	appLogger "github.com/opskpi/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting IT Operations KPI Dashboard API Server")

	metrics.Init()

	table, err := dataset.LoadFile(cfg.Dataset.SamplePath)
	if err != nil {
		appLogger.Warn("Failed to load bundled sample dataset, starting empty",
			zap.String("path", cfg.Dataset.SamplePath),
			zap.Error(err),
		)
		table = &dataset.Table{}
	} else {
		appLogger.Info("Sample dataset loaded",
			zap.String("path", cfg.Dataset.SamplePath),
			zap.Int("rows", table.Len()),
		)
	}
	metrics.DatasetRows.Set(float64(table.Len()))

	session := store.NewSession(table)

	hasCredential := cfg.LLM.APIKey != ""
	if !hasCredential {
		appLogger.Warn("No API credential configured; question answering is disabled")
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	engine := analyst.NewEngine(llmClient, hasCredential)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		ScriptOrigins: []string{"https://cdn.jsdelivr.net"},
		IsDevelopment: cfg.Server.IsDevelopment,
	}))

	askLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.AskPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer askLimiter.Stop()

	datasetHandler := handlers.NewDatasetHandler(session)
	askHandler := handlers.NewAskHandler(session, engine, cfg.LLM.Model)

	api := app.Group("/api/v1")

	api.Get("/kpis", datasetHandler.GetKPIs)
	api.Get("/kpis/timeseries", datasetHandler.GetTimeseries)
	api.Get("/kpis/synopsis", datasetHandler.GetSynopsis)
	api.Post("/datasets", datasetHandler.UploadDataset)
	api.Post("/ask", askLimiter.Middleware(), askHandler.HandleAsk)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())
	app.Static("/", cfg.Server.StaticDir)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
