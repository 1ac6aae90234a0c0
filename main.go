package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/voxmail-backend/database"
	"github.com/Ananth-NQI/voxmail-backend/internal/config"
	"github.com/Ananth-NQI/voxmail-backend/internal/handlers"
	"github.com/Ananth-NQI/voxmail-backend/internal/jobs"
	"github.com/Ananth-NQI/voxmail-backend/internal/logging"
	"github.com/Ananth-NQI/voxmail-backend/internal/routes"
	"github.com/Ananth-NQI/voxmail-backend/internal/services"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Conversation state is always in memory
	conversations := storage.NewMemoryConversationStore(
		storage.WithShards(cfg.Conversation.Shards),
		storage.WithStaleAfter(cfg.Conversation.StaleAfter),
	)

	var (
		deliveries  storage.DeliveryStore
		db          handlers.Pinger
		storageType string
	)
	if cfg.Database.UseMemoryStore {
		log.Warn("using in-memory delivery records (not for production!)")
		deliveries = storage.NewMemoryStore()
		storageType = "memory"
	} else {
		gormDB, err := database.Connect(cfg.Database, log)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		store := storage.NewDatabaseStore(gormDB)
		if err := store.Migrate(); err != nil {
			log.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			log.Error("failed to open database handle", "error", err)
			os.Exit(1)
		}
		deliveries = store
		db = sqlDB
		storageType = "postgres"
	}

	twilioService, err := services.NewTwilioService(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, log)
	if err != nil {
		log.Error("failed to initialize Twilio service", "error", err)
		os.Exit(1)
	}

	transcriber := services.NewTranscriptionService(
		services.NewAssemblyAIClient(cfg.AssemblyAI.APIKey, cfg.AssemblyAI.BaseURL),
		log,
		services.WithPollPolicy(services.PollPolicy{
			Interval:    cfg.AssemblyAI.PollInterval,
			MaxAttempts: cfg.AssemblyAI.MaxAttempts,
		}),
	)
	content := services.NewContentService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, log)
	email := services.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.SendGrid.Host, log)

	pipeline := services.NewVoicePipeline(transcriber, content, email, deliveries, log)
	whatsappService := services.NewWhatsAppService(conversations, twilioService, pipeline, log)

	sweepJob := jobs.NewConversationSweepJob(conversations, cfg.Conversation.SweepInterval, log)
	sweepJob.Start()

	app := fiber.New(fiber.Config{
		AppName:   "VoxMail Backend v" + version,
		BodyLimit: 32 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Config:    cfg,
		WhatsApp:  handlers.NewWhatsAppHandler(whatsappService, cfg.Server.PipelineTimeout, log),
		Messages:  handlers.NewMessageHandler(pipeline, deliveries, cfg.Server.PipelineTimeout, log),
		Health:    handlers.NewHealthHandler(version, cfg.Server.Environment, storageType, conversations, deliveries, db),
		Validator: twilioService,
		Logger:    log,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("gracefully shutting down")
		sweepJob.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("VoxMail Backend starting",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"storage", storageType,
		"webhook_validation", cfg.WebhookValidationEnabled(),
		"model", cfg.OpenAI.Model,
	)

	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
