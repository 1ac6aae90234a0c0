package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/voxmail-backend/internal/config"
	"github.com/Ananth-NQI/voxmail-backend/internal/handlers"
	"github.com/Ananth-NQI/voxmail-backend/internal/middleware"
)

// Dependencies are the handlers and collaborators the routes are wired to
type Dependencies struct {
	Config    *config.Config
	WhatsApp  *handlers.WhatsAppHandler
	Messages  *handlers.MessageHandler
	Health    *handlers.HealthHandler
	Validator middleware.SignatureValidator
	Logger    *slog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/", deps.Health.Index)
	app.Get("/health", deps.Health.Check)

	// ========== API ROUTES ==========
	api := app.Group("/api")
	api.Post("/message", deps.Messages.SendMessage)
	api.Get("/message/:id", deps.Messages.GetMessage)
	api.Get("/messages", deps.Messages.ListMessages)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	webhooks.Get("/whatsapp", deps.WhatsApp.Verify)

	if deps.Config.WebhookValidationEnabled() {
		webhooks.Post("/whatsapp",
			middleware.ValidateTwilioSignature(deps.Validator, deps.Config.Server.PublicBaseURL, deps.Logger),
			deps.WhatsApp.HandleWebhook,
		)
		return
	}

	// Development: skip validation for tunnels like ngrok
	deps.Logger.Warn("WhatsApp webhook signature validation disabled", "environment", deps.Config.Server.Environment)
	webhooks.Post("/whatsapp", deps.WhatsApp.HandleWebhook)
}
