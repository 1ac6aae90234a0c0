package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/voxmail-backend/internal/config"
	"github.com/Ananth-NQI/voxmail-backend/internal/handlers"
	"github.com/Ananth-NQI/voxmail-backend/internal/logging"
	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/services"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

type echoProcessor struct{}

func (echoProcessor) HandleIncomingMessage(_ context.Context, _ *models.WhatsAppMessage) (string, error) {
	return services.ReplyInstructions, nil
}

type rejectAll struct{}

func (rejectAll) ValidateRequest(string, map[string]string, string) bool { return false }

func newApp(cfg *config.Config) *fiber.App {
	logger := logging.Discard()
	conversations := storage.NewMemoryConversationStore()
	deliveries := storage.NewMemoryStore()

	app := fiber.New()
	SetupRoutes(app, Dependencies{
		Config:    cfg,
		WhatsApp:  handlers.NewWhatsAppHandler(echoProcessor{}, time.Minute, logger),
		Messages:  handlers.NewMessageHandler(nil, deliveries, time.Minute, logger),
		Health:    handlers.NewHealthHandler("test", cfg.Server.Environment, "memory", conversations, deliveries, nil),
		Validator: rejectAll{},
		Logger:    logger,
	})
	return app
}

func postWebhook(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	form := url.Values{"From": {"whatsapp:+15550001"}, "Body": {"hi"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "c2lnbmF0dXJl")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestWebhookValidationEnabledInProduction(t *testing.T) {
	cfg := config.Defaults()
	app := newApp(&cfg)

	resp := postWebhook(t, app)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookValidationSkipped(t *testing.T) {
	dev := config.Defaults()
	dev.Server.Environment = "development"

	disabled := config.Defaults()
	disabled.Server.DisableWebhookValidation = true

	for name, cfg := range map[string]*config.Config{"development": &dev, "disabled": &disabled} {
		t.Run(name, func(t *testing.T) {
			resp := postWebhook(t, newApp(cfg))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	cfg := config.Defaults()
	app := newApp(&cfg)

	for _, path := range []string{"/", "/health", "/webhook/whatsapp"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/webhook/whatsapp", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "WhatsApp endpoint is working!", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/message/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/messages?sender=%2B15550001", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
