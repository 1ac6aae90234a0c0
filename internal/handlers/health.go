package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

// Pinger reports whether a backing database is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version       string
	Environment   string
	StorageType   string
	conversations storage.ConversationStore
	deliveries    storage.DeliveryStore
	db            Pinger
}

// NewHealthHandler creates a new health handler. db may be nil for the memory store.
func NewHealthHandler(version, environment, storageType string, conversations storage.ConversationStore, deliveries storage.DeliveryStore, db Pinger) *HealthHandler {
	return &HealthHandler{
		Version:       version,
		Environment:   environment,
		StorageType:   storageType,
		conversations: conversations,
		deliveries:    deliveries,
		db:            db,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "unhealthy"
			code = fiber.StatusServiceUnavailable
		}
	}

	delivered, err := h.deliveries.CountVoiceMessages()
	if err != nil {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":               status,
		"version":              h.Version,
		"storage":              h.StorageType,
		"active_conversations": h.conversations.Count(),
		"deliveries":           delivered,
	})
}

// Index describes the service
func (h *HealthHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "VoxMail Backend",
		"version":     h.Version,
		"environment": h.Environment,
		"storage":     h.StorageType,
		"endpoints": fiber.Map{
			"health":   "/health",
			"webhook":  "/webhook/whatsapp",
			"message":  "/api/message",
			"messages": "/api/messages?sender=",
		},
	})
}
