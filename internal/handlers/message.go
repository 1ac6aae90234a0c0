package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/services"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
	"github.com/Ananth-NQI/voxmail-backend/internal/utils"
)

// VoiceProcessor transcribes audio and delivers the result by email
type VoiceProcessor interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Deliver(ctx context.Context, req services.DeliveryRequest) (*models.VoiceMessage, error)
}

// MessageHandler serves the direct upload API
type MessageHandler struct {
	pipeline   VoiceProcessor
	deliveries storage.DeliveryStore
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(pipeline VoiceProcessor, deliveries storage.DeliveryStore, timeout time.Duration, logger *slog.Logger) *MessageHandler {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &MessageHandler{
		pipeline:   pipeline,
		deliveries: deliveries,
		timeout:    timeout,
		logger:     logger,
	}
}

// MessageResponse is returned after a successful delivery
type MessageResponse struct {
	TranscribedText string `json:"transcribedText"`
	EnhancedContent string `json:"enhancedContent"`
	RecipientEmail  string `json:"recipientEmail"`
	Status          string `json:"status"`
	MessageID       string `json:"messageId"`
}

// SendMessage transcribes an uploaded audio file and emails it to recipientEmail
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	file, err := c.FormFile("audioFile")
	if err != nil || file.Size == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Audio file is required",
		})
	}

	recipient := strings.TrimSpace(c.FormValue("recipientEmail"))
	if email, ok := utils.ExtractEmailAddress(recipient); !ok || email != recipient {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid recipient email is required",
		})
	}

	f, err := file.Open()
	if err != nil {
		return h.internalError(c, err)
	}
	audio, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return h.internalError(c, err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), h.timeout)
	defer cancel()

	transcript, err := h.pipeline.Transcribe(ctx, audio)
	if err != nil {
		return h.internalError(c, err)
	}

	record, err := h.pipeline.Deliver(ctx, services.DeliveryRequest{
		Channel:    models.ChannelAPI,
		Transcript: transcript,
		Recipient:  recipient,
		Subject:    services.SubjectAPI,
	})
	if err != nil {
		return h.internalError(c, err)
	}

	return c.JSON(MessageResponse{
		TranscribedText: record.TranscribedText,
		EnhancedContent: record.EnhancedContent,
		RecipientEmail:  record.RecipientEmail,
		Status:          "Completed",
		MessageID:       record.MessageID,
	})
}

// GetMessage returns a delivery record by message id
func (h *MessageHandler) GetMessage(c *fiber.Ctx) error {
	record, err := h.deliveries.GetVoiceMessage(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}
	if err != nil {
		h.logger.Error("failed to load message", "id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load message",
		})
	}
	return c.JSON(record)
}

// ListMessages returns every delivery record for a WhatsApp sender
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	sender := strings.TrimSpace(strings.TrimPrefix(c.Query("sender"), "whatsapp:"))
	if sender == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sender is required",
		})
	}

	records, err := h.deliveries.GetVoiceMessagesBySender(sender)
	if err != nil {
		h.logger.Error("failed to list messages", "sender", sender, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}
	if records == nil {
		records = []*models.VoiceMessage{}
	}

	return c.JSON(fiber.Map{
		"messages": records,
		"count":    len(records),
	})
}

func (h *MessageHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error("message processing failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An error occurred while processing your message",
	})
}
