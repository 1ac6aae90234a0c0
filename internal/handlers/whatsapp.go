package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/twiml"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/services"
)

// Twilio sends at most 10 attachments per message
const maxMedia = 10

// MessageProcessor runs one conversational turn for an inbound message
type MessageProcessor interface {
	HandleIncomingMessage(ctx context.Context, msg *models.WhatsAppMessage) (string, error)
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	processor       MessageProcessor
	pipelineTimeout time.Duration
	logger          *slog.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(processor MessageProcessor, pipelineTimeout time.Duration, logger *slog.Logger) *WhatsAppHandler {
	if pipelineTimeout <= 0 {
		pipelineTimeout = 3 * time.Minute
	}
	return &WhatsAppHandler{
		processor:       processor,
		pipelineTimeout: pipelineTimeout,
		logger:          logger,
	}
}

// HandleWebhook processes an incoming WhatsApp message and answers with TwiML.
// Twilio always gets a 200 so it does not retry the delivery.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling webhook", "panic", r)
			err = sendTwiML(c, services.ReplyWebhookError)
		}
	}()

	msg := parseWebhook(c)
	h.logger.Info("whatsapp message received",
		"sid", msg.MessageSid,
		"from", msg.From,
		"num_media", msg.NumMedia,
	)

	// The pipeline outlives a dropped connection but not the timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), h.pipelineTimeout)
	defer cancel()

	reply, procErr := h.processor.HandleIncomingMessage(ctx, msg)
	if procErr != nil {
		h.logger.Warn("message handled with error", "sid", msg.MessageSid, "error", procErr)
	}
	if reply == "" {
		reply = services.ReplyWebhookError
	}
	return sendTwiML(c, reply)
}

// Verify answers plain GETs so the webhook URL can be checked from a browser
func (h *WhatsAppHandler) Verify(c *fiber.Ctx) error {
	return c.SendString("WhatsApp endpoint is working!")
}

func parseWebhook(c *fiber.Ctx) *models.WhatsAppMessage {
	msg := &models.WhatsAppMessage{
		MessageSid: c.FormValue("MessageSid"),
		From:       c.FormValue("From"),
		To:         c.FormValue("To"),
		Body:       c.FormValue("Body"),
	}

	numMedia, err := strconv.Atoi(strings.TrimSpace(c.FormValue("NumMedia")))
	if err != nil || numMedia < 0 {
		numMedia = 0
	}
	msg.NumMedia = numMedia

	for i := 0; i < numMedia && i < maxMedia; i++ {
		msg.AddMedia(
			c.FormValue(fmt.Sprintf("MediaUrl%d", i)),
			c.FormValue(fmt.Sprintf("MediaContentType%d", i)),
		)
	}
	return msg
}

func sendTwiML(c *fiber.Ctx, message string) error {
	body, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: message}})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXML)
	return c.Status(fiber.StatusOK).SendString(body)
}
