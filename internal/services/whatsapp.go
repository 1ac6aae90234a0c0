package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
	"github.com/Ananth-NQI/voxmail-backend/internal/utils"
)

// Replies sent back to the WhatsApp sender
const (
	ReplySuccess          = "Your voice note has been converted and sent as an email! ✉️"
	ReplyAskForEmail      = "I couldn't find an email address in your message. Please reply with the email address where you'd like to send this message."
	ReplyInvalidEmail     = "That doesn't look like a valid email address. Please try again."
	ReplyMissingVoiceNote = "Sorry, I couldn't find your voice note. Please send it again."
	ReplyInstructions     = "Please send a voice note to convert it to email, or type an email address if requested."
	ReplyFailed           = "Sorry, I couldn't process your voice note. Please try again."
	ReplyTimedOut         = "Your voice note is taking longer than expected to transcribe. Please try again in a moment."
	ReplyRetryHint        = "Reply with the email address again to retry."
	ReplyWebhookError     = "Sorry, there was an error processing your message. Please try again."
)

// WhatsAppService decides what to do with each inbound WhatsApp message
type WhatsAppService struct {
	store    storage.ConversationStore
	media    MediaFetcher
	pipeline *VoicePipeline
	logger   *slog.Logger
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(store storage.ConversationStore, media MediaFetcher, pipeline *VoicePipeline, logger *slog.Logger) *WhatsAppService {
	return &WhatsAppService{
		store:    store,
		media:    media,
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleIncomingMessage runs one conversational turn and returns the reply for the sender.
// The reply is always safe to show; err is for logging.
func (w *WhatsAppService) HandleIncomingMessage(ctx context.Context, msg *models.WhatsAppMessage) (string, error) {
	if msg == nil {
		return ReplyWebhookError, validationError("message is required")
	}
	phone := msg.SenderPhone()
	if phone == "" {
		return ReplyWebhookError, validationError("sender is required")
	}

	state := w.store.GetOrCreate(phone)
	body := strings.TrimSpace(msg.Body)

	w.logger.Info("processing message",
		"sid", msg.MessageSid,
		"from", phone,
		"num_media", msg.NumMedia,
		"waiting_for_email", state.WaitingForEmail,
	)

	switch {
	case state.WaitingForEmail && body != "":
		return w.handleEmailReply(ctx, state, body)
	case msg.HasMedia():
		return w.handleVoiceNote(ctx, state, msg.Media[0].URL)
	default:
		return ReplyInstructions, nil
	}
}

func (w *WhatsAppService) handleEmailReply(ctx context.Context, state models.ConversationState, body string) (string, error) {
	phone := state.PhoneNumber

	email, ok := utils.ExtractEmailAddress(body)
	if !ok {
		return ReplyInvalidEmail, ErrInvalidEmail
	}

	if state.PendingVoiceNoteURL == "" {
		// A voice note committed since the read is left alone
		w.store.Update(phone, func(s *models.ConversationState) bool {
			if s.IsIdle() || s.PendingVoiceNoteURL != "" {
				return false
			}
			s.Reset()
			return true
		})
		return ReplyMissingVoiceNote, nil
	}

	url := state.PendingVoiceNoteURL
	transcript, err := w.transcribeNote(ctx, url)
	if err == nil {
		_, err = w.pipeline.Deliver(ctx, w.deliveryRequest(phone, url, transcript, email))
	}
	if err != nil {
		w.logger.Error("pending voice note failed", "from", phone, "error", err)
		return failureReply(err, true), err
	}

	w.clearPending(phone, url)
	return ReplySuccess, nil
}

func (w *WhatsAppService) handleVoiceNote(ctx context.Context, state models.ConversationState, url string) (string, error) {
	phone := state.PhoneNumber

	transcript, err := w.transcribeNote(ctx, url)
	if err != nil {
		w.logger.Error("voice note failed", "from", phone, "error", err)
		return failureReply(err, state.WaitingForEmail), err
	}

	email, ok := utils.ExtractEmailAddress(transcript)
	if !ok {
		// Last voice note wins
		w.store.Update(phone, func(s *models.ConversationState) bool {
			s.AwaitEmail(url)
			return true
		})
		w.logger.Info("waiting for email address", "from", phone)
		return ReplyAskForEmail, nil
	}

	if _, err := w.pipeline.Deliver(ctx, w.deliveryRequest(phone, url, transcript, email)); err != nil {
		w.logger.Error("voice note delivery failed", "from", phone, "error", err)
		return failureReply(err, state.WaitingForEmail), err
	}

	if state.PendingVoiceNoteURL != "" {
		w.clearPending(phone, state.PendingVoiceNoteURL)
	}
	return ReplySuccess, nil
}

func (w *WhatsAppService) transcribeNote(ctx context.Context, url string) (string, error) {
	audio, err := w.media.FetchMedia(ctx, url)
	if err != nil {
		return "", err
	}
	return w.pipeline.Transcribe(ctx, audio)
}

// clearPending resets the conversation only if url is still the pending note
func (w *WhatsAppService) clearPending(phone, url string) {
	w.store.Update(phone, func(s *models.ConversationState) bool {
		if s.PendingVoiceNoteURL != url {
			return false
		}
		s.Reset()
		return true
	})
}

func (w *WhatsAppService) deliveryRequest(phone, url, transcript, email string) DeliveryRequest {
	return DeliveryRequest{
		Channel:    models.ChannelWhatsApp,
		Sender:     phone,
		AudioURL:   url,
		Transcript: transcript,
		Recipient:  email,
		Subject:    SubjectWhatsApp,
	}
}

func failureReply(err error, awaitingEmail bool) string {
	reply := ReplyFailed
	if IsTimeout(err) {
		reply = ReplyTimedOut
	}
	if awaitingEmail {
		reply += " " + ReplyRetryHint
	}
	return reply
}
