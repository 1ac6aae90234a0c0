package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

// Email subjects per channel
const (
	SubjectWhatsApp = "New Message Delivered via WhatsApp Voice-to-Text"
	SubjectAPI      = "Voice Message Transcription"
)

// DeliveryRequest is a transcript ready to be rewritten and mailed
type DeliveryRequest struct {
	Channel    string
	Sender     string
	AudioURL   string
	Transcript string
	Recipient  string
	Subject    string
}

// VoicePipeline chains transcription, rewriting and email delivery
type VoicePipeline struct {
	transcriber Transcriber
	enhancer    ContentEnhancer
	sender      EmailSender
	deliveries  storage.DeliveryStore
	logger      *slog.Logger
}

// NewVoicePipeline wires the providers together. deliveries may be nil.
func NewVoicePipeline(transcriber Transcriber, enhancer ContentEnhancer, sender EmailSender, deliveries storage.DeliveryStore, logger *slog.Logger) *VoicePipeline {
	return &VoicePipeline{
		transcriber: transcriber,
		enhancer:    enhancer,
		sender:      sender,
		deliveries:  deliveries,
		logger:      logger,
	}
}

// Transcribe runs a transcription job to completion
func (p *VoicePipeline) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return p.transcriber.TranscribeAudio(ctx, audio)
}

// Deliver rewrites the transcript and emails it. Every attempt is recorded.
func (p *VoicePipeline) Deliver(ctx context.Context, req DeliveryRequest) (*models.VoiceMessage, error) {
	record := &models.VoiceMessage{
		MessageID:       uuid.NewString(),
		Channel:         req.Channel,
		SenderPhone:     req.Sender,
		RecipientEmail:  req.Recipient,
		AudioURL:        req.AudioURL,
		TranscribedText: req.Transcript,
		Status:          models.DeliveryStatusCompleted,
	}

	enhanced, err := p.enhancer.EnhanceContent(ctx, req.Transcript)
	if err != nil {
		p.fail(record, err)
		return nil, err
	}
	record.EnhancedContent = enhanced

	if err := p.sender.SendEmail(ctx, req.Recipient, req.Subject, enhanced); err != nil {
		p.fail(record, err)
		return nil, err
	}

	p.logger.Info("voice note delivered",
		"message_id", record.MessageID,
		"channel", req.Channel,
		"recipient", req.Recipient,
	)
	p.record(record)
	return record, nil
}

func (p *VoicePipeline) fail(record *models.VoiceMessage, err error) {
	record.Status = models.DeliveryStatusFailed
	record.Error = err.Error()
	p.record(record)
}

// record failures are logged only; the email has already gone out or failed on its own
func (p *VoicePipeline) record(record *models.VoiceMessage) {
	if p.deliveries == nil {
		return
	}
	if _, err := p.deliveries.CreateVoiceMessage(record); err != nil {
		p.logger.Warn("failed to record delivery", "message_id", record.MessageID, "error", err)
	}
}
