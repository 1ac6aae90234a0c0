package models

import (
	"time"

	"gorm.io/gorm"
)

// Delivery channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelAPI      = "api"
)

// Delivery statuses
const (
	DeliveryStatusCompleted = "completed"
	DeliveryStatusFailed    = "failed"
)

// VoiceMessage records one attempt to turn a voice note into an email
type VoiceMessage struct {
	gorm.Model
	MessageID       string `json:"message_id" gorm:"uniqueIndex;not null"`
	Channel         string `json:"channel" gorm:"index"`
	SenderPhone     string `json:"sender_phone" gorm:"index"`
	RecipientEmail  string `json:"recipient_email"`
	AudioURL        string `json:"audio_url,omitempty"`
	TranscribedText string `json:"transcribed_text"`
	EnhancedContent string `json:"enhanced_content"`
	Status          string `json:"status" gorm:"default:'completed'"`
	Error           string `json:"error,omitempty"`
}

// BeforeCreate stamps CreatedAt for records built outside gorm
func (v *VoiceMessage) BeforeCreate(tx *gorm.DB) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if v.Status == "" {
		v.Status = DeliveryStatusCompleted
	}
	return nil
}
