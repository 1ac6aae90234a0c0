package storage

import (
	"errors"
	"time"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// ConversationStore holds per-sender conversation state.
// All access for one sender is linearizable; different senders do not block each other.
type ConversationStore interface {
	// GetOrCreate returns the sender's state, creating a fresh one if it is absent or stale
	GetOrCreate(phone string) models.ConversationState
	// Save replaces the sender's state
	Save(state models.ConversationState)
	// Update applies fn atomically; fn reports whether it changed the state
	Update(phone string, fn func(state *models.ConversationState) bool) models.ConversationState
	Delete(phone string)
	Count() int
	// PurgeStale removes conversations idle since before the stale window and returns how many
	PurgeStale(now time.Time) int
}

// DeliveryStore keeps a record of every voice-to-email delivery attempt
type DeliveryStore interface {
	CreateVoiceMessage(msg *models.VoiceMessage) (*models.VoiceMessage, error)
	GetVoiceMessage(messageID string) (*models.VoiceMessage, error)
	GetVoiceMessagesBySender(phone string) ([]*models.VoiceMessage, error)
	CountVoiceMessages() (int64, error)
}
