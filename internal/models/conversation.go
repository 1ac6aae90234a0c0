package models

import "time"

// DefaultStaleAfter is how long a conversation may sit idle before it is treated as new
const DefaultStaleAfter = 24 * time.Hour

// ConversationState tracks where a WhatsApp sender is in the voice-to-email flow
type ConversationState struct {
	PhoneNumber         string    `json:"phone_number"`
	PendingVoiceNoteURL string    `json:"pending_voice_note_url,omitempty"` // voice note waiting for an address
	WaitingForEmail     bool      `json:"waiting_for_email"`
	LastUpdated         time.Time `json:"last_updated"`
	Version             uint64    `json:"version"`
}

// NewConversationState returns an idle conversation for a sender
func NewConversationState(phone string, now time.Time) ConversationState {
	return ConversationState{
		PhoneNumber: phone,
		LastUpdated: now,
	}
}

// IsStale reports whether the state has been idle longer than staleAfter
func (s ConversationState) IsStale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(s.LastUpdated) > staleAfter
}

// IsIdle reports whether no voice note is waiting for an address
func (s ConversationState) IsIdle() bool {
	return !s.WaitingForEmail && s.PendingVoiceNoteURL == ""
}

// AwaitEmail parks a voice note until the sender replies with an address.
// Both fields are always written together.
func (s *ConversationState) AwaitEmail(voiceNoteURL string) {
	s.PendingVoiceNoteURL = voiceNoteURL
	s.WaitingForEmail = true
}

// Reset returns the conversation to idle
func (s *ConversationState) Reset() {
	s.PendingVoiceNoteURL = ""
	s.WaitingForEmail = false
}
