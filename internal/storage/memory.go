package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
)

// MemoryStore holds delivery records in memory (tests and local runs)
type MemoryStore struct {
	messages  map[string]*models.VoiceMessage
	messageMu sync.RWMutex

	// Counter for row IDs
	messageCounter uint
}

// NewMemoryStore creates a new in-memory delivery store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*models.VoiceMessage),
	}
}

func (m *MemoryStore) CreateVoiceMessage(msg *models.VoiceMessage) (*models.VoiceMessage, error) {
	if msg.MessageID == "" {
		return nil, fmt.Errorf("message id is required")
	}

	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	if _, exists := m.messages[msg.MessageID]; exists {
		return nil, fmt.Errorf("voice message %s already exists", msg.MessageID)
	}

	m.messageCounter++
	now := time.Now()
	msg.ID = m.messageCounter
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = models.DeliveryStatusCompleted
	}

	stored := *msg
	m.messages[msg.MessageID] = &stored
	return msg, nil
}

func (m *MemoryStore) GetVoiceMessage(messageID string) (*models.VoiceMessage, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	msg, exists := m.messages[messageID]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (m *MemoryStore) GetVoiceMessagesBySender(phone string) ([]*models.VoiceMessage, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	var results []*models.VoiceMessage
	for _, msg := range m.messages {
		if msg.SenderPhone == phone {
			copied := *msg
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *MemoryStore) CountVoiceMessages() (int64, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	return int64(len(m.messages)), nil
}
