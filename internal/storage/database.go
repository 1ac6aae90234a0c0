package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Ananth-NQI/voxmail-backend/internal/models"
)

// DatabaseStore keeps delivery records in PostgreSQL via gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a gorm-backed delivery store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Migrate creates or updates the delivery tables
func (d *DatabaseStore) Migrate() error {
	return d.db.AutoMigrate(&models.VoiceMessage{})
}

func (d *DatabaseStore) CreateVoiceMessage(msg *models.VoiceMessage) (*models.VoiceMessage, error) {
	if err := d.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create voice message: %w", err)
	}
	return msg, nil
}

func (d *DatabaseStore) GetVoiceMessage(messageID string) (*models.VoiceMessage, error) {
	var msg models.VoiceMessage
	err := d.db.Where("message_id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice message: %w", err)
	}
	return &msg, nil
}

func (d *DatabaseStore) GetVoiceMessagesBySender(phone string) ([]*models.VoiceMessage, error) {
	var msgs []*models.VoiceMessage
	if err := d.db.Where("sender_phone = ?", phone).Order("id asc").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list voice messages: %w", err)
	}
	return msgs, nil
}

func (d *DatabaseStore) CountVoiceMessages() (int64, error) {
	var count int64
	if err := d.db.Model(&models.VoiceMessage{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
