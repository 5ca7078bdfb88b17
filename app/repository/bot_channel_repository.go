package repository

import (
	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
)

// botChannelRepository implements the BotChannelRepository interface
type botChannelRepository struct {
	db *gorm.DB
}

// NewBotChannelRepository creates a new bot channel repository instance
func NewBotChannelRepository(db *gorm.DB) BotChannelRepository {
	return &botChannelRepository{db: db}
}

// Create creates a new bot channel
func (r *botChannelRepository) Create(channel *models.BotChannel) error {
	return r.db.Create(channel).Error
}

// GetByChannelID resolves an active channel by its external channel ID.
func (r *botChannelRepository) GetByChannelID(channelID string) (*models.BotChannel, error) {
	var channel models.BotChannel
	err := r.db.Where("channel_id = ? AND active = ?", channelID, true).First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetByTenantID retrieves the tenant's channel configuration
func (r *botChannelRepository) GetByTenantID(tenantID string) (*models.BotChannel, error) {
	var channel models.BotChannel
	err := r.db.Where("tenant_id = ?", tenantID).First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}
