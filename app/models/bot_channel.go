package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BotChannel links a messaging-bot channel to a tenant. The webhook resolves
// the inbound destination ID to a channel and verifies the request signature
// with the channel secret before doing anything else.
type BotChannel struct {
	ID            string `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID      string `gorm:"type:char(36);index;not null" json:"tenant_id"`
	ChannelID     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"channel_id"`
	ChannelSecret string `gorm:"type:varchar(128);not null" json:"-"`
	AccessToken   string `gorm:"type:varchar(512);not null" json:"-"`
	Active        bool   `gorm:"default:true;not null" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID if none is set.
func (b *BotChannel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
