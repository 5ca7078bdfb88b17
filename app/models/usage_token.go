package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrialTokenLimit is the monthly token allowance granted at tenant creation.
const TrialTokenLimit = 700000

// UsageToken is the per-tenant token ledger row. TokensUsed may never exceed
// TokensLimit + AdditionalTokens; the consume path enforces this with a
// single conditional update, never a read-modify-write.
type UsageToken struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID         string    `gorm:"type:char(36);uniqueIndex;not null" json:"tenant_id"`
	TokensUsed       int64     `gorm:"default:0;not null" json:"tokens_used"`
	TokensLimit      int64     `gorm:"not null" json:"tokens_limit"`
	AdditionalTokens int64     `gorm:"default:0;not null" json:"additional_tokens"`
	ResetDate        time.Time `gorm:"not null" json:"reset_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID if none is set.
func (u *UsageToken) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Remaining returns the tokens still available, floored at zero.
func (u *UsageToken) Remaining() int64 {
	remaining := u.TokensLimit + u.AdditionalTokens - u.TokensUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
