package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Property lifecycle statuses.
const (
	PropertyStatusDraft     = "draft"
	PropertyStatusPublished = "published"
	PropertyStatusArchived  = "archived"
)

// Property is one real-estate listing. AIDescription is written by the batch
// generation pipeline; BatchJobID is a denormalized pointer to the in-flight
// batch job and must be cleared when the listing is resolved. The
// BatchGeneration row, not this field, owns lifecycle truth.
type Property struct {
	ID           string   `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID     string   `gorm:"type:char(36);index;not null" json:"tenant_id"`
	Name         string   `gorm:"type:varchar(100);not null" json:"name"`
	Address      string   `gorm:"type:varchar(200);not null" json:"address"`
	PropertyType string   `gorm:"type:varchar(50);not null" json:"property_type"`
	Price        *float64 `gorm:"type:decimal(12,2)" json:"price,omitempty"`
	Size         *float64 `gorm:"type:decimal(8,2)" json:"size,omitempty"`
	Rooms        *float64 `gorm:"type:decimal(5,1)" json:"rooms,omitempty"`
	Description  *string  `gorm:"type:text" json:"description,omitempty"`

	AIDescription *string `gorm:"type:text" json:"ai_description,omitempty"`
	BatchJobID    *string `gorm:"type:varchar(64);index" json:"batch_job_id,omitempty"`

	Status string `gorm:"type:varchar(20);default:draft;not null" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID and the default status.
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = PropertyStatusDraft
	}
	return nil
}

// HasAIDescription reports whether a generated description has been applied.
func (p *Property) HasAIDescription() bool {
	return p.AIDescription != nil && *p.AIDescription != ""
}
