package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is one customer account. Every other record is owned by a tenant
// and all queries are scoped by its ID.
type Tenant struct {
	ID          string  `gorm:"type:char(36);primaryKey" json:"id"`
	AuthUserID  string  `gorm:"type:char(36);uniqueIndex;not null" json:"auth_user_id"`
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	Email       string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	CompanyName *string `gorm:"type:varchar(100)" json:"company_name,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID if none is set.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
