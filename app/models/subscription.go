package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription plan types and their monthly token limits.
const (
	PlanTrial    = "trial"
	PlanStandard = "standard"
	PlanPro      = "pro"
)

// TokenLimitForPlan maps a plan type to its monthly token allowance.
func TokenLimitForPlan(plan string) int64 {
	switch plan {
	case PlanPro:
		return 10000000
	case PlanStandard:
		return 3000000
	default:
		return TrialTokenLimit
	}
}

// Subscription mirrors the payment provider's subscription state for a
// tenant. It is written only by the billing webhook handler.
type Subscription struct {
	ID                     string     `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID               string     `gorm:"type:char(36);uniqueIndex;not null" json:"tenant_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(64)" json:"provider_customer_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(64);index" json:"provider_subscription_id"`
	ProviderPriceID        string     `gorm:"type:varchar(64)" json:"provider_price_id"`
	Status                 string     `gorm:"type:varchar(20)" json:"status"`
	PlanType               string     `gorm:"type:varchar(20);default:trial" json:"plan_type"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID if none is set.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// WebhookEvent records a processed payment-provider event for idempotency.
// The provider event ID is the primary key; a duplicate insert means the
// event was already handled and must be acknowledged without reprocessing.
type WebhookEvent struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	EventType string    `gorm:"type:varchar(64);not null" json:"event_type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
