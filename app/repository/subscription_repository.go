package repository

import (
	"errors"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert creates or updates the tenant's subscription row.
func (r *subscriptionRepository) Upsert(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_customer_id",
			"provider_subscription_id",
			"provider_price_id",
			"status",
			"plan_type",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
}

// GetByTenantID retrieves the tenant's subscription
func (r *subscriptionRepository) GetByTenantID(tenantID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("tenant_id = ?", tenantID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByProviderSubscriptionID retrieves a subscription by the provider's id
func (r *subscriptionRepository) GetByProviderSubscriptionID(subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("provider_subscription_id = ?", subscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateWebhookEventIfNotExists records a provider event for idempotency.
// Returns false when the event was already recorded.
func (r *subscriptionRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	err := r.db.Create(event).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	// MySQL duplicate key may surface without the gorm translation.
	var existing models.WebhookEvent
	if lookupErr := r.db.Where("id = ?", event.ID).First(&existing).Error; lookupErr == nil {
		return false, nil
	}
	return false, err
}
