package repository

import (
	"time"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
)

// TenantRepository defines tenant-related database operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id string) (*models.Tenant, error)
	GetByAuthUserID(authUserID string) (*models.Tenant, error)
	GetByEmail(email string) (*models.Tenant, error)
	Update(tenant *models.Tenant) error
}

// ChunkError describes one failed insert chunk during a bulk import.
type ChunkError struct {
	Chunk   int
	Message string
}

// PropertyRepository defines listing-related database operations. Every
// read and write is scoped by tenant ID.
type PropertyRepository interface {
	Create(property *models.Property) error
	CreateInChunks(properties []models.Property, chunkSize int) ([]models.Property, []ChunkError)
	GetByID(id, tenantID string) (*models.Property, error)
	GetByTenantID(tenantID string, offset, limit int) ([]models.Property, error)
	GetPendingGeneration(tenantID string, limit int) ([]models.Property, error)
	GetByIDsPendingGeneration(tenantID string, ids []string) ([]models.Property, error)
	CountPendingGeneration(tenantID string) (int64, error)
	Search(tenantID, query string, limit int) ([]models.Property, error)
	Update(property *models.Property) error
	UpdateFields(id, tenantID string, fields map[string]interface{}) error
	ApplyAIDescription(id, tenantID, description string) (bool, error)
	StampBatchJob(tenantID string, ids []string, batchID string) error
	ClearBatchJobTag(tenantID, batchID string) error
	ClearBatchJobTagForProperty(id, tenantID string) error
	Delete(id, tenantID string) error
}

// BatchGenerationRepository defines batch-job tracking operations.
type BatchGenerationRepository interface {
	CreateIfNoneActive(batch *models.BatchGeneration) error
	GetByBatchID(batchID string) (*models.BatchGeneration, error)
	GetActiveByTenant(tenantID string) ([]models.BatchGeneration, error)
	GetByTenantID(tenantID string, offset, limit int) ([]models.BatchGeneration, error)
	CountActiveByTenant(tenantID string) (int64, error)
	Update(batch *models.BatchGeneration) error
}

// UsageTokenRepository defines token-ledger operations. Consume must be a
// single atomic check-and-update; see the usage service for the contract.
type UsageTokenRepository interface {
	Create(tokens *models.UsageToken) error
	GetByTenantID(tenantID string) (*models.UsageToken, error)
	Consume(tenantID string, amount int64) error
	SetLimit(tenantID string, limit int64) error
	AddTokens(tenantID string, amount int64) error
	Reset(tenantID string, resetDate time.Time) error
}

// BotChannelRepository resolves messaging-bot channels.
type BotChannelRepository interface {
	Create(channel *models.BotChannel) error
	GetByChannelID(channelID string) (*models.BotChannel, error)
	GetByTenantID(tenantID string) (*models.BotChannel, error)
}

// SubscriptionRepository defines billing subscription operations.
type SubscriptionRepository interface {
	Upsert(sub *models.Subscription) error
	GetByTenantID(tenantID string) (*models.Subscription, error)
	GetByProviderSubscriptionID(subscriptionID string) (*models.Subscription, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Tenant          TenantRepository
	Property        PropertyRepository
	BatchGeneration BatchGenerationRepository
	UsageToken      UsageTokenRepository
	BotChannel      BotChannelRepository
	Subscription    SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tenant:          NewTenantRepository(db),
		Property:        NewPropertyRepository(db),
		BatchGeneration: NewBatchGenerationRepository(db),
		UsageToken:      NewUsageTokenRepository(db),
		BotChannel:      NewBotChannelRepository(db),
		Subscription:    NewSubscriptionRepository(db),
	}
}
