package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetTenantRepository returns the tenant repository instance
func (f *Factory) GetTenantRepository() TenantRepository {
	return f.GetRepositories().Tenant
}

// GetPropertyRepository returns the property repository instance
func (f *Factory) GetPropertyRepository() PropertyRepository {
	return f.GetRepositories().Property
}

// GetBatchGenerationRepository returns the batch generation repository instance
func (f *Factory) GetBatchGenerationRepository() BatchGenerationRepository {
	return f.GetRepositories().BatchGeneration
}

// GetUsageTokenRepository returns the usage token repository instance
func (f *Factory) GetUsageTokenRepository() UsageTokenRepository {
	return f.GetRepositories().UsageToken
}

// GetBotChannelRepository returns the bot channel repository instance
func (f *Factory) GetBotChannelRepository() BotChannelRepository {
	return f.GetRepositories().BotChannel
}

// GetSubscriptionRepository returns the subscription repository instance
func (f *Factory) GetSubscriptionRepository() SubscriptionRepository {
	return f.GetRepositories().Subscription
}

var (
	globalFactory     *Factory
	globalFactoryOnce sync.Once
)

// InitGlobalFactory initializes the process-wide factory with a DB handle.
func InitGlobalFactory(db *gorm.DB) *Factory {
	globalFactoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
	return globalFactory
}

// GetGlobalFactory returns the process-wide factory. InitGlobalFactory must
// have been called during application setup.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository: global factory not initialized")
	}
	return globalFactory
}
