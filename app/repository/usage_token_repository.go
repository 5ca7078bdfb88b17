package repository

import (
	"errors"
	"time"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
)

// ErrQuotaExceeded is returned when a consume would push tokens_used past
// the tenant's allowance. The increment is rejected whole; no partial credit.
var ErrQuotaExceeded = errors.New("token quota exceeded")

// usageTokenRepository implements the UsageTokenRepository interface
type usageTokenRepository struct {
	db *gorm.DB
}

// NewUsageTokenRepository creates a new usage token repository instance
func NewUsageTokenRepository(db *gorm.DB) UsageTokenRepository {
	return &usageTokenRepository{db: db}
}

// Create creates a new usage token row
func (r *usageTokenRepository) Create(tokens *models.UsageToken) error {
	return r.db.Create(tokens).Error
}

// GetByTenantID retrieves the tenant's ledger row
func (r *usageTokenRepository) GetByTenantID(tenantID string) (*models.UsageToken, error) {
	var tokens models.UsageToken
	err := r.db.Where("tenant_id = ?", tenantID).First(&tokens).Error
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Consume adds amount to tokens_used only if the post-increment value stays
// within tokens_limit + additional_tokens. The check and the increment are
// one conditional UPDATE, so concurrent consumers cannot overshoot the
// quota. Zero affected rows means either the row is missing
// (gorm.ErrRecordNotFound) or the quota is exhausted (ErrQuotaExceeded).
func (r *usageTokenRepository) Consume(tenantID string, amount int64) error {
	result := r.db.Model(&models.UsageToken{}).
		Where("tenant_id = ? AND tokens_used + ? <= tokens_limit + additional_tokens", tenantID, amount).
		UpdateColumn("tokens_used", gorm.Expr("tokens_used + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.Model(&models.UsageToken{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrQuotaExceeded
}

// SetLimit replaces the tenant's base token limit (plan change).
func (r *usageTokenRepository) SetLimit(tenantID string, limit int64) error {
	result := r.db.Model(&models.UsageToken{}).
		Where("tenant_id = ?", tenantID).
		Update("tokens_limit", limit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Reset zeroes the used counter and moves the reset date forward.
func (r *usageTokenRepository) Reset(tenantID string, resetDate time.Time) error {
	result := r.db.Model(&models.UsageToken{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"tokens_used": 0,
			"reset_date":  resetDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddTokens credits purchased top-up tokens.
func (r *usageTokenRepository) AddTokens(tenantID string, amount int64) error {
	result := r.db.Model(&models.UsageToken{}).
		Where("tenant_id = ?", tenantID).
		UpdateColumn("additional_tokens", gorm.Expr("additional_tokens + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
