package repository

import (
	"strings"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// Create creates a new tenant in the database
func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

// GetByID retrieves a tenant by its ID
func (r *tenantRepository) GetByID(id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByAuthUserID resolves the external auth-provider user ID to a tenant.
func (r *tenantRepository) GetByAuthUserID(authUserID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("auth_user_id = ?", authUserID).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByEmail retrieves a tenant by its contact email
func (r *tenantRepository) GetByEmail(email string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Update updates an existing tenant in the database
func (r *tenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}
