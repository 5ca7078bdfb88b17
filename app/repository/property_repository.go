package repository

import (
	"fmt"
	"strings"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
)

// propertyRepository implements the PropertyRepository interface
type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository instance
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// Create creates a new property in the database
func (r *propertyRepository) Create(property *models.Property) error {
	return r.db.Create(property).Error
}

// CreateInChunks inserts properties in fixed-size chunks. Each chunk is its
// own transaction; a failing chunk is recorded and does not block the rest.
func (r *propertyRepository) CreateInChunks(properties []models.Property, chunkSize int) ([]models.Property, []ChunkError) {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	var inserted []models.Property
	var chunkErrors []ChunkError

	for i := 0; i < len(properties); i += chunkSize {
		end := i + chunkSize
		if end > len(properties) {
			end = len(properties)
		}
		chunk := properties[i:end]
		chunkIndex := i/chunkSize + 1

		if err := r.db.Create(&chunk).Error; err != nil {
			chunkErrors = append(chunkErrors, ChunkError{
				Chunk:   chunkIndex,
				Message: fmt.Sprintf("chunk %d failed: %v", chunkIndex, err),
			})
			continue
		}
		inserted = append(inserted, chunk...)
	}

	return inserted, chunkErrors
}

// GetByID retrieves a property by ID, scoped to the owning tenant.
func (r *propertyRepository) GetByID(id, tenantID string) (*models.Property, error) {
	var property models.Property
	err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetByTenantID retrieves a paginated list of a tenant's properties
func (r *propertyRepository) GetByTenantID(tenantID string, offset, limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&properties).Error
	return properties, err
}

// GetPendingGeneration returns properties without a generated description
// that are not claimed by an in-flight batch job.
func (r *propertyRepository) GetPendingGeneration(tenantID string, limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Where("tenant_id = ? AND (ai_description IS NULL OR ai_description = '') AND batch_job_id IS NULL", tenantID).
		Order("created_at ASC").Limit(limit).Find(&properties).Error
	return properties, err
}

// GetByIDsPendingGeneration returns the subset of the given IDs that belong
// to the tenant, still lack a generated description, and are not claimed by
// an in-flight batch job.
func (r *propertyRepository) GetByIDsPendingGeneration(tenantID string, ids []string) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Where("tenant_id = ? AND id IN ? AND (ai_description IS NULL OR ai_description = '') AND batch_job_id IS NULL", tenantID, ids).
		Find(&properties).Error
	return properties, err
}

// CountPendingGeneration counts properties eligible for the next submission.
func (r *propertyRepository) CountPendingGeneration(tenantID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).
		Where("tenant_id = ? AND (ai_description IS NULL OR ai_description = '') AND batch_job_id IS NULL", tenantID).
		Count(&count).Error
	return count, err
}

// Search finds a tenant's properties matching the free-text query.
func (r *propertyRepository) Search(tenantID, query string, limit int) ([]models.Property, error) {
	var properties []models.Property
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where(
		"tenant_id = ? AND (name LIKE ? OR address LIKE ? OR property_type LIKE ? OR description LIKE ?)",
		tenantID, pattern, pattern, pattern, pattern,
	).Limit(limit).Find(&properties).Error
	return properties, err
}

// Update updates an existing property in the database
func (r *propertyRepository) Update(property *models.Property) error {
	return r.db.Save(property).Error
}

// UpdateFields applies a partial update scoped to the owning tenant.
func (r *propertyRepository) UpdateFields(id, tenantID string, fields map[string]interface{}) error {
	result := r.db.Model(&models.Property{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApplyAIDescription writes the generated description and clears the batch
// job tag, but only if no description has been applied yet. Returns whether
// the row was written, so re-applying a batch result is a safe no-op.
func (r *propertyRepository) ApplyAIDescription(id, tenantID, description string) (bool, error) {
	result := r.db.Model(&models.Property{}).
		Where("id = ? AND tenant_id = ? AND (ai_description IS NULL OR ai_description = '')", id, tenantID).
		Updates(map[string]interface{}{
			"ai_description": description,
			"batch_job_id":   nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// StampBatchJob tags the given properties with the in-flight batch job ID.
func (r *propertyRepository) StampBatchJob(tenantID string, ids []string, batchID string) error {
	return r.db.Model(&models.Property{}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Update("batch_job_id", batchID).Error
}

// ClearBatchJobTag removes the job tag from all properties still pointing at
// the given batch (used when a job is cancelled or abandoned).
func (r *propertyRepository) ClearBatchJobTag(tenantID, batchID string) error {
	return r.db.Model(&models.Property{}).
		Where("tenant_id = ? AND batch_job_id = ?", tenantID, batchID).
		Update("batch_job_id", nil).Error
}

// ClearBatchJobTagForProperty removes the job tag from a single property.
func (r *propertyRepository) ClearBatchJobTagForProperty(id, tenantID string) error {
	return r.db.Model(&models.Property{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("batch_job_id", nil).Error
}

// Delete removes a property, scoped to the owning tenant.
func (r *propertyRepository) Delete(id, tenantID string) error {
	result := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Property{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
