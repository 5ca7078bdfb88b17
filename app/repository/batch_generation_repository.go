package repository

import (
	"fmt"

	"github.com/fudoline/fudoline/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveJobError is returned when a tenant already has a batch job in a
// non-terminal state. Count is the number of active jobs found.
type ActiveJobError struct {
	Count int
}

func (e *ActiveJobError) Error() string {
	return fmt.Sprintf("tenant already has %d active batch job(s)", e.Count)
}

// batchGenerationRepository implements the BatchGenerationRepository interface
type batchGenerationRepository struct {
	db *gorm.DB
}

// NewBatchGenerationRepository creates a new batch generation repository instance
func NewBatchGenerationRepository(db *gorm.DB) BatchGenerationRepository {
	return &batchGenerationRepository{db: db}
}

// CreateIfNoneActive inserts the tracking row only if the tenant has no
// active job. The check and the insert share one transaction with the
// active rows locked, so two concurrent submissions cannot both succeed.
func (r *batchGenerationRepository) CreateIfNoneActive(batch *models.BatchGeneration) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var active []models.BatchGeneration
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND status IN ?", batch.TenantID, models.ActiveBatchStatuses).
			Find(&active).Error
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return &ActiveJobError{Count: len(active)}
		}
		return tx.Create(batch).Error
	})
}

// GetByBatchID retrieves a tracking row by the external job ID.
func (r *batchGenerationRepository) GetByBatchID(batchID string) (*models.BatchGeneration, error) {
	var batch models.BatchGeneration
	err := r.db.Where("batch_id = ?", batchID).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetActiveByTenant returns the tenant's non-terminal batch jobs.
func (r *batchGenerationRepository) GetActiveByTenant(tenantID string) ([]models.BatchGeneration, error) {
	var batches []models.BatchGeneration
	err := r.db.Where("tenant_id = ? AND status IN ?", tenantID, models.ActiveBatchStatuses).
		Order("created_at DESC").Find(&batches).Error
	return batches, err
}

// GetByTenantID retrieves a paginated history of a tenant's batch jobs.
func (r *batchGenerationRepository) GetByTenantID(tenantID string, offset, limit int) ([]models.BatchGeneration, error) {
	var batches []models.BatchGeneration
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&batches).Error
	return batches, err
}

// CountActiveByTenant counts the tenant's non-terminal batch jobs.
func (r *batchGenerationRepository) CountActiveByTenant(tenantID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.BatchGeneration{}).
		Where("tenant_id = ? AND status IN ?", tenantID, models.ActiveBatchStatuses).
		Count(&count).Error
	return count, err
}

// Update persists changes to an existing tracking row.
func (r *batchGenerationRepository) Update(batch *models.BatchGeneration) error {
	return r.db.Save(batch).Error
}
