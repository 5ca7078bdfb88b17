package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Batch generation statuses, mirroring the external batch API.
const (
	BatchStatusValidating = "validating"
	BatchStatusInProgress = "in_progress"
	BatchStatusFinalizing = "finalizing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
	BatchStatusExpired    = "expired"
	BatchStatusCancelling = "cancelling"
	BatchStatusCancelled  = "cancelled"
)

// ActiveBatchStatuses are the non-terminal statuses. At most one
// BatchGeneration per tenant may hold one of these at any time.
var ActiveBatchStatuses = []string{
	BatchStatusValidating,
	BatchStatusInProgress,
	BatchStatusFinalizing,
}

// BatchGeneration tracks one submitted batch inference job. It is the single
// source of truth for the job lifecycle, reconciled against the external job
// state on every poll. Terminal rows are never mutated again.
type BatchGeneration struct {
	ID           string  `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID     string  `gorm:"type:char(36);index;not null" json:"tenant_id"`
	BatchID      string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_id"`
	InputFileID  string  `gorm:"type:varchar(64);not null" json:"input_file_id"`
	OutputFileID *string `gorm:"type:varchar(64)" json:"output_file_id,omitempty"`
	ErrorFileID  *string `gorm:"type:varchar(64)" json:"error_file_id,omitempty"`

	Status            string  `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalRequests     int     `gorm:"not null" json:"total_requests"`
	CompletedRequests int     `gorm:"default:0" json:"completed_requests"`
	FailedRequests    int     `gorm:"default:0" json:"failed_requests"`
	EstimatedCost     float64 `gorm:"type:decimal(10,6)" json:"estimated_cost"`
	ActualCost        *float64 `gorm:"type:decimal(10,6)" json:"actual_cost,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate assigns a UUID and the initial status.
func (b *BatchGeneration) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BatchStatusValidating
	}
	return nil
}

// IsTerminal reports whether the job has reached a final state.
func (b *BatchGeneration) IsTerminal() bool {
	return IsTerminalBatchStatus(b.Status)
}

// IsTerminalBatchStatus reports whether status is one of the final states.
func IsTerminalBatchStatus(status string) bool {
	switch status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusExpired, BatchStatusCancelled:
		return true
	}
	return false
}
