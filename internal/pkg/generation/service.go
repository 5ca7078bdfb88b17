package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/openaibatch"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

// BatchClient is the external batch inference API surface the service
// depends on. Satisfied by openaibatch.Client.
type BatchClient interface {
	Model() string
	UploadBatchFile(ctx context.Context, requests []openaibatch.BatchRequest) (string, error)
	CreateBatch(ctx context.Context, inputFileID string) (*openaibatch.BatchStatus, error)
	GetBatch(ctx context.Context, batchID string) (*openaibatch.BatchStatus, error)
	GetResults(ctx context.Context, fileID string) ([]openaibatch.Outcome, error)
	CancelBatch(ctx context.Context, batchID string) error
	DeleteFile(ctx context.Context, fileID string) error
}

// Config tunes the orchestrator.
type Config struct {
	// MaxPropertiesPerBatch caps one submission. Zero means the default.
	MaxPropertiesPerBatch int
	// ClearFailedTags releases the batch tag from tagged listings when a
	// job ends failed, expired or cancelled, so they become eligible again.
	ClearFailedTags bool
}

// DefaultMaxPropertiesPerBatch caps one submission.
const DefaultMaxPropertiesPerBatch = 1000

// Service orchestrates the batch description lifecycle: submit, poll,
// apply results, cancel. One active job per tenant at a time.
type Service struct {
	batches    repository.BatchGenerationRepository
	properties repository.PropertyRepository
	usage      *usage.Service
	client     BatchClient
	cfg        Config
}

// NewService wires the orchestrator. ClearFailedTags defaults to on.
func NewService(batches repository.BatchGenerationRepository, properties repository.PropertyRepository, usageSvc *usage.Service, client BatchClient) *Service {
	return &Service{
		batches:    batches,
		properties: properties,
		usage:      usageSvc,
		client:     client,
		cfg: Config{
			MaxPropertiesPerBatch: DefaultMaxPropertiesPerBatch,
			ClearFailedTags:       true,
		},
	}
}

// WithConfig overrides the default configuration.
func (s *Service) WithConfig(cfg Config) *Service {
	if cfg.MaxPropertiesPerBatch <= 0 {
		cfg.MaxPropertiesPerBatch = DefaultMaxPropertiesPerBatch
	}
	s.cfg = cfg
	return s
}

// SubmitResult reports a successful submission.
type SubmitResult struct {
	Batch           *models.BatchGeneration `json:"batch"`
	RequestCount    int                     `json:"request_count"`
	EstimatedCost   float64                 `json:"estimated_cost"`
	EstimatedTokens int64                   `json:"estimated_tokens"`
}

// Submit creates a batch job over the tenant's pending listings. When
// propertyIDs is empty, all eligible listings are picked up to the batch
// cap. A listing is eligible while it has no generated description and no
// batch tag.
func (s *Service) Submit(ctx context.Context, tenantID string, propertyIDs []string) (*SubmitResult, error) {
	// Cheap precondition read; the insert below re-checks atomically.
	activeCount, err := s.batches.CountActiveByTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("count active jobs: %w", err)
	}
	if activeCount > 0 {
		return nil, apperr.Conflict(fmt.Sprintf("%d batch generation(s) already in progress", activeCount))
	}

	var pending []models.Property
	if len(propertyIDs) > 0 {
		pending, err = s.properties.GetByIDsPendingGeneration(tenantID, propertyIDs)
	} else {
		pending, err = s.properties.GetPendingGeneration(tenantID, s.cfg.MaxPropertiesPerBatch)
	}
	if err != nil {
		return nil, fmt.Errorf("load pending listings: %w", err)
	}
	if len(pending) == 0 {
		return nil, apperr.Validation("no listings are eligible for generation")
	}
	if len(pending) > s.cfg.MaxPropertiesPerBatch {
		pending = pending[:s.cfg.MaxPropertiesPerBatch]
	}

	estCost, estTokens := openaibatch.EstimateCost(len(pending))
	ledger, err := s.usage.Remaining(tenantID)
	if err != nil {
		return nil, err
	}
	if ledger.Remaining() < estTokens {
		return nil, apperr.QuotaExceeded("not enough tokens for this batch, please upgrade your plan")
	}

	requests := make([]openaibatch.BatchRequest, len(pending))
	for i := range pending {
		requests[i] = openaibatch.BuildRequest(s.client.Model(), &pending[i])
	}

	inputFileID, err := s.client.UploadBatchFile(ctx, requests)
	if err != nil {
		return nil, apperr.Upstream("failed to upload batch input", err)
	}
	remote, err := s.client.CreateBatch(ctx, inputFileID)
	if err != nil {
		return nil, apperr.Upstream("failed to create batch job", err)
	}

	batch := &models.BatchGeneration{
		TenantID:      tenantID,
		BatchID:       remote.ID,
		InputFileID:   inputFileID,
		Status:        remote.Status,
		TotalRequests: len(pending),
		EstimatedCost: estCost,
	}
	if err := s.batches.CreateIfNoneActive(batch); err != nil {
		var activeErr *repository.ActiveJobError
		if errors.As(err, &activeErr) {
			// Lost the race. Abandon the remote job so it does not burn
			// tokens for a row we never tracked.
			if cancelErr := s.client.CancelBatch(ctx, remote.ID); cancelErr != nil {
				log.Errorf("[Generation] failed to cancel orphaned batch %s: %v", remote.ID, cancelErr)
			}
			return nil, apperr.Conflict(fmt.Sprintf("%d batch generation(s) already in progress", activeErr.Count))
		}
		return nil, fmt.Errorf("record batch job: %w", err)
	}

	ids := make([]string, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	if err := s.properties.StampBatchJob(tenantID, ids, remote.ID); err != nil {
		return nil, fmt.Errorf("tag listings with batch job: %w", err)
	}

	log.Infof("[Generation] tenant=%s submitted batch %s requests=%d est_cost=%.4f",
		tenantID, remote.ID, len(pending), estCost)

	return &SubmitResult{
		Batch:           batch,
		RequestCount:    len(pending),
		EstimatedCost:   estCost,
		EstimatedTokens: estTokens,
	}, nil
}

// GetStatus returns the tracking row, reconciled against the remote job
// state when the row is still active. Terminal rows are returned as-is.
func (s *Service) GetStatus(ctx context.Context, tenantID, batchID string) (*models.BatchGeneration, error) {
	batch, err := s.loadOwned(tenantID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.IsTerminal() {
		return batch, nil
	}

	remote, err := s.client.GetBatch(ctx, batchID)
	if err != nil {
		return nil, apperr.Upstream("failed to poll batch job", err)
	}

	changed := batch.Status != remote.Status
	batch.Status = remote.Status
	if remote.OutputFileID != "" && (batch.OutputFileID == nil || *batch.OutputFileID != remote.OutputFileID) {
		batch.OutputFileID = &remote.OutputFileID
		changed = true
	}
	if remote.ErrorFileID != "" && (batch.ErrorFileID == nil || *batch.ErrorFileID != remote.ErrorFileID) {
		batch.ErrorFileID = &remote.ErrorFileID
		changed = true
	}
	if remote.RequestCounts != nil {
		if batch.CompletedRequests != remote.RequestCounts.Completed || batch.FailedRequests != remote.RequestCounts.Failed {
			changed = true
		}
		batch.CompletedRequests = remote.RequestCounts.Completed
		batch.FailedRequests = remote.RequestCounts.Failed
	}
	if batch.Status == models.BatchStatusCompleted && batch.CompletedAt == nil {
		now := time.Now()
		batch.CompletedAt = &now
		changed = true
	}

	if changed {
		if err := s.batches.Update(batch); err != nil {
			return nil, fmt.Errorf("update batch job: %w", err)
		}
	}

	// A job that died without producing results leaves its listings
	// tagged forever unless we release them here.
	if s.cfg.ClearFailedTags && batch.IsTerminal() && batch.Status != models.BatchStatusCompleted {
		if err := s.properties.ClearBatchJobTag(tenantID, batchID); err != nil {
			log.Errorf("[Generation] failed to release tags for batch %s: %v", batchID, err)
		}
	}

	return batch, nil
}

// ApplyResult reports one apply-results pass.
type ApplyResult struct {
	SuccessCount int   `json:"success_count"`
	SkippedCount int   `json:"skipped_count"`
	ErrorCount   int   `json:"error_count"`
	TotalResults int   `json:"total_results"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ApplyResults downloads the output artifact of a completed job and writes
// each generated description to its listing. Safe to call repeatedly: a
// listing that already has a description is skipped, and tokens are only
// metered on the first pass.
func (s *Service) ApplyResults(ctx context.Context, tenantID, batchID string) (*ApplyResult, error) {
	batch, err := s.loadOwned(tenantID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.BatchStatusCompleted {
		return nil, apperr.Validation("batch job has not completed yet")
	}
	if batch.OutputFileID == nil || *batch.OutputFileID == "" {
		return nil, apperr.Validation("batch job produced no output")
	}

	outcomes, err := s.client.GetResults(ctx, *batch.OutputFileID)
	if err != nil {
		return nil, apperr.Upstream("failed to download batch results", err)
	}

	result := &ApplyResult{TotalResults: len(outcomes)}
	for i := range outcomes {
		outcome := &outcomes[i]
		propertyID, ok := openaibatch.PropertyIDFromCustomID(outcome.CustomID)
		if !ok {
			log.Warnf("[Generation] batch %s: unrecognized custom id %q", batchID, outcome.CustomID)
			result.ErrorCount++
			continue
		}

		if outcome.Error != nil || outcome.Content() == "" {
			result.ErrorCount++
			if outcome.Error != nil {
				log.Warnf("[Generation] batch %s: request for %s failed: %s", batchID, propertyID, outcome.Error.Message)
			}
			if s.cfg.ClearFailedTags {
				// Release the listing so the next submission can retry it.
				if err := s.properties.ClearBatchJobTagForProperty(propertyID, tenantID); err != nil {
					log.Errorf("[Generation] failed to release tag on %s: %v", propertyID, err)
				}
			}
			continue
		}

		applied, err := s.properties.ApplyAIDescription(propertyID, tenantID, outcome.Content())
		if err != nil {
			return nil, fmt.Errorf("apply description to %s: %w", propertyID, err)
		}
		if applied {
			result.SuccessCount++
		} else {
			result.SkippedCount++
		}
		result.TotalTokens += int64(outcome.TotalTokens())
	}

	// Meter and finalize only once, on the pass that first lands results.
	if batch.ActualCost == nil {
		if result.TotalTokens > 0 {
			if err := s.usage.Consume(tenantID, result.TotalTokens); err != nil {
				// The descriptions are already written; log the metering
				// failure rather than unwinding them.
				log.Errorf("[Generation] failed to meter %d tokens for batch %s: %v", result.TotalTokens, batchID, err)
			}
		}
		cost := batch.EstimatedCost
		batch.ActualCost = &cost
		if batch.CompletedAt == nil {
			now := time.Now()
			batch.CompletedAt = &now
		}
		if err := s.batches.Update(batch); err != nil {
			return nil, fmt.Errorf("finalize batch job: %w", err)
		}
		if batch.InputFileID != "" {
			// The input artifact has served its purpose.
			if err := s.client.DeleteFile(ctx, batch.InputFileID); err != nil {
				log.Warnf("[Generation] failed to delete input artifact %s: %v", batch.InputFileID, err)
			}
		}
	}

	log.Infof("[Generation] tenant=%s batch=%s applied=%d skipped=%d errors=%d tokens=%d",
		tenantID, batchID, result.SuccessCount, result.SkippedCount, result.ErrorCount, result.TotalTokens)

	return result, nil
}

// Cancel asks the remote API to stop an active job and releases the tagged
// listings. Cancelling a job that already finished is a no-op.
func (s *Service) Cancel(ctx context.Context, tenantID, batchID string) (*models.BatchGeneration, error) {
	batch, err := s.loadOwned(tenantID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.IsTerminal() {
		return batch, nil
	}

	if err := s.client.CancelBatch(ctx, batchID); err != nil {
		return nil, apperr.Upstream("failed to cancel batch job", err)
	}

	batch.Status = models.BatchStatusCancelled
	if err := s.batches.Update(batch); err != nil {
		return nil, fmt.Errorf("update batch job: %w", err)
	}
	if err := s.properties.ClearBatchJobTag(tenantID, batchID); err != nil {
		log.Errorf("[Generation] failed to release tags for batch %s: %v", batchID, err)
	}

	log.Infof("[Generation] tenant=%s cancelled batch %s", tenantID, batchID)
	return batch, nil
}

// PendingStatus summarizes what a submission would pick up right now.
type PendingStatus struct {
	PendingCount int64                    `json:"pending_count"`
	ActiveJobs   []models.BatchGeneration `json:"active_jobs"`
}

// GetPendingStatus reports eligible listing count and any active jobs.
func (s *Service) GetPendingStatus(tenantID string) (*PendingStatus, error) {
	pending, err := s.properties.CountPendingGeneration(tenantID)
	if err != nil {
		return nil, fmt.Errorf("count pending listings: %w", err)
	}
	active, err := s.batches.GetActiveByTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("load active jobs: %w", err)
	}
	return &PendingStatus{PendingCount: pending, ActiveJobs: active}, nil
}

// History returns a page of the tenant's past and present jobs.
func (s *Service) History(tenantID string, offset, limit int) ([]models.BatchGeneration, error) {
	return s.batches.GetByTenantID(tenantID, offset, limit)
}

func (s *Service) loadOwned(tenantID, batchID string) (*models.BatchGeneration, error) {
	batch, err := s.batches.GetByBatchID(batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("batch job not found")
		}
		return nil, fmt.Errorf("load batch job: %w", err)
	}
	if batch.TenantID != tenantID {
		return nil, apperr.NotFound("batch job not found")
	}
	return batch, nil
}
