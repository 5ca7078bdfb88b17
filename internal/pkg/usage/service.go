package usage

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
)

// Service is the token ledger. All metered AI operations pass through
// Consume; the repository guarantees the check-and-debit is one atomic
// statement, so concurrent consumers can never drive the ledger negative.
type Service struct {
	tokens repository.UsageTokenRepository
}

// NewService creates a usage service over the given ledger repository.
func NewService(tokens repository.UsageTokenRepository) *Service {
	return &Service{tokens: tokens}
}

// EnsureForTenant seeds a trial ledger row for a tenant that has none yet.
// Existing rows are returned untouched.
func (s *Service) EnsureForTenant(tenantID string) (*models.UsageToken, error) {
	ledger, err := s.tokens.GetByTenantID(tenantID)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load token ledger: %w", err)
	}

	ledger = &models.UsageToken{
		TenantID:    tenantID,
		TokensLimit: models.TrialTokenLimit,
		ResetDate:   time.Now().AddDate(0, 1, 0),
	}
	if err := s.tokens.Create(ledger); err != nil {
		return nil, fmt.Errorf("seed token ledger: %w", err)
	}
	log.Infof("[Usage] seeded trial ledger for tenant %s", tenantID)
	return ledger, nil
}

// Consume debits amount tokens from the tenant ledger. Fails with a quota
// error when the debit would exceed limit plus purchased extras.
func (s *Service) Consume(tenantID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	err := s.tokens.Consume(tenantID, amount)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrQuotaExceeded) {
		return apperr.QuotaExceeded("token quota exceeded, please upgrade your plan")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("no token ledger for tenant")
	}
	return fmt.Errorf("consume tokens: %w", err)
}

// Remaining returns the ledger state for a tenant, resetting the used
// counter first when the monthly reset date has passed.
func (s *Service) Remaining(tenantID string) (*models.UsageToken, error) {
	ledger, err := s.tokens.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no token ledger for tenant")
		}
		return nil, fmt.Errorf("load token ledger: %w", err)
	}

	if time.Now().After(ledger.ResetDate) {
		ledger.TokensUsed = 0
		ledger.ResetDate = time.Now().AddDate(0, 1, 0)
		if err := s.tokens.Reset(tenantID, ledger.ResetDate); err != nil {
			return nil, fmt.Errorf("reset token ledger: %w", err)
		}
		log.Infof("[Usage] monthly reset for tenant %s", tenantID)
	}
	return ledger, nil
}

// SetLimitForPlan updates the monthly allowance to match a plan change.
// The used counter is left alone; the monthly reset handles it.
func (s *Service) SetLimitForPlan(tenantID, planType string) error {
	limit := models.TokenLimitForPlan(planType)
	if err := s.tokens.SetLimit(tenantID, limit); err != nil {
		return fmt.Errorf("set token limit: %w", err)
	}
	log.Infof("[Usage] tenant %s limit set to %d for plan %s", tenantID, limit, planType)
	return nil
}

// AddTokens credits purchased extra tokens to the ledger.
func (s *Service) AddTokens(tenantID string, amount int64) error {
	if amount <= 0 {
		return apperr.Validation("token amount must be positive")
	}
	if err := s.tokens.AddTokens(tenantID, amount); err != nil {
		return fmt.Errorf("add tokens: %w", err)
	}
	return nil
}
