package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
)

// fakeTokenRepo is an in-memory stand-in for the ledger repository with the
// same atomic-consume semantics.
type fakeTokenRepo struct {
	rows map[string]*models.UsageToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{rows: make(map[string]*models.UsageToken)}
}

func (f *fakeTokenRepo) Create(tokens *models.UsageToken) error {
	f.rows[tokens.TenantID] = tokens
	return nil
}

func (f *fakeTokenRepo) GetByTenantID(tenantID string) (*models.UsageToken, error) {
	row, ok := f.rows[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeTokenRepo) Consume(tenantID string, amount int64) error {
	row, ok := f.rows[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if row.TokensUsed+amount > row.TokensLimit+row.AdditionalTokens {
		return repository.ErrQuotaExceeded
	}
	row.TokensUsed += amount
	return nil
}

func (f *fakeTokenRepo) SetLimit(tenantID string, limit int64) error {
	row, ok := f.rows[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.TokensLimit = limit
	return nil
}

func (f *fakeTokenRepo) AddTokens(tenantID string, amount int64) error {
	row, ok := f.rows[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.AdditionalTokens += amount
	return nil
}

func (f *fakeTokenRepo) Reset(tenantID string, resetDate time.Time) error {
	row, ok := f.rows[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.TokensUsed = 0
	row.ResetDate = resetDate
	return nil
}

func TestEnsureForTenantSeedsTrialLedger(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewService(repo)

	ledger, err := svc.EnsureForTenant("tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(models.TrialTokenLimit), ledger.TokensLimit)
	assert.Equal(t, int64(0), ledger.TokensUsed)
	assert.True(t, ledger.ResetDate.After(time.Now()))

	// Second call returns the existing row unchanged.
	repo.rows["tenant-1"].TokensUsed = 42
	again, err := svc.EnsureForTenant("tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), again.TokensUsed)
}

func TestConsumeDebitsLedger(t *testing.T) {
	repo := newFakeTokenRepo()
	repo.rows["tenant-1"] = &models.UsageToken{
		TenantID:    "tenant-1",
		TokensLimit: 1000,
		ResetDate:   time.Now().AddDate(0, 1, 0),
	}
	svc := NewService(repo)

	assert.NoError(t, svc.Consume("tenant-1", 600))
	assert.Equal(t, int64(600), repo.rows["tenant-1"].TokensUsed)

	err := svc.Consume("tenant-1", 500)
	assert.True(t, apperr.Is(err, apperr.KindQuotaExceeded))
	assert.Equal(t, int64(600), repo.rows["tenant-1"].TokensUsed)

	// Purchased extras raise the ceiling.
	assert.NoError(t, svc.AddTokens("tenant-1", 200))
	assert.NoError(t, svc.Consume("tenant-1", 500))
	assert.Equal(t, int64(1100), repo.rows["tenant-1"].TokensUsed)
}

func TestConsumeZeroIsNoop(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewService(repo)
	assert.NoError(t, svc.Consume("missing", 0))
}

func TestConsumeUnknownTenant(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewService(repo)
	err := svc.Consume("missing", 10)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRemainingResetsAfterPeriodEnd(t *testing.T) {
	repo := newFakeTokenRepo()
	repo.rows["tenant-1"] = &models.UsageToken{
		TenantID:    "tenant-1",
		TokensUsed:  900,
		TokensLimit: 1000,
		ResetDate:   time.Now().AddDate(0, 0, -1),
	}
	svc := NewService(repo)

	ledger, err := svc.Remaining("tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), ledger.TokensUsed)
	assert.Equal(t, int64(1000), ledger.Remaining())
	assert.True(t, repo.rows["tenant-1"].ResetDate.After(time.Now()))
}

func TestSetLimitForPlan(t *testing.T) {
	repo := newFakeTokenRepo()
	repo.rows["tenant-1"] = &models.UsageToken{
		TenantID:    "tenant-1",
		TokensLimit: models.TrialTokenLimit,
		ResetDate:   time.Now().AddDate(0, 1, 0),
	}
	svc := NewService(repo)

	assert.NoError(t, svc.SetLimitForPlan("tenant-1", models.PlanPro))
	assert.Equal(t, int64(10000000), repo.rows["tenant-1"].TokensLimit)

	assert.NoError(t, svc.SetLimitForPlan("tenant-1", "unknown"))
	assert.Equal(t, int64(models.TrialTokenLimit), repo.rows["tenant-1"].TokensLimit)
}

func TestAddTokensRejectsNonPositive(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewService(repo)
	err := svc.AddTokens("tenant-1", 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
