package billing

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

type fakeSubscriptions struct {
	byTenant map[string]*models.Subscription
	events   map[string]bool
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{
		byTenant: make(map[string]*models.Subscription),
		events:   make(map[string]bool),
	}
}

func (f *fakeSubscriptions) Upsert(sub *models.Subscription) error {
	f.byTenant[sub.TenantID] = sub
	return nil
}

func (f *fakeSubscriptions) GetByTenantID(tenantID string) (*models.Subscription, error) {
	sub, ok := f.byTenant[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (f *fakeSubscriptions) GetByProviderSubscriptionID(subscriptionID string) (*models.Subscription, error) {
	for _, sub := range f.byTenant {
		if sub.ProviderSubscriptionID == subscriptionID {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptions) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	if f.events[event.ID] {
		return false, nil
	}
	f.events[event.ID] = true
	return true, nil
}

type fakeTokenRepo struct {
	limits map[string]int64
}

func (f *fakeTokenRepo) Create(tokens *models.UsageToken) error { return nil }
func (f *fakeTokenRepo) GetByTenantID(tenantID string) (*models.UsageToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeTokenRepo) Consume(tenantID string, amount int64) error { return nil }
func (f *fakeTokenRepo) SetLimit(tenantID string, limit int64) error {
	f.limits[tenantID] = limit
	return nil
}
func (f *fakeTokenRepo) AddTokens(tenantID string, amount int64) error { return nil }
func (f *fakeTokenRepo) Reset(tenantID string, t time.Time) error      { return nil }

func subscriptionEvent(t *testing.T, eventID, eventType, subID, tenantID, priceID, status string) *Event {
	t.Helper()
	object := fmt.Sprintf(`{
		"id": %q,
		"customer": "cus_1",
		"status": %q,
		"current_period_end": %d,
		"items": {"data": [{"price": {"id": %q}}]},
		"metadata": {"tenant_id": %q}
	}`, subID, status, time.Now().AddDate(0, 1, 0).Unix(), priceID, tenantID)

	raw := fmt.Sprintf(`{"id": %q, "type": %q, "data": {"object": %s}}`, eventID, eventType, object)
	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return &event
}

func TestHandleEventSubscriptionUpdatedSetsPlanLimit(t *testing.T) {
	t.Setenv("BILLING_PRICE_PRO", "price_pro")

	subs := newFakeSubscriptions()
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	event := subscriptionEvent(t, "evt_1", EventSubscriptionUpdated, "sub_1", "tenant-1", "price_pro", "active")
	require.NoError(t, svc.HandleEvent(event))

	sub := subs.byTenant["tenant-1"]
	require.NotNil(t, sub)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, int64(10000000), tokens.limits["tenant-1"])
}

func TestHandleEventIsIdempotent(t *testing.T) {
	t.Setenv("BILLING_PRICE_PRO", "price_pro")

	subs := newFakeSubscriptions()
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	event := subscriptionEvent(t, "evt_1", EventSubscriptionUpdated, "sub_1", "tenant-1", "price_pro", "active")
	require.NoError(t, svc.HandleEvent(event))

	// Replay with mutated payload; the stored state must not change.
	replay := subscriptionEvent(t, "evt_1", EventSubscriptionDeleted, "sub_1", "tenant-1", "price_pro", "canceled")
	require.NoError(t, svc.HandleEvent(replay))
	assert.Equal(t, "active", subs.byTenant["tenant-1"].Status)
}

func TestHandleEventSubscriptionDeletedDropsToTrial(t *testing.T) {
	subs := newFakeSubscriptions()
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	event := subscriptionEvent(t, "evt_2", EventSubscriptionDeleted, "sub_1", "tenant-1", "", "canceled")
	require.NoError(t, svc.HandleEvent(event))

	assert.Equal(t, models.PlanTrial, subs.byTenant["tenant-1"].PlanType)
	assert.Equal(t, int64(models.TrialTokenLimit), tokens.limits["tenant-1"])
}

func TestHandleEventResolvesTenantFromStoredRow(t *testing.T) {
	subs := newFakeSubscriptions()
	subs.byTenant["tenant-1"] = &models.Subscription{
		TenantID:               "tenant-1",
		ProviderSubscriptionID: "sub_1",
	}
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	// No metadata on the event; the stored row supplies the tenant.
	event := subscriptionEvent(t, "evt_3", EventSubscriptionUpdated, "sub_1", "", "", "past_due")
	require.NoError(t, svc.HandleEvent(event))
	assert.Equal(t, "past_due", subs.byTenant["tenant-1"].Status)
	// Past-due standing does not touch the allowance.
	assert.Empty(t, tokens.limits)
}

func TestHandleEventCheckoutCompleted(t *testing.T) {
	subs := newFakeSubscriptions()
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	raw := `{"id": "evt_4", "type": "checkout.session.completed", "data": {"object": {
		"customer": "cus_1", "subscription": "sub_1", "client_reference_id": "tenant-1"
	}}}`
	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	require.NoError(t, svc.HandleEvent(&event))
	sub := subs.byTenant["tenant-1"]
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.ProviderSubscriptionID)
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	subs := newFakeSubscriptions()
	tokens := &fakeTokenRepo{limits: make(map[string]int64)}
	svc := NewService(subs, usage.NewService(tokens))

	event := &Event{ID: "evt_5", Type: "invoice.finalized"}
	assert.NoError(t, svc.HandleEvent(event))
	assert.Empty(t, subs.byTenant)
}
