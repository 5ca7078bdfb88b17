package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

// Service applies payment-provider webhook events to the local
// subscription mirror and the token ledger.
type Service struct {
	subscriptions repository.SubscriptionRepository
	usage         *usage.Service
}

// NewService wires a billing service.
func NewService(subscriptions repository.SubscriptionRepository, usageSvc *usage.Service) *Service {
	return &Service{subscriptions: subscriptions, usage: usageSvc}
}

// HandleEvent processes one webhook event exactly once. A replayed event
// id is acknowledged without touching any state.
func (s *Service) HandleEvent(event *Event) error {
	created, err := s.subscriptions.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		ID:        event.ID,
		EventType: event.Type,
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		log.Infof("[Billing] replayed event %s ignored", event.ID)
		return nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(event)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(event)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(event)
	default:
		log.Infof("[Billing] ignoring event type %s", event.Type)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(event *Event) error {
	var session CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	if session.ClientRefID == "" {
		return errors.New("checkout session has no tenant reference")
	}

	sub := &models.Subscription{
		TenantID:               session.ClientRefID,
		ProviderCustomerID:     session.CustomerID,
		ProviderSubscriptionID: session.SubscriptionID,
		Status:                 "active",
	}
	if err := s.subscriptions.Upsert(sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	log.Infof("[Billing] checkout completed for tenant %s", session.ClientRefID)
	return nil
}

func (s *Service) handleSubscriptionUpdated(event *Event) error {
	var obj SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	tenantID, err := s.resolveTenant(&obj)
	if err != nil {
		return err
	}

	plan := PlanForPriceID(obj.PriceID())
	periodEnd := time.Unix(obj.CurrentPeriodEnd, 0)
	sub := &models.Subscription{
		TenantID:               tenantID,
		ProviderCustomerID:     obj.CustomerID,
		ProviderSubscriptionID: obj.ID,
		ProviderPriceID:        obj.PriceID(),
		Status:                 obj.Status,
		PlanType:               plan,
		CurrentPeriodEnd:       &periodEnd,
	}
	if err := s.subscriptions.Upsert(sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	// The ledger allowance follows the plan while the subscription is in
	// good standing.
	if obj.Status == "active" || obj.Status == "trialing" {
		if err := s.usage.SetLimitForPlan(tenantID, plan); err != nil {
			return err
		}
	}
	log.Infof("[Billing] tenant %s subscription %s now %s (%s)", tenantID, obj.ID, obj.Status, plan)
	return nil
}

func (s *Service) handleSubscriptionDeleted(event *Event) error {
	var obj SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	tenantID, err := s.resolveTenant(&obj)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		TenantID:               tenantID,
		ProviderCustomerID:     obj.CustomerID,
		ProviderSubscriptionID: obj.ID,
		Status:                 "canceled",
		PlanType:               models.PlanTrial,
	}
	if err := s.subscriptions.Upsert(sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	if err := s.usage.SetLimitForPlan(tenantID, models.PlanTrial); err != nil {
		return err
	}
	log.Infof("[Billing] tenant %s dropped to trial after cancellation", tenantID)
	return nil
}

// resolveTenant prefers the metadata reference and falls back to the
// stored subscription row.
func (s *Service) resolveTenant(obj *SubscriptionObject) (string, error) {
	if obj.Metadata.TenantID != "" {
		return obj.Metadata.TenantID, nil
	}
	existing, err := s.subscriptions.GetByProviderSubscriptionID(obj.ID)
	if err != nil {
		return "", fmt.Errorf("subscription %s has no tenant reference", obj.ID)
	}
	return existing.TenantID, nil
}
