package billing

import "encoding/json"

// Webhook event types the service reacts to. Everything else is
// acknowledged and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is the outer webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the object payload of a completed checkout.
type CheckoutSession struct {
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	ClientRefID    string `json:"client_reference_id"`
}

// SubscriptionObject is the object payload of subscription lifecycle events.
type SubscriptionObject struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata struct {
		TenantID string `json:"tenant_id"`
	} `json:"metadata"`
}

// PriceID returns the first line item's price id.
func (s *SubscriptionObject) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}
