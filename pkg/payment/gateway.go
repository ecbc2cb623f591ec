package payment

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/careerlift/backend/pkg/crypto"
)

// Gateway defines the interface for payment providers.
type Gateway interface {
	// CreatePaymentLink creates a checkout session/link for a plan.
	CreatePaymentLink(email, plan, orderID string, priceCents int64) (string, error)
	// VerifySignature checks the signature header sent with a webhook body.
	VerifySignature(payload []byte, signature string) bool
}

// MockGateway builds links against a hosted checkout page and verifies
// webhooks with a shared HMAC secret. No money moves through it.
type MockGateway struct {
	checkoutURL string
	signer      *crypto.Signer
}

// NewMockGateway creates a MockGateway. secret may be empty, in which case
// every webhook signature is rejected.
func NewMockGateway(checkoutURL, secret string) *MockGateway {
	g := &MockGateway{checkoutURL: checkoutURL}
	if s, err := crypto.NewSigner(secret); err == nil {
		g.signer = s
	}
	return g
}

func (g *MockGateway) CreatePaymentLink(email, plan, orderID string, priceCents int64) (string, error) {
	u, err := url.Parse(g.checkoutURL)
	if err != nil {
		return "", fmt.Errorf("invalid checkout url: %w", err)
	}
	q := u.Query()
	q.Set("order_id", orderID)
	q.Set("plan", plan)
	q.Set("email", email)
	q.Set("amount", fmt.Sprintf("%d", priceCents))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *MockGateway) VerifySignature(payload []byte, signature string) bool {
	if g.signer == nil {
		return false
	}
	return g.signer.Verify(payload, signature)
}

// Webhook event types.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionRenewed  = "subscription.renewed"
	EventSubscriptionCanceled = "subscription.canceled"
)

// Event is the webhook envelope posted by the payment provider.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CheckoutCompleted is the data of a checkout.completed event.
type CheckoutCompleted struct {
	UserEmail   string    `json:"userEmail" validate:"required,email"`
	UserName    string    `json:"userName"`
	PlanType    string    `json:"planType" validate:"required"`
	ProviderID  string    `json:"providerId" validate:"required"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// SubscriptionRenewed is the data of a subscription.renewed event.
type SubscriptionRenewed struct {
	ProviderID string    `json:"providerId" validate:"required"`
	PeriodEnd  time.Time `json:"periodEnd" validate:"required"`
}

// SubscriptionCanceled is the data of a subscription.canceled event.
type SubscriptionCanceled struct {
	ProviderID string `json:"providerId" validate:"required"`
}

// ParseEvent decodes a webhook body into its envelope.
func ParseEvent(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("webhook event has no type")
	}
	return &e, nil
}

// DecodeData unmarshals the event payload into dst.
func (e *Event) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("webhook event %s has no data", e.Type)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("invalid %s data: %w", e.Type, err)
	}
	return nil
}
