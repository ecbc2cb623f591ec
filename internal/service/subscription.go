package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/metrics"
	"github.com/careerlift/backend/internal/notify"
	"github.com/careerlift/backend/pkg/payment"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Notifier delivers transactional email and reports per-message outcomes.
type Notifier interface {
	Dispatch(ctx context.Context, msgs ...notify.Message) []notify.Outcome
}

// WebhookResult summarizes how a payment webhook was applied.
type WebhookResult struct {
	Event          string `json:"event"`
	Handled        bool   `json:"handled"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

type SubscriptionService struct {
	subs       SubscriptionStore
	users      UserStore
	payment    payment.Gateway
	notifier   Notifier
	adminEmail string
	validate   *validator.Validate
	log        *slog.Logger
	now        func() time.Time
}

func NewSubscriptionService(subs SubscriptionStore, users UserStore, gw payment.Gateway, notifier Notifier, adminEmail string, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subs:       subs,
		users:      users,
		payment:    gw,
		notifier:   notifier,
		adminEmail: adminEmail,
		validate:   newValidator(),
		log:        log,
		now:        time.Now,
	}
}

// GetCurrentSubscription returns the active subscription for a user, or nil.
func (s *SubscriptionService) GetCurrentSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.subs.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load subscription", err)
	}
	return sub, nil
}

// CreateCheckout creates a payment link for a recruiter plan.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, caller *domain.Identity, req *domain.CreateCheckoutRequest) (*domain.PaymentLinkResponse, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	plan, ok := domain.GetPlan(req.Plan)
	if !ok {
		return nil, domain.ErrBadRequest("invalid plan")
	}

	orderID := uuid.New().String()
	paymentURL, err := s.payment.CreatePaymentLink(caller.Email, plan.ID, orderID, int64(plan.PriceUSD))
	if err != nil {
		return nil, domain.ErrInternal("failed to create payment link", err)
	}

	// The subscription itself is only created when the provider confirms via webhook.
	return &domain.PaymentLinkResponse{
		PaymentURL: paymentURL,
		OrderID:    orderID,
	}, nil
}

// HandleWebhook verifies and applies one payment provider event. Unknown
// event types are acknowledged without effect.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !s.payment.VerifySignature(body, signature) {
		return nil, domain.ErrUnauthorized("invalid webhook signature")
	}
	event, err := payment.ParseEvent(body)
	if err != nil {
		return nil, domain.ErrBadRequest(err.Error())
	}

	result := &WebhookResult{Event: event.Type}
	switch event.Type {
	case payment.EventCheckoutCompleted:
		var data payment.CheckoutCompleted
		if err := s.decodeEvent(event, &data); err != nil {
			return nil, err
		}
		sub, created, err := s.CompleteCheckout(ctx, data)
		if err != nil {
			return nil, err
		}
		result.Handled, result.SubscriptionID, result.Duplicate = true, sub.ID, !created

	case payment.EventSubscriptionRenewed:
		var data payment.SubscriptionRenewed
		if err := s.decodeEvent(event, &data); err != nil {
			return nil, err
		}
		sub, err := s.subs.Renew(ctx, data.ProviderID, data.PeriodEnd)
		if err != nil {
			if appErr, ok := domain.AsAppError(err); ok {
				return nil, appErr
			}
			return nil, domain.ErrInternal("failed to renew subscription", err)
		}
		if sub == nil {
			return nil, domain.ErrNotFound("subscription not found")
		}
		s.log.Info("subscription renewed", "subscription_id", sub.ID, "period_end", sub.CurrentPeriodEnd)
		result.Handled, result.SubscriptionID = true, sub.ID

	case payment.EventSubscriptionCanceled:
		var data payment.SubscriptionCanceled
		if err := s.decodeEvent(event, &data); err != nil {
			return nil, err
		}
		sub, err := s.subs.Cancel(ctx, data.ProviderID)
		if err != nil {
			return nil, domain.ErrInternal("failed to cancel subscription", err)
		}
		if sub == nil {
			return nil, domain.ErrNotFound("subscription not found")
		}
		s.log.Info("subscription canceled", "subscription_id", sub.ID)
		result.Handled, result.SubscriptionID = true, sub.ID

	default:
		s.log.Info("webhook event ignored", "type", event.Type, "event_id", event.ID)
	}
	return result, nil
}

func (s *SubscriptionService) decodeEvent(e *payment.Event, dst any) error {
	if err := e.DecodeData(dst); err != nil {
		return domain.ErrBadRequest(err.Error())
	}
	return validateStruct(s.validate, dst)
}

// CompleteCheckout records a paid recruiter plan: the job seeker is created on
// first purchase, any previous active recruiter plan is replaced, and the job
// seeker and admin are notified. Replaying the same provider id returns the
// existing subscription with created=false and sends nothing.
func (s *SubscriptionService) CompleteCheckout(ctx context.Context, data payment.CheckoutCompleted) (*domain.Subscription, bool, error) {
	plan, ok := domain.GetPlan(data.PlanType)
	if !ok {
		return nil, false, domain.ErrValidation(fmt.Sprintf("unknown plan %q", data.PlanType))
	}

	user, err := s.users.Upsert(ctx, &domain.User{
		ID:    domain.NewID(),
		Email: strings.ToLower(strings.TrimSpace(data.UserEmail)),
		Name:  data.UserName,
		Role:  domain.RoleJobSeeker,
	})
	if err != nil {
		return nil, false, domain.ErrInternal("failed to record customer", err)
	}

	start := data.PeriodStart
	if start.IsZero() {
		start = s.now().UTC()
	}
	end := data.PeriodEnd
	if end.IsZero() || !end.After(start) {
		end = start.AddDate(0, 1, 0)
	}

	providerID := data.ProviderID
	sub, created, err := s.subs.Activate(ctx, &domain.Subscription{
		ID:                 domain.NewID(),
		UserID:             user.ID,
		PlanType:           plan.ID,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		PaymentProviderID:  &providerID,
	})
	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok {
			return nil, false, appErr
		}
		return nil, false, domain.ErrInternal("failed to record subscription", err)
	}
	if !created {
		s.log.Info("duplicate checkout ignored", "provider_id", providerID, "subscription_id", sub.ID)
		return sub, false, nil
	}

	s.log.Info("subscription activated", "subscription_id", sub.ID, "user_id", user.ID, "plan", plan.ID)
	outcomes := s.notifier.Dispatch(ctx, notify.CheckoutMessages(notify.CheckoutNotice{
		Name:               user.Name,
		Email:              user.Email,
		PlanName:           plan.Name,
		ApplicationsPerDay: plan.ApplicationsPerDay,
		SubscriptionID:     sub.ID,
		PeriodEnd:          sub.CurrentPeriodEnd,
		AdminEmail:         s.adminEmail,
	})...)
	s.log.Debug("checkout notifications", "subscription_id", sub.ID, "status", notify.StatusByKey(outcomes))
	return sub, true, nil
}

// Simulate fabricates a completed checkout for development (admin only).
func (s *SubscriptionService) Simulate(ctx context.Context, req *domain.SimulateCheckoutRequest) (*domain.Subscription, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	sub, _, err := s.CompleteCheckout(ctx, payment.CheckoutCompleted{
		UserEmail:  req.Email,
		UserName:   req.Name,
		PlanType:   req.Plan,
		ProviderID: "sim_" + uuid.New().String(),
	})
	return sub, err
}

// Queue lists active recruiter subscriptions for the admin work queue. Store
// failures are logged and produce an empty list.
func (s *SubscriptionService) Queue(ctx context.Context, filter string) ([]domain.QueueItem, error) {
	switch filter {
	case "":
		filter = domain.QueueUnassigned
	case domain.QueueUnassigned, domain.QueueAssigned, domain.QueueAll:
	default:
		return nil, domain.ErrValidation("assignment must be one of: unassigned assigned all")
	}

	items, err := s.subs.Queue(ctx, filter)
	if err != nil {
		s.log.Error("subscription queue unavailable", "filter", filter, "error", err)
		return []domain.QueueItem{}, nil
	}
	return items, nil
}

// ExpireLapsed expires subscriptions whose paid period has ended.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context) (int, error) {
	n, err := s.subs.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	if n > 0 {
		metrics.SubscriptionsExpired.Add(float64(n))
		s.log.Info("subscriptions expired", "count", n)
	}
	return n, nil
}
