package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/notify"
	"github.com/careerlift/backend/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedEvent(t *testing.T, eventType string, data any) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{"id": "evt_" + eventType, "type": eventType, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	signer, err := crypto.NewSigner(testWebhookSecret)
	require.NoError(t, err)
	return body, signer.Sign(body)
}

func checkoutData(email, plan, providerID string) map[string]any {
	return map[string]any{
		"userEmail":  email,
		"userName":   "Jane Seeker",
		"planType":   plan,
		"providerId": providerID,
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	body, _ := signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterBasic, "p_1"))

	_, err := h.subs.HandleWebhook(context.Background(), body, "sha256=deadbeef")
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestWebhook_CheckoutCreatesUserAndSubscription(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	body, sig := signedEvent(t, "checkout.completed", checkoutData("Jane@Example.com", domain.PlanRecruiterPro, "p_1"))

	res, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.False(t, res.Duplicate)

	user, err := h.db.Users().FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleJobSeeker, user.Role)

	sub, err := h.subs.GetCurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, res.SubscriptionID, sub.ID)
	assert.Equal(t, domain.PlanRecruiterPro, sub.PlanType)
	assert.True(t, sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart))

	sent := h.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "jane@example.com", sent[0].To)
	assert.Equal(t, "ops@careerlift.test", sent[1].To)

	queue, err := h.subs.Queue(ctx, "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Recruiter Pro", queue[0].PlanName)
	assert.Equal(t, 25, queue[0].ApplicationsPerDay)
}

func TestWebhook_CheckoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	body, sig := signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterBasic, "p_1"))

	first, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	second, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)

	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)
	assert.True(t, second.Duplicate)
	assert.Len(t, h.notifier.sent(), 2, "replay sends nothing")
}

func TestWebhook_NewPlanReplacesPrevious(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")

	body, sig := signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterBasic, "p_1"))
	first, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	a := h.assign(t, first.SubscriptionID, r.ID)

	body, sig = signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterPro, "p_2"))
	second, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)

	old, err := h.db.Subscriptions().FindByID(ctx, first.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCanceled, old.Status)
	assert.NotNil(t, old.CanceledAt)

	oldAssignment, err := h.db.Assignments().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentInactive, oldAssignment.Status)

	queue, err := h.subs.Queue(ctx, domain.QueueUnassigned)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.SubscriptionID, queue[0].ID)
}

func TestWebhook_RenewAndCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	body, sig := signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterBasic, "p_1"))
	created, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	a := h.assign(t, created.SubscriptionID, r.ID)

	newEnd := time.Now().UTC().AddDate(0, 2, 0).Truncate(time.Second)
	body, sig = signedEvent(t, "subscription.renewed", map[string]any{"providerId": "p_1", "periodEnd": newEnd})
	_, err = h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	sub, err := h.db.Subscriptions().FindByID(ctx, created.SubscriptionID)
	require.NoError(t, err)
	assert.True(t, sub.CurrentPeriodEnd.Equal(newEnd))

	body, sig = signedEvent(t, "subscription.canceled", map[string]any{"providerId": "p_1"})
	_, err = h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	sub, err = h.db.Subscriptions().FindByID(ctx, created.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCanceled, sub.Status)

	view, err := h.db.Assignments().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentInactive, view.Status)

	body, sig = signedEvent(t, "subscription.canceled", map[string]any{"providerId": "p_unknown"})
	_, err = h.subs.HandleWebhook(ctx, body, sig)
	requireAppError(t, err, http.StatusNotFound)
}

func TestWebhook_ValidationAndUnknownEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	body, sig := signedEvent(t, "checkout.completed", checkoutData("not-an-email", domain.PlanRecruiterBasic, "p_1"))
	_, err := h.subs.HandleWebhook(ctx, body, sig)
	requireAppError(t, err, http.StatusBadRequest)

	body, sig = signedEvent(t, "checkout.completed", checkoutData("jane@example.com", "enterprise", "p_1"))
	_, err = h.subs.HandleWebhook(ctx, body, sig)
	requireAppError(t, err, http.StatusBadRequest)

	body, sig = signedEvent(t, "invoice.created", map[string]any{"amount": 100})
	res, err := h.subs.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.False(t, res.Handled)
}

func TestCreateCheckout(t *testing.T) {
	h := newHarness(t)
	caller := &domain.Identity{ID: "u1", Email: "jane@example.com", Role: domain.RoleJobSeeker}

	link, err := h.subs.CreateCheckout(context.Background(), caller, &domain.CreateCheckoutRequest{Plan: domain.PlanRecruiterStandard})
	require.NoError(t, err)
	assert.Contains(t, link.PaymentURL, "order_id="+link.OrderID)

	_, err = h.subs.CreateCheckout(context.Background(), caller, &domain.CreateCheckoutRequest{Plan: "free"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestSimulate(t *testing.T) {
	h := newHarness(t)
	sub, err := h.subs.Simulate(context.Background(), &domain.SimulateCheckoutRequest{
		Email: "demo@example.com", Plan: domain.PlanRecruiterBasic,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.PaymentProviderID)
	assert.Contains(t, *sub.PaymentProviderID, "sim_")
}

func TestQueue_FiltersAndDegrades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	_, s1 := h.seekerWithPlan("A", "a@example.com", domain.PlanRecruiterBasic)
	_, s2 := h.seekerWithPlan("B", "b@example.com", domain.PlanRecruiterPro)
	h.assign(t, s1.ID, r.ID)

	unassigned, err := h.subs.Queue(ctx, domain.QueueUnassigned)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, s2.ID, unassigned[0].ID)
	assert.Nil(t, unassigned[0].AssignmentID)

	assigned, err := h.subs.Queue(ctx, domain.QueueAssigned)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, r.ID, *assigned[0].AssignedRecruiter)

	all, err := h.subs.Queue(ctx, domain.QueueAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.subs.Queue(ctx, "everything")
	requireAppError(t, err, http.StatusBadRequest)

	h.db.Err = errors.New("connection refused")
	degraded, err := h.subs.Queue(ctx, domain.QueueAll)
	require.NoError(t, err)
	assert.Empty(t, degraded)
}

func TestExpireLapsed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	_, lapsed := h.seekerWithPlan("A", "a@example.com", domain.PlanRecruiterBasic)
	_, current := h.seekerWithPlan("B", "b@example.com", domain.PlanRecruiterBasic)
	a := h.assign(t, lapsed.ID, r.ID)

	h.subs.now = fixedClock(lapsed.CurrentPeriodEnd.Add(time.Hour))
	ended := *current
	ended.CurrentPeriodEnd = time.Now().AddDate(1, 0, 0)
	h.db.SetSubscription(ended)

	n, err := h.subs.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sub, err := h.db.Subscriptions().FindByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, sub.Status)
	view, err := h.db.Assignments().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentInactive, view.Status)
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	h := newHarness(t)
	_, sub := h.seekerWithPlan("A", "a@example.com", domain.PlanRecruiterBasic)
	h.subs.now = fixedClock(sub.CurrentPeriodEnd.Add(time.Minute))

	sweeper := NewExpirySweeper(h.subs, "@every 1h", discardLogger())
	sweeper.RunOnce(context.Background())

	got, err := h.db.Subscriptions().FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, got.Status)
}

func TestCheckoutNotification_SkipsAdminWithoutAddress(t *testing.T) {
	h := newHarness(t)
	h.subs.adminEmail = ""
	body, sig := signedEvent(t, "checkout.completed", checkoutData("jane@example.com", domain.PlanRecruiterBasic, "p_9"))

	_, err := h.subs.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)

	sent := h.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.KeyAdmin, sent[1].Key)
	assert.Empty(t, sent[1].To)
}
