package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/notify"
	"github.com/careerlift/backend/internal/storetest"
	"github.com/careerlift/backend/pkg/payment"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier records dispatched messages. Messages whose recipient is
// listed in fail are reported as failed.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail map[string]bool
}

func (n *recordingNotifier) Dispatch(_ context.Context, msgs ...notify.Message) []notify.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Outcome, len(msgs))
	for i, m := range msgs {
		n.msgs = append(n.msgs, m)
		status := notify.StatusSent
		switch {
		case m.To == "":
			status = notify.StatusSkipped
		case n.fail[m.To]:
			status = notify.StatusFailed
		}
		out[i] = notify.Outcome{Key: m.Key, To: m.To, Status: status}
	}
	return out
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type publishedEvent struct {
	event events.Event
	users []string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{e, userIDs})
}

type harness struct {
	db          *storetest.DB
	notifier    *recordingNotifier
	publisher   *recordingPublisher
	auth        *AuthService
	subs        *SubscriptionService
	assignments *AssignmentService
	submissions *SubmissionService
	admin       *domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPolicy(t, domain.OpenTransitions{})
}

func newHarnessWithPolicy(t *testing.T, policy domain.TransitionPolicy) *harness {
	t.Helper()
	db := storetest.New()
	n := &recordingNotifier{fail: map[string]bool{}}
	p := &recordingPublisher{}
	log := discardLogger()
	gw := payment.NewMockGateway("https://pay.example.com/checkout", testWebhookSecret)

	h := &harness{
		db:        db,
		notifier:  n,
		publisher: p,
		auth:      NewAuthService("jwt-secret", db.Users(), log),
		subs:      NewSubscriptionService(db.Subscriptions(), db.Users(), gw, n, "ops@careerlift.test", log),
		assignments: NewAssignmentService(db.Assignments(), db.Subscriptions(), db.Users(), db.Submissions(),
			n, p, log),
		submissions: NewSubmissionService(db.Submissions(), db.Assignments(), policy, p, log),
	}
	h.admin = db.AddUser(domain.RoleAdmin, "admin@careerlift.test", "Ada Admin")
	return h
}

// seekerWithPlan creates a job seeker holding an active subscription on plan.
func (h *harness) seekerWithPlan(name, email, plan string) (*domain.User, *domain.Subscription) {
	u := h.db.AddUser(domain.RoleJobSeeker, email, name)
	return u, h.db.AddSubscription(u.ID, plan, domain.SubscriptionActive)
}

func (h *harness) assign(t *testing.T, subID, recruiterID string) *domain.Assignment {
	t.Helper()
	res, err := h.assignments.Assign(context.Background(), &domain.CreateAssignmentRequest{
		SubscriptionID: subID,
		RecruiterID:    recruiterID,
	})
	require.NoError(t, err)
	return res.Assignment
}

func (h *harness) submit(t *testing.T, recruiterID, assignmentID, title string) *domain.Submission {
	t.Helper()
	sub, err := h.submissions.Create(context.Background(), recruiterID, &domain.CreateSubmissionRequest{
		AssignmentID: assignmentID,
		JobTitle:     title,
		CompanyName:  "Acme Corp",
	})
	require.NoError(t, err)
	return sub
}

func requireAppError(t *testing.T, err error, code int) *domain.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected *domain.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func ptr[T any](v T) *T { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
