package service

import (
	"context"
	"time"

	"github.com/careerlift/backend/internal/domain"
)

// The store interfaces below are satisfied by the Postgres repositories and by
// the in-memory stores in internal/storetest. Lookups return (nil, nil) when
// nothing matches.

type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, role string) ([]*domain.User, error)
	UpdateRole(ctx context.Context, id, role string) (*domain.User, error)
}

type SubscriptionStore interface {
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	FindByProviderID(ctx context.Context, providerID string) (*domain.Subscription, error)
	FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	Activate(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, bool, error)
	Renew(ctx context.Context, providerID string, periodEnd time.Time) (*domain.Subscription, error)
	Cancel(ctx context.Context, providerID string) (*domain.Subscription, error)
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
	Queue(ctx context.Context, filter string) ([]domain.QueueItem, error)
}

type AssignmentStore interface {
	Upsert(ctx context.Context, in domain.AssignmentUpsert) (*domain.Assignment, bool, error)
	FindByID(ctx context.Context, id string) (*domain.AssignmentView, error)
	FindForRecruiter(ctx context.Context, id, recruiterID string) (*domain.AssignmentView, error)
	FindActiveForJobSeeker(ctx context.Context, jobSeekerID string) (*domain.AssignmentView, error)
	List(ctx context.Context, f domain.AssignmentFilter) ([]domain.AssignmentView, error)
	Update(ctx context.Context, id string, p domain.AssignmentPatch) (*domain.Assignment, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
	FindForRecruiter(ctx context.Context, id, recruiterID string) (*domain.Submission, error)
	List(ctx context.Context, f domain.SubmissionFilter) ([]domain.Submission, error)
	Update(ctx context.Context, id, recruiterID string, p domain.SubmissionPatch) (*domain.Submission, error)
	CountByStatus(ctx context.Context, jobSeekerID string) (map[string]int, error)
}

type StatsStore interface {
	Collect(ctx context.Context) (*domain.AdminStats, error)
}
