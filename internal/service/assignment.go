package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/metrics"
	"github.com/careerlift/backend/internal/notify"
	"github.com/go-playground/validator/v10"
)

// AssignResult is returned by Assign.
type AssignResult struct {
	Assignment  *domain.Assignment       `json:"assignment"`
	Reassigned  bool                     `json:"reassigned"`
	EmailStatus map[string]notify.Status `json:"emailStatus"`
}

// AssignmentService binds subscriptions to recruiters.
type AssignmentService struct {
	assignments   AssignmentStore
	subscriptions SubscriptionStore
	users         UserStore
	submissions   SubmissionStore
	notifier      Notifier
	events        events.Publisher
	validate      *validator.Validate
	log           *slog.Logger
}

func NewAssignmentService(
	assignments AssignmentStore,
	subscriptions SubscriptionStore,
	users UserStore,
	submissions SubmissionStore,
	notifier Notifier,
	publisher events.Publisher,
	log *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignments:   assignments,
		subscriptions: subscriptions,
		users:         users,
		submissions:   submissions,
		notifier:      notifier,
		events:        publisher,
		validate:      newValidator(),
		log:           log,
	}
}

// Assign creates the assignment for a subscription, or reassigns it when one
// already exists. Email delivery is reported in the result and never fails
// the call.
func (s *AssignmentService) Assign(ctx context.Context, req *domain.CreateAssignmentRequest) (*AssignResult, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.FindByID(ctx, req.SubscriptionID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load subscription", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("subscription not found")
	}
	if sub.Status != domain.SubscriptionActive {
		return nil, domain.ErrBadRequest("subscription is not active")
	}
	plan, ok := domain.GetPlan(sub.PlanType)
	if !ok {
		return nil, domain.ErrBadRequest("subscription is not a recruiter plan")
	}

	recruiter, err := s.requireRecruiter(ctx, req.RecruiterID)
	if err != nil {
		return nil, err
	}
	jobSeeker, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load job seeker", err)
	}

	a, reassigned, err := s.assignments.Upsert(ctx, domain.AssignmentUpsert{
		SubscriptionID:     sub.ID,
		JobSeekerID:        sub.UserID,
		RecruiterID:        recruiter.ID,
		PlanType:           plan.ID,
		ApplicationsPerDay: plan.ApplicationsPerDay,
		Notes:              req.Notes,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotActive) {
			return nil, domain.ErrBadRequest("subscription is not active")
		}
		return nil, domain.ErrInternal("failed to save assignment", err)
	}

	kind := "created"
	if reassigned {
		kind = "reassigned"
	}
	metrics.Assignments.WithLabelValues(kind).Inc()
	s.log.Info("recruiter assigned",
		"assignment_id", a.ID, "subscription_id", sub.ID,
		"recruiter_id", recruiter.ID, "reassigned", reassigned)

	notice := notify.AssignmentNotice{
		RecruiterName:      recruiter.Name,
		RecruiterEmail:     recruiter.Email,
		PlanName:           plan.Name,
		ApplicationsPerDay: a.ApplicationsPerDay,
		Reassigned:         reassigned,
	}
	if jobSeeker != nil {
		notice.JobSeekerName, notice.JobSeekerEmail = jobSeeker.Name, jobSeeker.Email
	}
	if a.Notes != nil {
		notice.Notes = *a.Notes
	}
	outcomes := s.notifier.Dispatch(ctx, notify.AssignmentMessages(notice)...)

	s.events.Publish(ctx, events.Event{Type: events.AssignmentChanged, AssignmentID: a.ID, Status: a.Status},
		a.JobSeekerID, a.RecruiterID)

	return &AssignResult{
		Assignment:  a,
		Reassigned:  reassigned,
		EmailStatus: notify.StatusByKey(outcomes),
	}, nil
}

func (s *AssignmentService) requireRecruiter(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to load recruiter", err)
	}
	if u == nil || u.Role != domain.RoleRecruiter {
		return nil, domain.ErrBadRequest("invalid recruiter")
	}
	return u, nil
}

// List returns assignment views for admins. Store failures are logged and
// produce an empty list.
func (s *AssignmentService) List(ctx context.Context, f domain.AssignmentFilter) ([]domain.AssignmentView, error) {
	if f.Status != "" && f.Status != domain.AssignmentActive && f.Status != domain.AssignmentInactive {
		return nil, domain.ErrValidation("status must be one of: active inactive")
	}
	views, err := s.assignments.List(ctx, f)
	if err != nil {
		s.log.Error("assignment list unavailable", "status", f.Status, "recruiter_id", f.RecruiterID, "error", err)
		return []domain.AssignmentView{}, nil
	}
	return views, nil
}

// Get returns one assignment view for admins.
func (s *AssignmentService) Get(ctx context.Context, id string) (*domain.AssignmentView, error) {
	v, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to load assignment", err)
	}
	if v == nil {
		return nil, domain.ErrNotFound("assignment not found")
	}
	return v, nil
}

// ListForRecruiter returns the caller's assignments. Without an explicit
// status filter only active assignments are listed.
func (s *AssignmentService) ListForRecruiter(ctx context.Context, recruiterID, status string) ([]domain.AssignmentView, error) {
	if status == "" {
		status = domain.AssignmentActive
	}
	return s.List(ctx, domain.AssignmentFilter{Status: status, RecruiterID: recruiterID})
}

// GetForRecruiter returns an assignment only if it belongs to the caller.
func (s *AssignmentService) GetForRecruiter(ctx context.Context, id, recruiterID string) (*domain.AssignmentView, error) {
	v, err := s.assignments.FindForRecruiter(ctx, id, recruiterID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load assignment", err)
	}
	if v == nil {
		return nil, domain.ErrNotFound("assignment not found")
	}
	return v, nil
}

// Update applies an admin edit. Omitted fields are left unchanged.
func (s *AssignmentService) Update(ctx context.Context, id string, req *domain.UpdateAssignmentRequest) (*domain.Assignment, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if req.RecruiterID != nil {
		if _, err := s.requireRecruiter(ctx, *req.RecruiterID); err != nil {
			return nil, err
		}
	}

	a, err := s.assignments.Update(ctx, id, domain.AssignmentPatch{
		RecruiterID: req.RecruiterID,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, domain.ErrInternal("failed to update assignment", err)
	}
	if a == nil {
		return nil, domain.ErrNotFound("assignment not found")
	}
	s.log.Info("assignment updated", "assignment_id", a.ID, "status", a.Status, "recruiter_id", a.RecruiterID)
	s.events.Publish(ctx, events.Event{Type: events.AssignmentChanged, AssignmentID: a.ID, Status: a.Status},
		a.JobSeekerID, a.RecruiterID)
	return a, nil
}

// Deactivate soft-deletes an assignment. Its submissions are kept.
func (s *AssignmentService) Deactivate(ctx context.Context, id string) (*domain.Assignment, error) {
	inactive := domain.AssignmentInactive
	return s.Update(ctx, id, &domain.UpdateAssignmentRequest{Status: &inactive})
}

// Overview is the job seeker's roll-up of their recruiter service.
func (s *AssignmentService) Overview(ctx context.Context, jobSeekerID string) (*domain.JobSeekerOverview, error) {
	sub, err := s.subscriptions.FindActiveByUserID(ctx, jobSeekerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load subscription", err)
	}
	view, err := s.assignments.FindActiveForJobSeeker(ctx, jobSeekerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load assignment", err)
	}
	counts, err := s.submissions.CountByStatus(ctx, jobSeekerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to count submissions", err)
	}
	return &domain.JobSeekerOverview{
		Subscription: sub,
		Assignment:   view,
		StatusCounts: counts,
	}, nil
}
