package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/metrics"
	"github.com/go-playground/validator/v10"
)

// SubmissionService records the applications recruiters submit for job seekers.
type SubmissionService struct {
	submissions SubmissionStore
	assignments AssignmentStore
	policy      domain.TransitionPolicy
	events      events.Publisher
	validate    *validator.Validate
	log         *slog.Logger
	now         func() time.Time
}

func NewSubmissionService(
	submissions SubmissionStore,
	assignments AssignmentStore,
	policy domain.TransitionPolicy,
	publisher events.Publisher,
	log *slog.Logger,
) *SubmissionService {
	if policy == nil {
		policy = domain.OpenTransitions{}
	}
	return &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		policy:      policy,
		events:      publisher,
		validate:    newValidator(),
		log:         log,
		now:         time.Now,
	}
}

func parseStatus(raw string) (domain.SubmissionStatus, error) {
	st, err := domain.ParseSubmissionStatus(raw)
	if err != nil {
		return "", domain.InvalidStatusError(raw)
	}
	return st, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// Create logs a new application under one of the caller's active assignments.
func (s *SubmissionService) Create(ctx context.Context, recruiterID string, req *domain.CreateSubmissionRequest) (*domain.Submission, error) {
	req.JobTitle = strings.TrimSpace(req.JobTitle)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.JobURL = trimmed(req.JobURL)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	status := domain.StatusSubmitted
	if req.Status != nil && *req.Status != "" {
		st, err := parseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}

	submittedAt := s.now().UTC()
	if req.ApplicationDate != nil && *req.ApplicationDate != "" {
		t, err := domain.ParseDate(*req.ApplicationDate)
		if err != nil {
			return nil, domain.ErrValidation("applicationDate must be YYYY-MM-DD or RFC 3339")
		}
		submittedAt = t
	}

	sub, err := s.submissions.Create(ctx, &domain.Submission{
		ID:             domain.NewID(),
		AssignmentID:   req.AssignmentID,
		RecruiterID:    recruiterID,
		JobTitle:       req.JobTitle,
		CompanyName:    req.CompanyName,
		JobURL:         req.JobURL,
		JobDescription: trimmed(req.JobDescription),
		SubmittedAt:    submittedAt,
		Status:         status,
		Notes:          trimmed(req.Notes),
	})
	if err != nil {
		return nil, domain.ErrInternal("failed to create submission", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("assignment not found")
	}

	metrics.SubmissionsCreated.Inc()
	s.log.Info("submission created",
		"submission_id", sub.ID, "assignment_id", sub.AssignmentID, "recruiter_id", recruiterID)
	s.events.Publish(ctx, events.Event{
		Type:         events.SubmissionCreated,
		SubmissionID: sub.ID,
		AssignmentID: sub.AssignmentID,
		Status:       string(sub.Status),
	}, sub.JobSeekerID, sub.RecruiterID)
	return sub, nil
}

// ListQuery is the raw listing input taken from a request.
type ListQuery struct {
	AssignmentID string
	Status       string
	Limit        int
}

func (q ListQuery) filter() (domain.SubmissionFilter, error) {
	f := domain.SubmissionFilter{
		AssignmentID: q.AssignmentID,
		Limit:        domain.ClampLimit(q.Limit),
	}
	if q.Status != "" {
		st, err := parseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	return f, nil
}

// ListForRecruiter lists the caller's submissions, newest first.
func (s *SubmissionService) ListForRecruiter(ctx context.Context, recruiterID string, q ListQuery) ([]domain.Submission, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.RecruiterID = recruiterID
	return s.listOrEmpty(ctx, f), nil
}

// ListForJobSeeker lists the submissions made on the caller's behalf.
func (s *SubmissionService) ListForJobSeeker(ctx context.Context, jobSeekerID string, q ListQuery) ([]domain.Submission, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.JobSeekerID = jobSeekerID
	return s.listOrEmpty(ctx, f), nil
}

// listOrEmpty serves listing panels: a store failure is logged and yields an
// empty list.
func (s *SubmissionService) listOrEmpty(ctx context.Context, f domain.SubmissionFilter) []domain.Submission {
	subs, err := s.submissions.List(ctx, f)
	if err != nil {
		s.log.Error("submission list unavailable",
			"recruiter_id", f.RecruiterID, "job_seeker_id", f.JobSeekerID, "error", err)
		return []domain.Submission{}
	}
	return subs
}

func (s *SubmissionService) list(ctx context.Context, f domain.SubmissionFilter) ([]domain.Submission, error) {
	subs, err := s.submissions.List(ctx, f)
	if err != nil {
		return nil, domain.ErrInternal("failed to list submissions", err)
	}
	return subs, nil
}

// ExportForJobSeeker returns every submission made for the job seeker. Unlike
// the listings, a store failure is an error so a partial report is never served.
func (s *SubmissionService) ExportForJobSeeker(ctx context.Context, jobSeekerID string) ([]domain.Submission, error) {
	return s.list(ctx, domain.SubmissionFilter{JobSeekerID: jobSeekerID})
}

// ExportForAssignment returns every submission under an assignment (admin only).
func (s *SubmissionService) ExportForAssignment(ctx context.Context, assignmentID string) (*domain.AssignmentView, []domain.Submission, error) {
	view, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, domain.ErrInternal("failed to load assignment", err)
	}
	if view == nil {
		return nil, nil, domain.ErrNotFound("assignment not found")
	}
	subs, err := s.list(ctx, domain.SubmissionFilter{AssignmentID: assignmentID})
	if err != nil {
		return nil, nil, err
	}
	return view, subs, nil
}

// Get returns one of the caller's submissions.
func (s *SubmissionService) Get(ctx context.Context, id, recruiterID string) (*domain.Submission, error) {
	sub, err := s.submissions.FindForRecruiter(ctx, id, recruiterID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load submission", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("submission not found")
	}
	return sub, nil
}

// Update changes any subset of status, notes and feedback on one of the
// caller's submissions. A status change is checked against the transition
// policy and appended to the status history.
func (s *SubmissionService) Update(ctx context.Context, id, recruiterID string, req *domain.UpdateSubmissionRequest) (*domain.Submission, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id, recruiterID)
	if err != nil {
		return nil, err
	}

	patch := domain.SubmissionPatch{
		Notes:            req.Notes,
		FeedbackReceived: req.FeedbackReceived,
		FeedbackNotes:    req.FeedbackNotes,
	}
	if req.Status != nil {
		st, err := parseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if !s.policy.Allows(current.Status, st) {
			return nil, domain.ErrValidation(fmt.Sprintf("cannot move submission from %s to %s", current.Status, st)).
				WithDetail("transitionPolicy", s.policy.Name())
		}
		patch.Status = &st
		if st != current.Status {
			patch.History = &domain.StatusChange{From: current.Status, To: st, At: s.now().UTC(), By: recruiterID}
		}
	}
	if req.FeedbackDate != nil {
		if *req.FeedbackDate == "" {
			return nil, domain.ErrValidation("feedbackDate must not be empty")
		}
		t, err := domain.ParseDate(*req.FeedbackDate)
		if err != nil {
			return nil, domain.ErrValidation("feedbackDate must be YYYY-MM-DD or RFC 3339")
		}
		patch.FeedbackDate = &t
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.submissions.Update(ctx, id, recruiterID, patch)
	if err != nil {
		return nil, domain.ErrInternal("failed to update submission", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound("submission not found")
	}

	if patch.History != nil {
		metrics.SubmissionStatusChanges.WithLabelValues(string(updated.Status)).Inc()
	}
	s.log.Info("submission updated", "submission_id", id, "recruiter_id", recruiterID, "status", updated.Status)
	e := events.Event{
		Type:         events.SubmissionUpdated,
		SubmissionID: updated.ID,
		AssignmentID: updated.AssignmentID,
		Status:       string(updated.Status),
	}
	if patch.History != nil {
		e.From = string(patch.History.From)
	}
	s.events.Publish(ctx, e, updated.JobSeekerID, updated.RecruiterID)
	return updated, nil
}
