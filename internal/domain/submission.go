package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus is one of the labor-compliant application statuses. None of
// them may imply a guaranteed hiring outcome.
type SubmissionStatus string

const (
	StatusSubmitted                SubmissionStatus = "submitted"
	StatusConfirmed                SubmissionStatus = "confirmed"
	StatusUnderReview              SubmissionStatus = "under_review"
	StatusScreeningScheduled       SubmissionStatus = "screening_scheduled"
	StatusScreeningCompleted       SubmissionStatus = "screening_completed"
	StatusInterviewScheduled       SubmissionStatus = "interview_scheduled"
	StatusInterviewCompleted       SubmissionStatus = "interview_completed"
	StatusSecondInterviewScheduled SubmissionStatus = "second_interview_scheduled"
	StatusAssessmentScheduled      SubmissionStatus = "assessment_scheduled"
	StatusAssessmentCompleted      SubmissionStatus = "assessment_completed"
	StatusReferencesRequested      SubmissionStatus = "references_requested"
	StatusNotSelected              SubmissionStatus = "not_selected"
	StatusNoResponse               SubmissionStatus = "no_response"
	StatusPositionClosed           SubmissionStatus = "position_closed"
	StatusApplicationWithdrawn     SubmissionStatus = "application_withdrawn"
)

// submissionStatuses is ordered by how far an application has progressed.
var submissionStatuses = []SubmissionStatus{
	StatusSubmitted,
	StatusConfirmed,
	StatusUnderReview,
	StatusScreeningScheduled,
	StatusScreeningCompleted,
	StatusInterviewScheduled,
	StatusInterviewCompleted,
	StatusSecondInterviewScheduled,
	StatusAssessmentScheduled,
	StatusAssessmentCompleted,
	StatusReferencesRequested,
	StatusNotSelected,
	StatusNoResponse,
	StatusPositionClosed,
	StatusApplicationWithdrawn,
}

// SubmissionStatuses returns the closed set of valid statuses.
func SubmissionStatuses() []SubmissionStatus {
	out := make([]SubmissionStatus, len(submissionStatuses))
	copy(out, submissionStatuses)
	return out
}

// SubmissionStatusNames returns the valid statuses as plain strings.
func SubmissionStatusNames() []string {
	out := make([]string, len(submissionStatuses))
	for i, s := range submissionStatuses {
		out[i] = string(s)
	}
	return out
}

// ParseSubmissionStatus converts a raw string to a SubmissionStatus. Matching
// is exact and case-sensitive.
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	for _, st := range submissionStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// InvalidStatusError builds the 400 returned for a status outside the closed set.
func InvalidStatusError(s string) *AppError {
	return ErrValidation(fmt.Sprintf("invalid status %q", s)).
		WithDetail("validStatuses", SubmissionStatusNames())
}

// Submission is one job application a recruiter logged for an assigned job seeker.
type Submission struct {
	ID               string           `json:"id"`
	AssignmentID     string           `json:"assignmentId"`
	JobSeekerID      string           `json:"jobSeekerId"`
	RecruiterID      string           `json:"recruiterId"`
	JobTitle         string           `json:"jobTitle"`
	CompanyName      string           `json:"companyName"`
	JobURL           *string          `json:"jobUrl,omitempty"`
	JobDescription   *string          `json:"jobDescription,omitempty"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	Status           SubmissionStatus `json:"status"`
	FeedbackReceived bool             `json:"feedbackReceived"`
	FeedbackDate     *time.Time       `json:"feedbackDate,omitempty"`
	FeedbackNotes    *string          `json:"feedbackNotes,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	StatusHistory    json.RawMessage  `json:"statusHistory,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// StatusChange is one entry of a submission's status history.
type StatusChange struct {
	From SubmissionStatus `json:"from"`
	To   SubmissionStatus `json:"to"`
	At   time.Time        `json:"at"`
	By   string           `json:"by"`
}

// SubmissionPatch lists updatable fields; nil means unchanged.
type SubmissionPatch struct {
	Status           *SubmissionStatus
	Notes            *string
	FeedbackReceived *bool
	FeedbackDate     *time.Time
	FeedbackNotes    *string
	History          *StatusChange
}

// Empty reports whether the patch changes nothing.
func (p SubmissionPatch) Empty() bool {
	return p.Status == nil && p.Notes == nil && p.FeedbackReceived == nil &&
		p.FeedbackDate == nil && p.FeedbackNotes == nil
}

// Submission list limits.
const (
	DefaultSubmissionLimit = 50
	MaxSubmissionLimit     = 200
)

// SubmissionFilter scopes a listing to one recruiter or one job seeker.
type SubmissionFilter struct {
	RecruiterID  string
	JobSeekerID  string
	AssignmentID string
	Status       SubmissionStatus
	Limit        int
}

// ClampLimit applies the default and hard ceiling to a caller-supplied limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSubmissionLimit
	}
	if limit > MaxSubmissionLimit {
		return MaxSubmissionLimit
	}
	return limit
}

// CreateSubmissionRequest is the recruiter input for logging an application.
type CreateSubmissionRequest struct {
	AssignmentID    string  `json:"assignmentId" validate:"required"`
	JobTitle        string  `json:"jobTitle" validate:"required,max=300"`
	CompanyName     string  `json:"companyName" validate:"required,max=300"`
	JobURL          *string `json:"jobUrl" validate:"omitempty,url,max=2048"`
	JobDescription  *string `json:"jobDescription" validate:"omitempty,max=20000"`
	Notes           *string `json:"notes" validate:"omitempty,max=5000"`
	ApplicationDate *string `json:"applicationDate"`
	Status          *string `json:"status"`
}

// UpdateSubmissionRequest is the recruiter input for progressing an application.
type UpdateSubmissionRequest struct {
	Status           *string `json:"status"`
	Notes            *string `json:"notes" validate:"omitempty,max=5000"`
	FeedbackReceived *bool   `json:"feedbackReceived"`
	FeedbackDate     *string `json:"feedbackDate"`
	FeedbackNotes    *string `json:"feedbackNotes" validate:"omitempty,max=5000"`
}

// ParseDate accepts either a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
