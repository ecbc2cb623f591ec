package domain

import "time"

// Assignment states. Assignments are soft-deactivated, never deleted.
const (
	AssignmentActive   = "active"
	AssignmentInactive = "inactive"
)

// Assignment binds one subscription (and its job seeker) to one recruiter.
// PlanType and ApplicationsPerDay are copied from the subscription when the
// assignment is written, so later plan changes do not move an agreed quota.
type Assignment struct {
	ID                 string    `json:"id"`
	SubscriptionID     string    `json:"subscriptionId"`
	JobSeekerID        string    `json:"jobSeekerId"`
	RecruiterID        string    `json:"recruiterId"`
	Status             string    `json:"status"`
	PlanType           string    `json:"planType"`
	ApplicationsPerDay int       `json:"applicationsPerDay"`
	Notes              *string   `json:"notes,omitempty"`
	AssignedAt         time.Time `json:"assignedAt"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// AssignmentView is an assignment joined with display fields and roll-up counters.
type AssignmentView struct {
	Assignment
	JobSeekerName       string    `json:"jobSeekerName"`
	JobSeekerEmail      string    `json:"jobSeekerEmail"`
	RecruiterName       string    `json:"recruiterName"`
	RecruiterEmail      string    `json:"recruiterEmail"`
	SubscriptionStatus  string    `json:"subscriptionStatus"`
	CurrentPeriodEnd    time.Time `json:"currentPeriodEnd"`
	TodayCount          int       `json:"todayCount"`
	TotalCount          int       `json:"totalCount"`
	RemainingToday      int       `json:"remainingToday"`
	SubscriptionPlanNow string    `json:"subscriptionPlanType"`
}

// FillRemaining derives RemainingToday from the quota and today's count.
func (v *AssignmentView) FillRemaining() {
	v.RemainingToday = v.ApplicationsPerDay - v.TodayCount
	if v.RemainingToday < 0 {
		v.RemainingToday = 0
	}
}

// AssignmentUpsert carries everything needed to create or reassign the
// assignment of a subscription in one statement.
type AssignmentUpsert struct {
	SubscriptionID     string
	JobSeekerID        string
	RecruiterID        string
	PlanType           string
	ApplicationsPerDay int
	Notes              *string
}

// AssignmentPatch lists independently settable fields; nil means unchanged.
type AssignmentPatch struct {
	RecruiterID *string
	Status      *string
	Notes       *string
}

// AssignmentFilter narrows admin and recruiter assignment listings.
type AssignmentFilter struct {
	Status      string
	RecruiterID string
}

// CreateAssignmentRequest is the admin input for creating or reassigning.
type CreateAssignmentRequest struct {
	SubscriptionID string  `json:"subscriptionId" validate:"required"`
	RecruiterID    string  `json:"recruiterId" validate:"required"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateAssignmentRequest is the admin input for editing an assignment.
type UpdateAssignmentRequest struct {
	RecruiterID *string `json:"recruiterId" validate:"omitempty,min=1"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

// JobSeekerOverview is the job seeker's read-only roll-up of their recruiter service.
type JobSeekerOverview struct {
	Subscription *Subscription   `json:"subscription"`
	Assignment   *AssignmentView `json:"assignment"`
	StatusCounts map[string]int  `json:"statusCounts"`
}
