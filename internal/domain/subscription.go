package domain

import "time"

// Subscription lifecycle states.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

// Subscription represents a job seeker's paid recruiter plan.
type Subscription struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	PlanType           string     `json:"planType"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	PaymentProviderID  *string    `json:"paymentProviderId,omitempty"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Assignment queue filters for the admin work queue.
const (
	QueueUnassigned = "unassigned"
	QueueAssigned   = "assigned"
	QueueAll        = "all"
)

// QueueItem is one active recruiter subscription in the admin work queue.
type QueueItem struct {
	Subscription
	UserName           string  `json:"userName"`
	UserEmail          string  `json:"userEmail"`
	PlanName           string  `json:"planName"`
	AssignmentID       *string `json:"assignmentId,omitempty"`
	AssignedRecruiter  *string `json:"assignedRecruiterId,omitempty"`
	ApplicationsPerDay int     `json:"applicationsPerDay"`
}

// CreateCheckoutRequest is the input for starting a plan checkout.
type CreateCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=recruiter_basic recruiter_standard recruiter_pro"`
}

// SimulateCheckoutRequest lets an admin fabricate a completed checkout in development.
type SimulateCheckoutRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=200"`
	Plan  string `json:"plan" validate:"required,oneof=recruiter_basic recruiter_standard recruiter_pro"`
}

// PaymentLinkResponse returns the URL to redirect the user to for payment.
type PaymentLinkResponse struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}
