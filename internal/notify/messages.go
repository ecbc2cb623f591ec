package notify

import "time"

// Recipient slots used as Message keys.
const (
	KeyJobSeeker = "jobSeeker"
	KeyRecruiter = "recruiter"
	KeyAdmin     = "admin"
)

// AssignmentNotice is the template data for both assignment emails.
type AssignmentNotice struct {
	JobSeekerName      string
	JobSeekerEmail     string
	RecruiterName      string
	RecruiterEmail     string
	PlanName           string
	ApplicationsPerDay int
	Notes              string
	Reassigned         bool
}

// AssignmentMessages builds the job seeker confirmation and the recruiter notification.
func AssignmentMessages(n AssignmentNotice) []Message {
	jsSubject := "Your CareerLift recruiter has been assigned"
	if n.Reassigned {
		jsSubject = "Your CareerLift recruiter has changed"
	}
	return []Message{
		{
			Key:      KeyJobSeeker,
			Kind:     "assignment.jobseeker",
			To:       n.JobSeekerEmail,
			Subject:  jsSubject,
			Template: "assignment_jobseeker.html",
			Data:     n,
		},
		{
			Key:      KeyRecruiter,
			Kind:     "assignment.recruiter",
			To:       n.RecruiterEmail,
			Subject:  "New job seeker assigned: " + n.JobSeekerName,
			Template: "assignment_recruiter.html",
			Data:     n,
		},
	}
}

// CheckoutNotice is the template data for the emails sent after a completed checkout.
type CheckoutNotice struct {
	Name               string
	Email              string
	PlanName           string
	ApplicationsPerDay int
	SubscriptionID     string
	PeriodEnd          time.Time
	AdminEmail         string
}

// CheckoutMessages builds the job seeker welcome and the admin "awaiting assignment" alert.
// The admin message is skipped when no admin address is configured.
func CheckoutMessages(n CheckoutNotice) []Message {
	return []Message{
		{
			Key:      KeyJobSeeker,
			Kind:     "checkout.jobseeker",
			To:       n.Email,
			Subject:  "Welcome to " + n.PlanName,
			Template: "checkout_jobseeker.html",
			Data:     n,
		},
		{
			Key:      KeyAdmin,
			Kind:     "checkout.admin",
			To:       n.AdminEmail,
			Subject:  "Subscription awaiting recruiter assignment",
			Template: "checkout_admin.html",
			Data:     n,
		},
	}
}
