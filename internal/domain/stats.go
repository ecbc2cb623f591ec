package domain

// AdminStats is the operational summary shown on the admin dashboard.
type AdminStats struct {
	UsersByRole             map[string]int `json:"usersByRole"`
	ActiveSubscriptions     int            `json:"activeSubscriptions"`
	UnassignedSubscriptions int            `json:"unassignedSubscriptions"`
	ActiveAssignments       int            `json:"activeAssignments"`
	SubmissionsToday        int            `json:"submissionsToday"`
	SubmissionsTotal        int            `json:"submissionsTotal"`
	SubmissionsByStatus     map[string]int `json:"submissionsByStatus"`
}
