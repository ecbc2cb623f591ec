package handler

import (
	"net/http"
	"time"

	"github.com/careerlift/backend/internal/service"
)

// JobSeekerHandler serves the job seeker's read-only views of the work done
// on their behalf.
type JobSeekerHandler struct {
	assignments *service.AssignmentService
	submissions *service.SubmissionService
	loc         *time.Location
}

func NewJobSeekerHandler(assignments *service.AssignmentService, submissions *service.SubmissionService, loc *time.Location) *JobSeekerHandler {
	return &JobSeekerHandler{assignments: assignments, submissions: submissions, loc: loc}
}

// Assignment handles GET /api/jobseeker/assignment.
func (h *JobSeekerHandler) Assignment(w http.ResponseWriter, r *http.Request) {
	ov, err := h.assignments.Overview(r.Context(), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{
		"subscription": ov.Subscription,
		"assignment":   ov.Assignment,
		"statusCounts": ov.StatusCounts,
	})
}

// Submissions handles GET /api/jobseeker/submissions?status=&limit=.
func (h *JobSeekerHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		Error(w, err)
		return
	}
	q.AssignmentID = ""
	subs, err := h.submissions.ListForJobSeeker(r.Context(), Caller(r).ID, q)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"submissions": subs})
}

// Export handles GET /api/jobseeker/submissions/export.
func (h *JobSeekerHandler) Export(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.ExportForJobSeeker(r.Context(), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	writeWorkbook(w, subs, h.loc)
}
