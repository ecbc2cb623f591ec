package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/export"
	"github.com/careerlift/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// AssignmentHandler serves admin assignment management and the recruiter's
// own assignment views.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	submissions *service.SubmissionService
	loc         *time.Location
}

func NewAssignmentHandler(assignments *service.AssignmentService, submissions *service.SubmissionService, loc *time.Location) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, submissions: submissions, loc: loc}
}

// Create handles POST /api/admin/recruiter-assignments. Reassigning an
// already assigned subscription answers 200, a new assignment 201.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAssignmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	res, err := h.assignments.Assign(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	status := http.StatusCreated
	if res.Reassigned {
		status = http.StatusOK
	}
	Success(w, status, map[string]any{
		"assignment":  res.Assignment,
		"reassigned":  res.Reassigned,
		"emailStatus": res.EmailStatus,
	})
}

// List handles GET /api/admin/recruiter-assignments?status=&recruiterId=.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.assignments.List(r.Context(), domain.AssignmentFilter{
		Status:      q.Get("status"),
		RecruiterID: q.Get("recruiterId"),
	})
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignments": views})
}

// Get handles GET /api/admin/recruiter-assignments/{id}.
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.assignments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignment": view})
}

// Update handles PUT /api/admin/recruiter-assignments/{id}.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAssignmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	a, err := h.assignments.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignment": a})
}

// Deactivate handles DELETE /api/admin/recruiter-assignments/{id}. The row is
// kept and marked inactive.
func (h *AssignmentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	a, err := h.assignments.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignment": a})
}

// Export handles GET /api/admin/recruiter-assignments/{id}/submissions/export.
func (h *AssignmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	_, subs, err := h.submissions.ExportForAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	writeWorkbook(w, subs, h.loc)
}

// ListMine handles GET /api/recruiter/assignments?status=. Defaults to active.
func (h *AssignmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	views, err := h.assignments.ListForRecruiter(r.Context(), Caller(r).ID, r.URL.Query().Get("status"))
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignments": views})
}

// GetMine handles GET /api/recruiter/assignments/{id}.
func (h *AssignmentHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	view, err := h.assignments.GetForRecruiter(r.Context(), chi.URLParam(r, "id"), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"assignment": view})
}

// writeWorkbook renders subs into memory first so a failure can still be
// reported as JSON.
func writeWorkbook(w http.ResponseWriter, subs []domain.Submission, loc *time.Location) {
	var buf bytes.Buffer
	if err := export.WriteSubmissions(&buf, subs, loc); err != nil {
		Error(w, domain.ErrInternal("failed to build export", err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now().In(loc))+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
