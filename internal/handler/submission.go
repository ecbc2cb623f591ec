package handler

import (
	"net/http"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// SubmissionHandler serves the recruiter's submission log.
type SubmissionHandler struct {
	svc *service.SubmissionService
}

func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

// Create handles POST /api/recruiter/submissions.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubmissionRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.svc.Create(r.Context(), Caller(r).ID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusCreated, map[string]any{"submission": sub})
}

// List handles GET /api/recruiter/submissions?assignmentId=&status=&limit=.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		Error(w, err)
		return
	}
	subs, err := h.svc.ListForRecruiter(r.Context(), Caller(r).ID, q)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"submissions": subs})
}

// Get handles GET /api/recruiter/submissions/{id}.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"submission": sub})
}

// Update handles PUT /api/recruiter/submissions/{id}.
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSubmissionRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), Caller(r).ID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"submission": sub})
}

func listQuery(r *http.Request) (service.ListQuery, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.ListQuery{}, err
	}
	q := r.URL.Query()
	return service.ListQuery{
		AssignmentID: q.Get("assignmentId"),
		Status:       q.Get("status"),
		Limit:        limit,
	}, nil
}
