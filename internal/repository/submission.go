package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/careerlift/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `s.id, s.assignment_id, s.job_seeker_id, s.recruiter_id, s.job_title, s.company_name,
	s.job_url, s.job_description, s.submitted_at, s.status, s.feedback_received, s.feedback_date,
	s.feedback_notes, s.notes, s.status_history, s.created_at, s.updated_at`

// SubmissionRepository handles database operations for application submissions.
type SubmissionRepository struct {
	db *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		s       domain.Submission
		status  string
		history []byte
	)
	err := row.Scan(
		&s.ID, &s.AssignmentID, &s.JobSeekerID, &s.RecruiterID, &s.JobTitle, &s.CompanyName,
		&s.JobURL, &s.JobDescription, &s.SubmittedAt, &status, &s.FeedbackReceived, &s.FeedbackDate,
		&s.FeedbackNotes, &s.Notes, &history, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SubmissionStatus(status)
	s.StatusHistory = json.RawMessage(history)
	return &s, nil
}

// Create inserts a submission under an assignment, copying the job seeker from
// it. The insert only happens when the assignment is active and belongs to
// s.RecruiterID; otherwise nil is returned.
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	query := `
		WITH s AS (
			INSERT INTO application_submissions (id, assignment_id, job_seeker_id, recruiter_id, job_title,
				company_name, job_url, job_description, submitted_at, status, notes, status_history,
				created_at, updated_at)
			SELECT $1, a.id, a.job_seeker_id, a.recruiter_id, $4, $5, $6, $7, $8, $9, $10, '[]'::jsonb, NOW(), NOW()
			FROM recruiter_assignments a
			WHERE a.id = $2 AND a.recruiter_id = $3 AND a.status = 'active'
			RETURNING *
		)
		SELECT ` + submissionColumns + ` FROM s`
	saved, err := scanSubmission(r.db.QueryRow(ctx, query,
		s.ID, s.AssignmentID, s.RecruiterID, s.JobTitle, s.CompanyName,
		s.JobURL, s.JobDescription, s.SubmittedAt, string(s.Status), s.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return saved, nil
}

// FindForRecruiter returns a submission only when recruiterID logged it and
// still holds its assignment.
func (r *SubmissionRepository) FindForRecruiter(ctx context.Context, id, recruiterID string) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM application_submissions s
		JOIN recruiter_assignments a ON a.id = s.assignment_id AND a.recruiter_id = $2
		WHERE s.id = $1 AND s.recruiter_id = $2`
	s, err := scanSubmission(r.db.QueryRow(ctx, query, id, recruiterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return s, nil
}

// List returns submissions matching f, newest submitted first. Empty filter
// fields are ignored; a zero Limit lists everything. A recruiter scope only
// matches submissions under assignments the recruiter still holds.
func (r *SubmissionRepository) List(ctx context.Context, f domain.SubmissionFilter) ([]domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM application_submissions s
		JOIN recruiter_assignments a ON a.id = s.assignment_id
		WHERE ($1 = '' OR (s.recruiter_id = $1 AND a.recruiter_id = $1))
		  AND ($2 = '' OR s.job_seeker_id = $2)
		  AND ($3 = '' OR s.assignment_id = $3)
		  AND ($4 = '' OR s.status = $4)
		ORDER BY s.submitted_at DESC, s.created_at DESC`
	args := []any{f.RecruiterID, f.JobSeekerID, f.AssignmentID, string(f.Status)}
	if f.Limit > 0 {
		query += ` LIMIT $5`
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	subs := []domain.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// Update applies a partial change. The row is written only when recruiterID
// logged the submission and still holds its assignment; otherwise nil is
// returned. A non-nil p.History is appended to the status history.
func (r *SubmissionRepository) Update(ctx context.Context, id, recruiterID string, p domain.SubmissionPatch) (*domain.Submission, error) {
	var status, history any
	if p.Status != nil {
		status = string(*p.Status)
	}
	if p.History != nil {
		entry, err := json.Marshal([]domain.StatusChange{*p.History})
		if err != nil {
			return nil, fmt.Errorf("failed to encode status history: %w", err)
		}
		history = string(entry)
	}

	query := `
		UPDATE application_submissions s
		SET status = COALESCE($3, s.status),
		    notes = COALESCE($4, s.notes),
		    feedback_received = COALESCE($5, s.feedback_received),
		    feedback_date = COALESCE($6, s.feedback_date),
		    feedback_notes = COALESCE($7, s.feedback_notes),
		    status_history = CASE WHEN $8::jsonb IS NULL THEN s.status_history
		                          ELSE s.status_history || $8::jsonb END,
		    updated_at = NOW()
		FROM recruiter_assignments a
		WHERE s.id = $1 AND s.recruiter_id = $2
		  AND a.id = s.assignment_id AND a.recruiter_id = $2
		RETURNING ` + submissionColumns
	s, err := scanSubmission(r.db.QueryRow(ctx, query,
		id, recruiterID, status, p.Notes, p.FeedbackReceived, p.FeedbackDate, p.FeedbackNotes, history,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	return s, nil
}

// CountByStatus tallies a job seeker's submissions per status.
func (r *SubmissionRepository) CountByStatus(ctx context.Context, jobSeekerID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM application_submissions WHERE job_seeker_id = $1 GROUP BY status`,
		jobSeekerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan submission count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
