package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/careerlift/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const assignmentColumns = `id, subscription_id, job_seeker_id, recruiter_id, status, plan_type,
	applications_per_day, notes, assigned_at, created_at, updated_at`

// assignmentViewSelect joins display fields and submission counters. $1 is the
// IANA timezone that defines "today".
const assignmentViewSelect = `
	SELECT a.id, a.subscription_id, a.job_seeker_id, a.recruiter_id, a.status, a.plan_type,
	       a.applications_per_day, a.notes, a.assigned_at, a.created_at, a.updated_at,
	       js.name, js.email, rc.name, rc.email,
	       s.status, s.current_period_end, s.plan_type,
	       (SELECT COUNT(*) FROM application_submissions x
	         WHERE x.assignment_id = a.id
	           AND (x.submitted_at AT TIME ZONE $1)::date = (NOW() AT TIME ZONE $1)::date),
	       (SELECT COUNT(*) FROM application_submissions x WHERE x.assignment_id = a.id)
	FROM recruiter_assignments a
	JOIN subscriptions s ON s.id = a.subscription_id
	JOIN users js ON js.id = a.job_seeker_id
	JOIN users rc ON rc.id = a.recruiter_id`

// AssignmentRepository handles database operations for recruiter assignments.
type AssignmentRepository struct {
	db       *pgxpool.Pool
	timezone string
}

// NewAssignmentRepository creates a new AssignmentRepository. timezone is the
// IANA zone used to bucket submissions into days.
func NewAssignmentRepository(db *pgxpool.Pool, timezone string) *AssignmentRepository {
	return &AssignmentRepository{db: db, timezone: timezone}
}

func scanAssignment(row pgx.Row, extra ...any) (*domain.Assignment, error) {
	var a domain.Assignment
	dest := []any{
		&a.ID, &a.SubscriptionID, &a.JobSeekerID, &a.RecruiterID, &a.Status, &a.PlanType,
		&a.ApplicationsPerDay, &a.Notes, &a.AssignedAt, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAssignmentView(row pgx.Row) (*domain.AssignmentView, error) {
	var v domain.AssignmentView
	a, err := scanAssignment(row,
		&v.JobSeekerName, &v.JobSeekerEmail, &v.RecruiterName, &v.RecruiterEmail,
		&v.SubscriptionStatus, &v.CurrentPeriodEnd, &v.SubscriptionPlanNow,
		&v.TodayCount, &v.TotalCount,
	)
	if err != nil {
		return nil, err
	}
	v.Assignment = *a
	v.FillRemaining()
	return &v, nil
}

// Upsert creates the assignment for a subscription or reassigns the existing
// one. The subscription row is locked for the duration so concurrent calls
// serialize; plan type and quota are re-copied from its current state.
// reassigned reports whether a row already existed.
func (r *AssignmentRepository) Upsert(ctx context.Context, in domain.AssignmentUpsert) (*domain.Assignment, bool, error) {
	var (
		saved    *domain.Assignment
		inserted bool
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var status, planType, userID string
		err := tx.QueryRow(ctx,
			`SELECT status, plan_type, user_id FROM subscriptions WHERE id = $1 FOR UPDATE`,
			in.SubscriptionID,
		).Scan(&status, &planType, &userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrSubscriptionNotActive
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if status != domain.SubscriptionActive {
			return domain.ErrSubscriptionNotActive
		}

		query := `
			INSERT INTO recruiter_assignments (id, subscription_id, job_seeker_id, recruiter_id, status,
				plan_type, applications_per_day, notes, assigned_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'active', $5, $6, $7, NOW(), NOW(), NOW())
			ON CONFLICT (subscription_id) DO UPDATE
			SET recruiter_id = EXCLUDED.recruiter_id,
			    status = 'active',
			    notes = EXCLUDED.notes,
			    plan_type = EXCLUDED.plan_type,
			    applications_per_day = EXCLUDED.applications_per_day,
			    assigned_at = NOW(),
			    updated_at = NOW()
			RETURNING ` + assignmentColumns + `, (xmax = 0)`
		saved, err = scanAssignment(tx.QueryRow(ctx, query,
			domain.NewID(), in.SubscriptionID, userID, in.RecruiterID,
			planType, domain.DailyQuota(planType), in.Notes,
		), &inserted)
		if err != nil {
			return fmt.Errorf("failed to upsert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return saved, !inserted, nil
}

func (r *AssignmentRepository) findView(ctx context.Context, where string, args ...any) (*domain.AssignmentView, error) {
	query := assignmentViewSelect + ` WHERE ` + where
	v, err := scanAssignmentView(r.db.QueryRow(ctx, query, append([]any{r.timezone}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return v, nil
}

// FindByID returns the joined view of an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*domain.AssignmentView, error) {
	return r.findView(ctx, `a.id = $2`, id)
}

// FindForRecruiter returns an assignment only when it belongs to recruiterID.
func (r *AssignmentRepository) FindForRecruiter(ctx context.Context, id, recruiterID string) (*domain.AssignmentView, error) {
	return r.findView(ctx, `a.id = $2 AND a.recruiter_id = $3`, id, recruiterID)
}

// FindActiveForJobSeeker returns the job seeker's current active assignment.
func (r *AssignmentRepository) FindActiveForJobSeeker(ctx context.Context, jobSeekerID string) (*domain.AssignmentView, error) {
	return r.findView(ctx, `a.job_seeker_id = $2 AND a.status = 'active' ORDER BY a.assigned_at DESC LIMIT 1`, jobSeekerID)
}

// List returns assignment views, most recently assigned first.
func (r *AssignmentRepository) List(ctx context.Context, f domain.AssignmentFilter) ([]domain.AssignmentView, error) {
	query := assignmentViewSelect + `
		WHERE ($2 = '' OR a.status = $2) AND ($3 = '' OR a.recruiter_id = $3)
		ORDER BY a.assigned_at DESC`
	rows, err := r.db.Query(ctx, query, r.timezone, f.Status, f.RecruiterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	views := []domain.AssignmentView{}
	for rows.Next() {
		v, err := scanAssignmentView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

// Update applies a partial change. Returns nil when the assignment does not exist.
func (r *AssignmentRepository) Update(ctx context.Context, id string, p domain.AssignmentPatch) (*domain.Assignment, error) {
	query := `
		UPDATE recruiter_assignments
		SET recruiter_id = COALESCE($2, recruiter_id),
		    status = COALESCE($3, status),
		    notes = COALESCE($4, notes),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(r.db.QueryRow(ctx, query, id, p.RecruiterID, p.Status, p.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return a, nil
}
