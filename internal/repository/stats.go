package repository

import (
	"context"
	"fmt"

	"github.com/careerlift/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository aggregates counters for the admin dashboard.
type StatsRepository struct {
	db       *pgxpool.Pool
	timezone string
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *pgxpool.Pool, timezone string) *StatsRepository {
	return &StatsRepository{db: db, timezone: timezone}
}

// Collect gathers the dashboard counters.
func (r *StatsRepository) Collect(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{
		UsersByRole:         make(map[string]int),
		SubmissionsByStatus: make(map[string]int),
	}

	if err := r.groupCount(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`, stats.UsersByRole); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM application_submissions GROUP BY status`, stats.SubmissionsByStatus); err != nil {
		return nil, err
	}
	for _, n := range stats.SubmissionsByStatus {
		stats.SubmissionsTotal += n
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM subscriptions s WHERE s.status = 'active' AND s.plan_type = ANY($2)),
			(SELECT COUNT(*) FROM subscriptions s
			  WHERE s.status = 'active' AND s.plan_type = ANY($2)
			    AND NOT EXISTS (SELECT 1 FROM recruiter_assignments a
			                     WHERE a.subscription_id = s.id AND a.status = 'active')),
			(SELECT COUNT(*) FROM recruiter_assignments WHERE status = 'active'),
			(SELECT COUNT(*) FROM application_submissions
			  WHERE (submitted_at AT TIME ZONE $1)::date = (NOW() AT TIME ZONE $1)::date)`
	err := r.db.QueryRow(ctx, query, r.timezone, recruiterPlanIDs()).Scan(
		&stats.ActiveSubscriptions, &stats.UnassignedSubscriptions,
		&stats.ActiveAssignments, &stats.SubmissionsToday,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}
	return stats, nil
}

func (r *StatsRepository) groupCount(ctx context.Context, query string, into map[string]int) error {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan stats: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}
