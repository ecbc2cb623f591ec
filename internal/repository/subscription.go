package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, plan_type, status, current_period_start, current_period_end,
	payment_provider_id, canceled_at, created_at, updated_at`

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row, extra ...any) (*domain.Subscription, error) {
	var sub domain.Subscription
	dest := []any{
		&sub.ID, &sub.UserID, &sub.PlanType, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.PaymentProviderID,
		&sub.CanceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE ` + where
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

// FindByID returns a subscription by ID.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByProviderID returns the subscription created for a payment provider reference.
func (r *SubscriptionRepository) FindByProviderID(ctx context.Context, providerID string) (*domain.Subscription, error) {
	return r.findOne(ctx, `payment_provider_id = $1`, providerID)
}

// FindActiveByUserID returns the user's active subscription, if any.
func (r *SubscriptionRepository) FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	return r.findOne(ctx, `user_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1`, userID)
}

// Activate stores a new active recruiter subscription. Any other active
// recruiter subscription of the same user is canceled and its assignment
// deactivated in the same transaction. When a subscription already exists for
// the payment provider reference it is returned unchanged with created=false.
func (r *SubscriptionRepository) Activate(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, bool, error) {
	var (
		saved   *domain.Subscription
		created bool
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if sub.PaymentProviderID != nil {
			existing, err := scanSubscription(tx.QueryRow(ctx,
				`SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_provider_id = $1 FOR UPDATE`,
				*sub.PaymentProviderID))
			if err == nil {
				saved = existing
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to look up provider reference: %w", err)
			}
		}

		plans := recruiterPlanIDs()
		if _, err := tx.Exec(ctx, `
			UPDATE recruiter_assignments SET status = 'inactive', updated_at = NOW()
			WHERE status = 'active' AND subscription_id IN (
				SELECT id FROM subscriptions
				WHERE user_id = $1 AND status = 'active' AND plan_type = ANY($2)
			)`, sub.UserID, plans); err != nil {
			return fmt.Errorf("failed to deactivate previous assignment: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE subscriptions SET status = 'canceled', canceled_at = NOW(), updated_at = NOW()
			WHERE user_id = $1 AND status = 'active' AND plan_type = ANY($2)`,
			sub.UserID, plans); err != nil {
			return fmt.Errorf("failed to cancel previous subscription: %w", err)
		}

		query := `
			INSERT INTO subscriptions (id, user_id, plan_type, status, current_period_start, current_period_end,
				payment_provider_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING ` + subscriptionColumns
		inserted, err := scanSubscription(tx.QueryRow(ctx, query,
			sub.ID, sub.UserID, sub.PlanType, domain.SubscriptionActive,
			sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.PaymentProviderID,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict("subscription already recorded")
			}
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		saved, created = inserted, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

// Renew reactivates a subscription and pushes its period end forward.
// Returns nil when no subscription matches the provider reference.
func (r *SubscriptionRepository) Renew(ctx context.Context, providerID string, periodEnd time.Time) (*domain.Subscription, error) {
	query := `
		UPDATE subscriptions
		SET status = 'active', canceled_at = NULL,
		    current_period_end = GREATEST(current_period_end, $2),
		    updated_at = NOW()
		WHERE payment_provider_id = $1
		RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, providerID, periodEnd))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict("user already has another active recruiter plan")
		}
		return nil, fmt.Errorf("failed to renew subscription: %w", err)
	}
	return sub, nil
}

// Cancel marks a subscription canceled and soft-deactivates its assignment.
// Returns nil when no subscription matches the provider reference.
func (r *SubscriptionRepository) Cancel(ctx context.Context, providerID string) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			UPDATE subscriptions
			SET status = 'canceled', canceled_at = COALESCE(canceled_at, NOW()), updated_at = NOW()
			WHERE payment_provider_id = $1
			RETURNING ` + subscriptionColumns
		s, err := scanSubscription(tx.QueryRow(ctx, query, providerID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE recruiter_assignments SET status = 'inactive', updated_at = NOW()
			WHERE subscription_id = $1 AND status = 'active'`, s.ID); err != nil {
			return fmt.Errorf("failed to deactivate assignment: %w", err)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ExpireLapsed moves active subscriptions whose period ended before now to
// expired and deactivates their assignments. It returns the number expired.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE recruiter_assignments SET status = 'inactive', updated_at = NOW()
			WHERE status = 'active' AND subscription_id IN (
				SELECT id FROM subscriptions WHERE status = 'active' AND current_period_end < $1
			)`, now); err != nil {
			return fmt.Errorf("failed to deactivate lapsed assignments: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE subscriptions SET status = 'expired', updated_at = NOW()
			WHERE status = 'active' AND current_period_end < $1`, now)
		if err != nil {
			return fmt.Errorf("failed to expire subscriptions: %w", err)
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

// Queue lists active recruiter-plan subscriptions for the admin work queue,
// oldest first. filter is one of the domain.Queue* values.
func (r *SubscriptionRepository) Queue(ctx context.Context, filter string) ([]domain.QueueItem, error) {
	query := `
		SELECT s.id, s.user_id, s.plan_type, s.status, s.current_period_start, s.current_period_end,
		       s.payment_provider_id, s.canceled_at, s.created_at, s.updated_at,
		       u.name, u.email, a.id, a.recruiter_id
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN recruiter_assignments a ON a.subscription_id = s.id AND a.status = 'active'
		WHERE s.status = 'active' AND s.plan_type = ANY($1)
		  AND ($2 = 'all'
		       OR ($2 = 'unassigned' AND a.id IS NULL)
		       OR ($2 = 'assigned' AND a.id IS NOT NULL))
		ORDER BY s.created_at ASC`
	rows, err := r.db.Query(ctx, query, recruiterPlanIDs(), filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription queue: %w", err)
	}
	defer rows.Close()

	items := []domain.QueueItem{}
	for rows.Next() {
		var item domain.QueueItem
		sub, err := scanSubscription(rows, &item.UserName, &item.UserEmail, &item.AssignmentID, &item.AssignedRecruiter)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		item.Subscription = *sub
		if plan, ok := domain.GetPlan(sub.PlanType); ok {
			item.PlanName = plan.Name
			item.ApplicationsPerDay = plan.ApplicationsPerDay
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
