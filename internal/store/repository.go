/**
 * @description
 * This file implements the data access layer for the generation-service.
 * It contains the SQL for the free-tier usage counter and the subscription
 * records the entitlement gate reads.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aihub/generation-service/internal/domain"
)

var (
	// ErrSubscriptionNotFound is returned when a user has no subscription row.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrFreeLimitReached is returned by ConsumeFreeUsage when the counter is
	// already at the limit, including the case where a concurrent request
	// consumed the last unit first.
	ErrFreeLimitReached = errors.New("free usage limit reached")
)

// Repository handles database operations for usage counters and subscriptions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetAPIUsageCount returns the user's free-tier counter, or 0 when the user
// has never made a generation call.
func (r *Repository) GetAPIUsageCount(ctx context.Context, userID string) (int, error) {
	var count int
	query := `
        SELECT count
        FROM api_usage
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ConsumeFreeUsage atomically increments the user's counter by one, creating
// the row on first use. The increment only applies while the counter is below
// limit; the WHERE clause on the conflict update makes the statement a
// conditional consume, so two racing requests can never push the counter past
// the limit and the loser observes ErrFreeLimitReached.
func (r *Repository) ConsumeFreeUsage(ctx context.Context, userID string, limit int) (int, error) {
	var count int
	query := `
        INSERT INTO api_usage (id, user_id, count)
        VALUES ($1, $2, 1)
        ON CONFLICT (user_id) DO UPDATE SET
            count = api_usage.count + 1,
            updated_at = NOW()
        WHERE api_usage.count < $3
        RETURNING count
    `
	err := r.db.QueryRow(ctx, query, uuid.New().String(), userID, limit).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrFreeLimitReached
		}
		return 0, err
	}
	return count, nil
}

// GetSubscriptionByUserID retrieves the subscription row for a user.
func (r *Repository) GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT id, user_id, customer_id, subscription_id, price_id, current_period_end, status, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.CustomerID,
		&sub.SubscriptionID,
		&sub.PriceID,
		&sub.CurrentPeriodEnd,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription creates or replaces a user's subscription row. Only the
// billing-event consumer writes through this method.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	var saved domain.Subscription
	query := `
        INSERT INTO user_subscriptions (id, user_id, customer_id, subscription_id, price_id, current_period_end, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE SET
            customer_id = EXCLUDED.customer_id,
            subscription_id = EXCLUDED.subscription_id,
            price_id = EXCLUDED.price_id,
            current_period_end = EXCLUDED.current_period_end,
            status = EXCLUDED.status,
            updated_at = NOW()
        RETURNING id, user_id, customer_id, subscription_id, price_id, current_period_end, status, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		uuid.New().String(),
		sub.UserID,
		sub.CustomerID,
		sub.SubscriptionID,
		sub.PriceID,
		sub.CurrentPeriodEnd,
		sub.Status,
	).Scan(
		&saved.ID,
		&saved.UserID,
		&saved.CustomerID,
		&saved.SubscriptionID,
		&saved.PriceID,
		&saved.CurrentPeriodEnd,
		&saved.Status,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// MarkLapsedSubscriptions flips still-active rows whose paid period ended
// before the cutoff to 'lapsed'. Entitlement is always recomputed from
// current_period_end, so this is housekeeping for reporting, not a gate input.
func (r *Repository) MarkLapsedSubscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
        UPDATE user_subscriptions
        SET status = 'lapsed', updated_at = NOW()
        WHERE status = 'active' AND current_period_end < $1
    `
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
