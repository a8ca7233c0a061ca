/**
 * @description
 * The entitlement gate. Every generation operation consults this component
 * before calling an external provider and settles free-tier usage afterwards.
 * Entitlement is a pure function of (userID, stored state): nothing here is
 * cached between requests.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aihub/generation-service/internal/domain"
	"github.com/aihub/generation-service/internal/store"
)

// DefaultFreeLimit is the number of generation calls allowed before a
// subscription is required.
const DefaultFreeLimit = 5

// DefaultSubscriptionGrace keeps a subscription entitled for a day past its
// paid period end, absorbing billing-webhook delivery lag.
const DefaultSubscriptionGrace = 24 * time.Hour

// Repository defines the database operations the gate and its collaborators need.
type Repository interface {
	GetAPIUsageCount(ctx context.Context, userID string) (int, error)
	ConsumeFreeUsage(ctx context.Context, userID string, limit int) (int, error)
	GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	MarkLapsedSubscriptions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Entitlements decides whether a user may perform a generation call right now.
type Entitlements struct {
	repo      Repository
	freeLimit int
	grace     time.Duration
}

// NewEntitlements creates the gate. A non-positive freeLimit falls back to
// DefaultFreeLimit.
func NewEntitlements(repo Repository, freeLimit int) *Entitlements {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Entitlements{
		repo:      repo,
		freeLimit: freeLimit,
		grace:     DefaultSubscriptionGrace,
	}
}

// FreeLimit returns the configured free-tier allotment.
func (e *Entitlements) FreeLimit() int {
	return e.freeLimit
}

// IsSubscribed reports whether the user holds an active subscription: a row
// exists, carries an external subscription id, and its period end plus the
// grace window is still in the future. A datastore error propagates so the
// caller fails closed instead of silently treating the user as free tier.
func (e *Entitlements) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	sub, err := e.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load subscription: %w", err)
	}

	if sub.SubscriptionID == "" {
		return false, nil
	}
	return time.Now().Before(sub.CurrentPeriodEnd.Add(e.grace)), nil
}

// IsWithinFreeLimit reports whether the user still has free-tier calls left.
// A user with no counter row has consumed nothing. No side effect.
func (e *Entitlements) IsWithinFreeLimit(ctx context.Context, userID string) (bool, error) {
	count, err := e.repo.GetAPIUsageCount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load usage count: %w", err)
	}
	return count < e.freeLimit, nil
}

// ConsumeFreeUsage records one free-tier call. The increment is a conditional
// atomic consume at the datastore; when a concurrent request took the last
// unit first this returns ErrQuotaExceeded and the counter is untouched.
// Callers must invoke this only for non-subscribers, and only after the
// provider call succeeded.
func (e *Entitlements) ConsumeFreeUsage(ctx context.Context, userID string) error {
	_, err := e.repo.ConsumeFreeUsage(ctx, userID, e.freeLimit)
	if err != nil {
		if errors.Is(err, store.ErrFreeLimitReached) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("consume free usage: %w", err)
	}
	return nil
}

// Status assembles the usage DTO the frontend renders in the sidebar counter
// and the upgrade modal.
func (e *Entitlements) Status(ctx context.Context, userID string) (*domain.UsageStatus, error) {
	isPro, err := e.IsSubscribed(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := e.repo.GetAPIUsageCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load usage count: %w", err)
	}
	if count > e.freeLimit {
		count = e.freeLimit
	}

	return &domain.UsageStatus{
		Count: count,
		Limit: e.freeLimit,
		IsPro: isPro,
	}, nil
}
