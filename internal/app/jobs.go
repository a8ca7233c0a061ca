/**
 * @description
 * Scheduled housekeeping jobs. Entitlement is always recomputed from the
 * stored period-end timestamp, so these jobs affect reporting state only.
 */
package app

import (
	"context"
	"log/slog"
	"time"
)

// Jobs holds the dependencies shared by all scheduled jobs.
type Jobs struct {
	repo   Repository
	logger *slog.Logger
	grace  time.Duration
}

// NewJobs creates the job set.
func NewJobs(repo Repository, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:   repo,
		logger: logger,
		grace:  DefaultSubscriptionGrace,
	}
}

// LapseExpiredSubscriptions marks still-active subscription rows whose paid
// period (plus grace) has run out as lapsed.
func (j *Jobs) LapseExpiredSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.grace)
	lapsed, err := j.repo.MarkLapsedSubscriptions(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to lapse expired subscriptions", "error", err)
		return
	}
	if lapsed > 0 {
		j.logger.Info("lapsed expired subscriptions", "count", lapsed)
	}
}
