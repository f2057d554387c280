package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
	"github.com/robfig/cron/v3"
)

// Purger deletes events older than a cutoff
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically purges events older than the retention window
type Retention struct {
	purger    Purger
	retention time.Duration
	logger    *observability.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewRetention schedules purges on a standard cron schedule such as "@daily"
func NewRetention(purger Purger, days int, schedule string, logger *observability.Logger) (*Retention, error) {
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}

	r := &Retention{
		purger:    purger,
		retention: time.Duration(days) * 24 * time.Hour,
		logger:    logger.WithField("component", "audit_retention"),
		cron:      cron.New(cron.WithLocation(time.UTC)),
		now:       time.Now,
	}

	if _, err := r.cron.AddFunc(schedule, func() {
		defer observability.RecoverPanic(r.logger, "audit retention")
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.WithError(err).Error("audit retention run failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Start begins the schedule
func (r *Retention) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running purge to finish or ctx to expire
func (r *Retention) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges every event recorded before now minus the retention window
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.retention)
	n, err := r.purger.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.logger.WithFields(map[string]interface{}{
		"purged": n,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("purged audit events")
	return n, nil
}
