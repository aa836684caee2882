package jobs

import (
	"context"
	"time"

	"payouts/services/logger"

	"github.com/robfig/cron/v3"
)

const (
	DefaultReconcileSpec = "0 0 * * *"
	staleReportSpec      = "@hourly"
	jobTimeout           = 5 * time.Minute
)

// InitCronJobs registers the reconciliation and stale-request jobs and starts the scheduler.
func InitCronJobs(c *cron.Cron, spec string, r *Reconciler, log logger.Logger) error {
	if spec == "" {
		spec = DefaultReconcileSpec
	}

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		log.Info("running ledger reconciliation at %v", time.Now())
		if _, err := r.Reconcile(ctx); err != nil {
			log.Error("ledger reconciliation failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = c.AddFunc(staleReportSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := r.ReportStale(ctx); err != nil {
			log.Error("stale withdrawal report failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	log.Info("Cron jobs initialized successfully")
	return nil
}
