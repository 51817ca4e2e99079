package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blessbox/internal/infra/metrics"
	"blessbox/internal/infra/redis"
	"blessbox/internal/usecase"
)

const lockKey = "finalizer:run"

// FinalizerWorker periodically converts expired canceling subscriptions to
// canceled via the use case. The redis lock keeps overlapping triggers
// (ticker + cron route) from double-scanning; per-subscription idempotence
// comes from the conditional UPDATE, not from the lock.
type FinalizerWorker struct {
	interval time.Duration
	subUC    *usecase.SubscriptionUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewFinalizerWorker(interval time.Duration, subUC *usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *FinalizerWorker {
	l := logger.With().Str("component", "FinalizerWorker").Logger()
	return &FinalizerWorker{interval: interval, subUC: subUC, locker: locker, log: &l}
}

func (w *FinalizerWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting finalizer worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping finalizer worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single finalizer pass. Also invoked by the cron route.
func (w *FinalizerWorker) RunOnce(ctx context.Context) *usecase.FinalizeReport {
	token, err := w.locker.TryLock(ctx, lockKey, 5*time.Minute)
	if err != nil {
		w.log.Debug().Err(err).Msg("finalizer pass skipped")
		return nil
	}
	defer func() { _ = w.locker.Unlock(ctx, lockKey, token) }()

	start := time.Now()
	report, err := w.subUC.FinalizeExpired(ctx, time.Now())
	metrics.ObserveFinalizerRun(time.Since(start).Seconds())
	if err != nil {
		w.log.Error().Err(err).Msg("finalizer pass failed")
		return nil
	}
	if report.Finalized > 0 {
		metrics.IncCancellationsFinalized(report.Finalized)
		w.log.Info().Int("finalized", report.Finalized).Int("total", report.Total).Msg("cancellations finalized")
	}
	if len(report.Errors) > 0 {
		metrics.IncFinalizerErrors(len(report.Errors))
		w.log.Warn().Strs("errors", report.Errors).Msg("finalizer pass had per-item failures")
	}
	return report
}
