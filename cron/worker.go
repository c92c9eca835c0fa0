package cron

import (
	"context"
	"time"

	"casaverde/config"
	"casaverde/services/booking"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeChargeRun is the nightly scheduled-charge task.
	TypeChargeRun = "charges:run"
	// TypeReconcileRun is the periodic reconciliation task.
	TypeReconcileRun = "reconcile:run"
)

// InitScheduler starts the asynq worker and registers the recurring charge
// and reconciliation tasks. The external scheduler is at-least-once: a
// double-fired charge run is safe because every gateway charge carries a
// deterministic idempotency key.
func InitScheduler(cfg *config.Config, svc booking.ReservationService, logger *zap.Logger) (*asynq.Server, *asynq.Scheduler) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisSchedulerDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			// The charge run serializes per-booking work itself; one
			// worker per queue keeps runs from overlapping.
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeChargeRun, handleChargeRun(svc, logger))
	mux.HandleFunc(TypeReconcileRun, handleReconcileRun(svc, logger))

	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Fatal("scheduler worker failed", zap.Error(err))
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register("0 2 * * *", asynq.NewTask(TypeChargeRun, nil)); err != nil {
		logger.Fatal("failed to register charge-run schedule", zap.Error(err))
	}
	if _, err := scheduler.Register("0 */6 * * *", asynq.NewTask(TypeReconcileRun, nil)); err != nil {
		logger.Fatal("failed to register reconcile schedule", zap.Error(err))
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Fatal("scheduler failed", zap.Error(err))
		}
	}()

	return srv, scheduler
}

func handleChargeRun(svc booking.ReservationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		results, err := svc.RunDueCharges(ctx)
		if err != nil {
			logger.Error("nightly charge run failed", zap.Error(err))
			return err
		}
		succeeded, failed := 0, 0
		for _, r := range results {
			if r.Success {
				succeeded++
			} else if r.Error != "" {
				failed++
			}
		}
		logger.Info("nightly charge run finished",
			zap.Int("total", len(results)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed))
		return nil
	}
}

func handleReconcileRun(svc booking.ReservationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		results, err := svc.Reconcile(ctx)
		if err != nil {
			logger.Error("periodic reconciliation failed", zap.Error(err))
			return err
		}
		logger.Info("periodic reconciliation finished", zap.Int("checked", len(results)))
		return nil
	}
}
