package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPeriodic runs idle checks on a fixed interval until the context is
// canceled or Stop is called. Cancellation is observed before each cycle
// and during each sleep, so a stop request costs at most the in-flight
// cycle.
func (o *Orchestrator) RunPeriodic(ctx context.Context, interval time.Duration) error {
	return o.loop(ctx, interval, func(ctx context.Context) {
		o.cycle(ctx, "idle_check", func(ctx context.Context) error {
			_, err := o.IdleCheck(ctx)
			return err
		})
	})
}

// RunDaemon runs the long-lived daemon: idle checks on the interval plus
// one daily review per day once the local hour reaches reviewHour. A
// failing cycle is logged and counted, never fatal. State is persisted on
// the way out.
func (o *Orchestrator) RunDaemon(ctx context.Context, interval time.Duration, reviewHour int) error {
	if reviewHour < 0 || reviewHour > 23 {
		reviewHour = o.cfg.ReviewHour
	}
	o.logger.Info("daemon started",
		zap.Duration("interval", interval),
		zap.Int("review_hour", reviewHour))

	lastReviewDate := ""
	err := o.loop(ctx, interval, func(ctx context.Context) {
		o.cycle(ctx, "idle_check", func(ctx context.Context) error {
			_, err := o.IdleCheck(ctx)
			return err
		})

		now := o.now()
		today := now.Format("2006-01-02")
		if now.Hour() >= reviewHour && lastReviewDate != today {
			o.cycle(ctx, "daily_review", func(ctx context.Context) error {
				_, rerr := o.DailyReview(ctx)
				return rerr
			})
			lastReviewDate = today
		}
	})

	if perr := o.persistState(); perr != nil {
		o.logger.Error("persist state on shutdown", zap.Error(perr))
	}
	o.logger.Info("daemon stopped")
	return err
}

// Stop requests a cooperative shutdown of a running loop. Idempotent.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// Running reports whether a periodic loop or daemon is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// loop drives one cycle function on the interval, honoring context
// cancellation and Stop.
func (o *Orchestrator) loop(ctx context.Context, interval time.Duration, run func(context.Context)) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	o.running.Store(true)
	defer o.running.Store(false)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.stop:
			return nil
		default:
		}

		run(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.stop:
			return nil
		case <-timer.C:
		}
	}
}

// cycle runs one operation inside a fault boundary: an error or panic is
// logged and counted, and the loop continues.
func (o *Orchestrator) cycle(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			o.metrics.IncCycleError()
			o.logger.Error("cycle panicked",
				zap.String("cycle", name), zap.Any("panic", r))
		}
	}()

	if err := fn(ctx); err != nil {
		o.metrics.IncCycleError()
		o.logger.Error("cycle failed", zap.String("cycle", name), zap.Error(err))
		return
	}
	o.metrics.IncCycle(name)
}
