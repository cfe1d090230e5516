package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Periodic invokes task every interval until ctx is cancelled. Task errors
// are logged and the loop keeps going. The first invocation happens after
// one full interval.
func Periodic(ctx context.Context, interval time.Duration, logger *zap.Logger, task func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := task(ctx); err != nil {
				logger.Error("periodic task failed", zap.Error(err))
			}
		}
	}
}
