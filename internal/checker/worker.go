package checker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RunForever drives check cycles on the configured interval after a
// startup delay that lets migrations and seeds settle.
func (c *Checker) RunForever(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.cfg.StartupDelay):
	}

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if _, err := c.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			c.log.Warn("check cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
