package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run drains once immediately and then on every PollInterval tick until
// ctx ends. Pass errors are logged and the loop keeps going.
func (d *Drainer) Run(ctx context.Context) error {
	d.runOnce(ctx)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Drainer) runOnce(ctx context.Context) {
	if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
		d.log.Error("drain pass failed", zap.Error(err))
	}
}
