package main

import (
	"context"
	"fmt"
	"io"

	"dataclean/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runScheduled cleans on every tick of p.Schedule until ctx is done. A failed
// run is logged and the schedule continues; overlapping ticks are skipped.
func runScheduled(ctx context.Context, p config.Pipeline, log *zap.Logger, w io.Writer) error {
	flush, err := setupMetrics(p, log)
	if err != nil {
		return err
	}
	defer flush()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(p.Schedule, func() {
		res, err := runOnce(ctx, p, log)
		if err != nil {
			log.Error("scheduled run failed", zap.String("job", p.Job), zap.Error(err))
			return
		}
		fmt.Fprintln(w, summary(res))
		flush()
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", p.Schedule, err)
	}

	log.Info("scheduler started", zap.String("job", p.Job), zap.String("schedule", p.Schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped", zap.String("job", p.Job))
	return nil
}
