package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"vinwreck-parser/internal/config"
	"vinwreck-parser/internal/observability"
)

// Job is one ingestion run.
type Job func(ctx context.Context) error

// RunScheduled executes job according to cfg.Mode: once ("oneshot"), every
// IntervalS seconds ("interval") or on CronExpr ("cron"). Repeating modes
// return when ctx is cancelled; a failing run is logged and the next one
// still fires.
func RunScheduled(ctx context.Context, cfg config.SchedulerConfig, logger *observability.Logger, job Job) error {
	switch cfg.Mode {
	case "", "oneshot":
		return job(ctx)
	case "interval":
		return runInterval(ctx, time.Duration(cfg.IntervalS)*time.Second, logger, job)
	case "cron":
		return runCron(ctx, cfg.CronExpr, logger, job)
	default:
		return fmt.Errorf("unknown scheduler mode: %s", cfg.Mode)
	}
}

func runInterval(ctx context.Context, interval time.Duration, logger *observability.Logger, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler interval must be > 0")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := job(ctx); err != nil {
			logger.Error("Scheduled run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runCron(ctx context.Context, expr string, logger *observability.Logger, job Job) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	if _, err := c.AddFunc(expr, func() {
		if err := job(ctx); err != nil {
			logger.Error("Scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	logger.Info("Cron scheduler started", "expr", expr)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
