package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinwreck-parser/internal/config"
	"vinwreck-parser/internal/observability"
)

func TestRunScheduledOneshot(t *testing.T) {
	logger := observability.NewLoggerTo(io.Discard, "info")
	boom := errors.New("boom")

	var calls int
	err := RunScheduled(context.Background(), config.SchedulerConfig{Mode: "oneshot"}, logger, func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRunIntervalKeepsGoingAfterFailures(t *testing.T) {
	logger := observability.NewLoggerTo(io.Discard, "info")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	err := runInterval(ctx, 5*time.Millisecond, logger, func(ctx context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return errors.New("run failed")
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunScheduledRejectsBadSettings(t *testing.T) {
	logger := observability.NewLoggerTo(io.Discard, "info")
	noop := func(ctx context.Context) error { return nil }

	tests := []struct {
		name string
		cfg  config.SchedulerConfig
	}{
		{"unknown mode", config.SchedulerConfig{Mode: "hourly"}},
		{"zero interval", config.SchedulerConfig{Mode: "interval"}},
		{"bad cron", config.SchedulerConfig{Mode: "cron", CronExpr: "every now and then"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, RunScheduled(context.Background(), tt.cfg, logger, noop))
		})
	}
}
