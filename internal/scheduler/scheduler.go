// Package scheduler runs the full listing refresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/service"
)

// Refresher is the operation the scheduler triggers.
type Refresher interface {
	RefreshAll(ctx context.Context) (service.RefreshReport, error)
}

// Scheduler wraps a cron runner with a single refresh job.  Overlapping
// runs are skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	refresh Refresher
	timeout time.Duration
	log     *zap.Logger
}

// New parses spec (standard 5-field cron, or descriptors like "@every 3h")
// and registers the refresh job.  Each run gets at most timeout.
func New(spec string, r Refresher, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	log = log.With(zap.String("component", "scheduler"))
	s := &Scheduler{refresh: r, timeout: timeout, log: log}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("refresh scheduled", zap.Time("next", e.Next))
	}
}

// Stop stops scheduling and waits for a running refresh, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("refresh still running at shutdown")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	report, err := s.refresh.RefreshAll(ctx)
	if err != nil {
		s.log.Error("scheduled refresh failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled refresh done",
		zap.String("status", report.Status), zap.Int("failed", len(report.Failed())))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Sugar().Debugw(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Sugar().Errorw(msg, append(kv, "error", err)...)
}
