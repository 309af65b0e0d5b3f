package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
)

const (
	defaultInterval   = 5 * time.Minute
	defaultJobTimeout = 4 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds each job. Keep it at or under the lock TTL.
	JobTimeout time.Duration
}

// Service runs the registered jobs every Interval while holding the
// distributed lock, so only one cron worker sweeps at a time.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = defaultJobTimeout
	}
	return svc, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.logCycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			s.logCycle(ctx)
		}
	}
}

// RunOnce executes a single cycle and reports how many jobs failed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle_skipped_lock_held")
		return 0, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	failed := 0
	for _, job := range s.registry.Jobs() {
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":   len(s.registry.Names()),
		"failed": failed,
	}), "cron.cycle_complete")
	return failed, nil
}

func (s *Service) logCycle(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(name, elapsed)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		s.metrics.IncFailure(name)
		return false
	}
	s.logg.Info(jobCtx, "cron.job_complete")
	s.metrics.IncSuccess(name)
	return true
}
