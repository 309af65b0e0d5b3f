package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline time.Time
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	t.deadline, _ = ctx.Deadline()
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	sweep := &testJob{name: "pending-order-sweep", err: errors.New("boom")}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service := newTestService(t, lock, sweep, retention)

	failed, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected 1 failed job, got %d", failed)
	}
	if sweep.runs != 1 || retention.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", sweep.runs, retention.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
	if retention.deadline.IsZero() {
		t.Fatal("expected job context to carry a deadline")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "pending-order-sweep"}
	service := newTestService(t, &fakeLock{held: true}, job)

	failed, err := service.RunOnce(context.Background())
	if err != nil || failed != 0 {
		t.Fatalf("expected clean skip, got failed=%d err=%v", failed, err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock")
	}
}

func TestNewServiceDefaults(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger required")
	}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if service.interval != defaultInterval || service.jobTimeout != defaultJobTimeout {
		t.Fatalf("unexpected defaults interval=%v timeout=%v", service.interval, service.jobTimeout)
	}
}
