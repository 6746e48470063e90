package daemon_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"splice/internal/daemon"
	"splice/internal/ledger"
	"splice/internal/testsupport"
)

type fakeTracker struct {
	bootstrapErr error
	runErr       error
	runs         atomic.Int32
}

func (f *fakeTracker) Bootstrap(context.Context) (int, error) { return 0, f.bootstrapErr }

func (f *fakeTracker) Run(ctx context.Context) error {
	f.runs.Add(1)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

type fakeServer struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (f *fakeServer) Start(context.Context) error {
	f.started.Store(true)
	return nil
}

func (f *fakeServer) Stop() { f.stopped.Store(true) }

type fakeLetters []ledger.DeadLetter

func (f fakeLetters) DeadLetters(context.Context) ([]ledger.DeadLetter, error) { return f, nil }

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tracker := &fakeTracker{}
	server := &fakeServer{}
	d, err := daemon.New(cfg, nil, daemon.Components{
		Tracker:   tracker,
		Server:    server,
		SessionID: "session",
		DeadLetters: fakeLetters{
			{Status: ledger.StatusPending},
			{Status: ledger.StatusAbandoned},
		},
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !server.started.Load() {
		t.Fatal("expected api server to start")
	}

	status := d.Status(ctx)
	if !status.Running || status.SessionID != "session" || status.DeadLetters != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LockPath != d.LockPath() {
		t.Fatalf("lock path = %q", status.LockPath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Running() || !server.stopped.Load() {
		t.Fatal("expected daemon to be stopped")
	}
	if tracker.runs.Load() != 1 {
		t.Fatalf("tracker runs = %d", tracker.runs.Load())
	}
	d.Stop()
}

func TestSecondDaemonIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := daemon.New(cfg, nil, daemon.Components{Tracker: &fakeTracker{}, Server: &fakeServer{}})
	second, _ := daemon.New(cfg, nil, daemon.Components{Tracker: &fakeTracker{}, Server: &fakeServer{}})

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer first.Stop()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestBootstrapFailureReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	broken, _ := daemon.New(cfg, nil, daemon.Components{
		Tracker: &fakeTracker{bootstrapErr: errors.New("disk gone")},
		Server:  &fakeServer{},
	})
	if err := broken.Start(context.Background()); err == nil {
		t.Fatal("expected bootstrap failure")
	}

	healthy, _ := daemon.New(cfg, nil, daemon.Components{Tracker: &fakeTracker{}, Server: &fakeServer{}})
	if err := healthy.Start(context.Background()); err != nil {
		t.Fatalf("lock not released: %v", err)
	}
	healthy.Stop()
}

func TestAcquiredLockIsAdopted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := daemon.AcquireLock(cfg); err == nil {
		t.Fatal("expected second AcquireLock to fail")
	}

	d, err := daemon.New(cfg, nil, daemon.Components{Tracker: &fakeTracker{}, Server: &fakeServer{}, Lock: lock})
	if err != nil {
		t.Fatal(err)
	}
	if d.LockPath() != daemon.LockFile(cfg) {
		t.Fatalf("lock path = %q", d.LockPath())
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start with held lock: %v", err)
	}
	d.Stop()

	// The caller still owns the lock after Stop.
	if _, err := daemon.AcquireLock(cfg); err == nil {
		t.Fatal("Stop released a lock it did not take")
	}
	if err := lock.Unlock(); err != nil {
		t.Fatal(err)
	}
	again, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again.Unlock()
}

func TestWaitReturnsLoopFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := daemon.New(cfg, nil, daemon.Components{
		Tracker: &fakeTracker{runErr: errors.New("watch failed")},
		Server:  &fakeServer{},
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	done := make(chan error, 1)
	go func() { done <- d.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected tracker failure from Wait")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}
