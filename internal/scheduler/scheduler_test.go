package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OpsPulse/opspulse/internal/config"
)

type memRecorder struct {
	mu   sync.Mutex
	vals map[string]string
}

func (r *memRecorder) SetSetting(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vals == nil {
		r.vals = make(map[string]string)
	}
	r.vals[key] = value
	return nil
}

func (r *memRecorder) get(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vals[key]
}

func testScheduler(t *testing.T, maxConc int) (*Scheduler, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	s := New(config.SchedulerConfig{
		TickInterval:  time.Minute,
		LockPath:      filepath.Join(t.TempDir(), "sched.lock"),
		MaxConcurrent: maxConc,
	}, rec)
	return s, rec
}

func TestTickDispatchesMatchingJobs(t *testing.T) {
	s, rec := testScheduler(t, 2)
	ran := make(chan string, 2)

	every, _ := ParseCron("* * * * *")
	nightly, _ := ParseCron("30 2 * * *")
	s.Register(&Job{Name: "always", Cron: every, Run: func(ctx context.Context) error {
		ran <- "always"
		return nil
	}})
	s.Register(&Job{Name: "nightly", Cron: nightly, Run: func(ctx context.Context) error {
		ran <- "nightly"
		return nil
	}})

	s.tick(context.Background(), time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))

	select {
	case name := <-ran:
		if name != "always" {
			t.Errorf("expected the always job, got %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	select {
	case name := <-ran:
		t.Errorf("nightly job should not have run at 14:00, got %q", name)
	case <-time.After(100 * time.Millisecond):
	}

	waitFor(t, func() bool { return rec.get("scheduler.always.last_run") != "" })
}

func TestDispatchSkipsAtConcurrencyLimit(t *testing.T) {
	s, rec := testScheduler(t, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	every, _ := ParseCron("* * * * *")
	s.Register(&Job{Name: "slow", Cron: every, Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})
	s.Register(&Job{Name: "starved", Cron: every, Run: func(ctx context.Context) error {
		return nil
	}})

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	s.tick(context.Background(), now)
	<-started

	waitFor(t, func() bool {
		// One of the two jobs ran, the other was skipped on the shared slot.
		// Map iteration order decides which.
		return rec.get("scheduler.slow.last_run") != "" || rec.get("scheduler.starved.last_run") != ""
	})
	close(release)
}

func TestJobsSnapshot(t *testing.T) {
	s, _ := testScheduler(t, 2)
	every, _ := ParseCron("* * * * *")
	s.Register(&Job{Name: "a", Cron: every, Run: func(ctx context.Context) error { return nil }})
	s.Register(&Job{Name: "b", Cron: every, Run: func(ctx context.Context) error { return nil }})
	if len(s.Jobs()) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(s.Jobs()))
	}
	s.Unregister("a")
	if len(s.Jobs()) != 1 {
		t.Fatalf("expected 1 job after unregister, got %d", len(s.Jobs()))
	}
}

func TestFileLockExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	a := NewFileLock(path)
	b := NewFileLock(path)

	got, err := a.TryLock()
	if err != nil || !got {
		t.Fatalf("first lock: got=%v err=%v", got, err)
	}
	got, err = b.TryLock()
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if got {
		t.Error("second lock should not be acquired while the first holds it")
	}
	if err := a.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	got, err = b.TryLock()
	if err != nil || !got {
		t.Fatalf("relock after release: got=%v err=%v", got, err)
	}
	b.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
