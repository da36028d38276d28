package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/testutil"
)

func testOrchestrator(t *testing.T, cfg Config) (*Orchestrator, string, *testutil.FakeRemote) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	svc := testutil.NewFakeRemote()
	eng := engine.New(store, svc, engine.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(eng.Close)
	o := New(eng, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)
	return o, dir, svc
}

func TestRun_InitialPassAndTrigger(t *testing.T) {
	o, dir, svc := testOrchestrator(t, Config{Interval: time.Hour})

	if err := os.WriteFile(filepath.Join(dir, "todo.md"), []byte("- [ ] one local task\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = o.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return o.Status().PassCount >= 1 })

	if got := svc.Tasks("l1"); len(got) != 1 {
		t.Errorf("remote tasks after initial pass = %d, want 1", len(got))
	}

	// On-demand trigger runs one more pass.
	o.TriggerSync()
	waitFor(t, func() bool { return o.Status().PassCount >= 2 })

	st := o.Status()
	if st.LastPass == nil {
		t.Fatal("status has no last pass")
	}
	if st.LastError != "" {
		t.Errorf("last error = %q", st.LastError)
	}

	cancel()
	<-done
}

func TestTriggerSync_Coalesces(t *testing.T) {
	o, _, _ := testOrchestrator(t, Config{Interval: time.Hour})
	// Without a running loop, repeated triggers must not block: the channel
	// holds at most one pending request.
	for i := 0; i < 10; i++ {
		o.TriggerSync()
	}
	if len(o.trigger) != 1 {
		t.Errorf("pending triggers = %d, want 1", len(o.trigger))
	}
}

func TestSettleDelay_DefersNextPass(t *testing.T) {
	o, dir, _ := testOrchestrator(t, Config{Interval: time.Hour, SettleDelay: 150 * time.Millisecond})

	if err := os.WriteFile(filepath.Join(dir, "todo.md"), []byte("- [ ] task\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Run(ctx) }()

	// Initial pass writes (remote create + link-back).
	waitFor(t, func() bool { return o.Status().PassCount >= 1 })
	start := time.Now()
	o.TriggerSync()
	waitFor(t, func() bool { return o.Status().PassCount >= 2 })
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second pass started after %v, want settle delay honored", elapsed)
	}
}

func TestWatch_TriggersOnMarkdownChange(t *testing.T) {
	o, dir, _ := testOrchestrator(t, Config{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Watch(ctx, dir, 50*time.Millisecond) }()
	time.Sleep(100 * time.Millisecond) // let the watcher arm

	if err := os.WriteFile(filepath.Join(dir, "note.md"), []byte("- [ ] new\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(o.trigger) == 1 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}
