// Package orchestrator drives the sync engine: it serializes passes, spaces
// them out after writes, and surfaces pass outcomes to the status API, the
// history store, and the SSE stream. The engine itself holds no cross-pass
// lock; single-flight discipline lives here.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/history"
	"github.com/starford/gebo/internal/sse"
)

// Config holds the orchestrator's timing knobs.
type Config struct {
	// Interval between scheduled passes.
	Interval time.Duration
	// SettleDelay defers the start of a pass's reads after a previous
	// pass issued writes, so a local document is less likely to be read
	// mid-write.
	SettleDelay time.Duration
}

// Status is a snapshot of the orchestrator's view of the sync loop.
type Status struct {
	Running    bool          `json:"running"`
	LastPass   *engine.Report `json:"last_pass,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	PassCount  int           `json:"pass_count"`
	NextDue    time.Time     `json:"next_due"`
}

// Orchestrator owns the sync loop goroutine.
type Orchestrator struct {
	engine  *engine.Engine
	cfg     Config
	logger  *slog.Logger
	store   *history.Store // optional
	broker  *sse.Broker    // optional
	trigger chan struct{}

	mu           sync.Mutex
	running      bool
	lastPass     *engine.Report
	lastErr      error
	passCount    int
	lastWriteEnd time.Time
	nextDue      time.Time
}

// New creates an Orchestrator. store and broker may be nil.
func New(eng *engine.Engine, cfg Config, logger *slog.Logger, store *history.Store, broker *sse.Broker) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &Orchestrator{
		engine:  eng,
		cfg:     cfg,
		logger:  logger,
		store:   store,
		broker:  broker,
		trigger: make(chan struct{}, 1),
	}
}

// TriggerSync requests an on-demand pass. Requests arriving while a pass is
// already queued coalesce into one.
func (o *Orchestrator) TriggerSync() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// Status returns a snapshot for the status API and MCP tools.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		Running:   o.running,
		PassCount: o.passCount,
		NextDue:   o.nextDue,
	}
	if o.lastPass != nil {
		cp := *o.lastPass
		st.LastPass = &cp
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
	}
	return st
}

// Run executes the sync loop until ctx is cancelled. All passes run on this
// goroutine, which is what guarantees they never overlap.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	o.setNextDue(time.Now().Add(o.cfg.Interval))

	// Initial pass on startup.
	o.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator: stopped")
			return nil
		case <-ticker.C:
			o.setNextDue(time.Now().Add(o.cfg.Interval))
			o.runPass(ctx)
		case <-o.trigger:
			o.runPass(ctx)
		}
	}
}

// runPass executes one pass, honoring the settle delay after a writing pass.
func (o *Orchestrator) runPass(ctx context.Context) {
	o.mu.Lock()
	wait := o.cfg.SettleDelay - time.Since(o.lastWriteEnd)
	o.running = true
	o.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			o.setRunning(false)
			return
		}
	}

	rep, err := o.engine.PerformSync(ctx)

	o.mu.Lock()
	o.running = false
	o.passCount++
	o.lastPass = &rep
	o.lastErr = err
	if rep.Writes() > 0 {
		o.lastWriteEnd = time.Now()
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("sync pass failed", slog.String("error", err.Error()))
	}
	if o.store != nil {
		if herr := o.store.Record(rep, err); herr != nil {
			o.logger.Warn("history record failed", slog.String("error", herr.Error()))
		}
	}
	if o.broker != nil {
		o.broker.PublishSyncReport(rep)
	}
}

func (o *Orchestrator) setRunning(v bool) {
	o.mu.Lock()
	o.running = v
	o.mu.Unlock()
}

func (o *Orchestrator) setNextDue(t time.Time) {
	o.mu.Lock()
	o.nextDue = t
	o.mu.Unlock()
}
