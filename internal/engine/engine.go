// Package engine implements the two-way synchronization between the vault's
// checklist tasks and the remote list service: indexing both sides, diffing
// each linked pair, resolving conflicts, and issuing the resulting writes.
//
// A pass has three phases. The gather phase fans out I/O and joins before
// any decision is made. Resolution then runs on a single goroutine because
// the ledger and suppression set are shared across pairs without any lock.
// Finally the decided write operations are dispatched concurrently and
// allowed to settle individually.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/remote"
	"github.com/starford/gebo/internal/storage"
)

// Config holds the engine's tunables.
type Config struct {
	// DefaultList is the preferred destination list name for new remote
	// tasks. Empty means "use the service's well-known default".
	DefaultList string
	// TasksDoc is the vault document new tasks from the remote side land
	// in when no better destination exists.
	TasksDoc string
	// SuppressWindow is how long a just-written remote identifier stays
	// suppressed after the end of the pass that wrote it.
	SuppressWindow time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		TasksDoc:       "Tasks.md",
		SuppressWindow: 5 * time.Second,
	}
}

// ledgerEntry is the last state this engine agreed on for one remote
// identifier. It lives only for the lifetime of the process.
type ledgerEntry struct {
	completed bool
	syncedAt  time.Time
}

// Engine owns the per-pass sync algorithm and all cross-pass state. It is
// not safe for concurrent passes; serialization of PerformSync calls is the
// caller's responsibility.
type Engine struct {
	store  storage.Provider
	remote remote.Service
	cfg    Config
	logger *slog.Logger

	ledger   map[string]ledgerEntry
	suppress *suppressor
	docLocks *keyedLocks
}

// New creates an Engine. The ledger starts empty, so every pair is treated
// as first contact after a restart.
func New(store storage.Provider, svc remote.Service, cfg Config, logger *slog.Logger) *Engine {
	if cfg.TasksDoc == "" {
		cfg.TasksDoc = "Tasks.md"
	}
	if cfg.SuppressWindow <= 0 {
		cfg.SuppressWindow = 5 * time.Second
	}
	return &Engine{
		store:    store,
		remote:   svc,
		cfg:      cfg,
		logger:   logger,
		ledger:   make(map[string]ledgerEntry),
		suppress: newSuppressor(),
		docLocks: newKeyedLocks(),
	}
}

// Close cancels the engine's suppression-release timers.
func (e *Engine) Close() {
	e.suppress.Close()
}

// Report summarizes one sync pass.
type Report struct {
	Started       time.Time     `json:"started"`
	Duration      time.Duration `json:"duration"`
	Pushed        int           `json:"pushed"`
	Pulled        int           `json:"pulled"`
	CreatedRemote int           `json:"created_remote"`
	CreatedLocal  int           `json:"created_local"`
	Unlinked      int           `json:"unlinked"`
	Skipped       int           `json:"skipped"`
	Failures      int           `json:"failures"`
}

// Writes returns the number of write operations the pass performed.
func (r Report) Writes() int {
	return r.Pushed + r.Pulled + r.CreatedRemote + r.CreatedLocal + r.Unlinked
}

// PerformSync runs one full synchronization pass. A remote API failure
// during indexing fails the pass; individual write-back failures are logged,
// counted, and do not abort the rest.
func (e *Engine) PerformSync(ctx context.Context) (Report, error) {
	rep := Report{Started: time.Now()}

	snap, err := e.gather(ctx)
	if err != nil {
		return rep, err
	}

	ops := e.resolve(snap, &rep)
	e.apply(ctx, ops, &rep)

	e.suppress.scheduleRelease(e.cfg.SuppressWindow)
	rep.Duration = time.Since(rep.Started)

	e.logger.Info("sync pass complete",
		slog.Duration("took", rep.Duration),
		slog.Int("pushed", rep.Pushed),
		slog.Int("pulled", rep.Pulled),
		slog.Int("created_remote", rep.CreatedRemote),
		slog.Int("created_local", rep.CreatedLocal),
		slog.Int("unlinked", rep.Unlinked),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failures", rep.Failures))
	return rep, nil
}

// keyedLocks serializes read-modify-write cycles per document path during
// the concurrent write-back phase.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// projectLocal computes the comparable state of a local task.
func projectLocal(lt models.LocalTask, normalize func(string) string) models.ProjectedState {
	return models.ProjectedState{
		Completed: lt.Done,
		Title:     normalize(lt.Text),
		Priority:  lt.Priority,
		Due:       lt.Due,
	}
}

// projectRemote computes the comparable state of a remote task.
func projectRemote(rt models.RemoteTask, normalize func(string) string) models.ProjectedState {
	p := rt.Importance
	if p == "" {
		p = models.PriorityNormal
	}
	return models.ProjectedState{
		Completed: rt.Status.Completed(),
		Title:     normalize(rt.Title),
		Priority:  p,
		Due:       rt.Due,
	}
}
