package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/parser"
)

// snapshot is the fully materialized view of both sides for one pass. No
// resolution decision is made until it is complete.
type snapshot struct {
	docs    map[string]string // path → raw text
	locals  []models.LocalTask
	lists   []models.ListRef
	remotes []models.RemoteTask
}

// gather reads every vault document and fetches every remote list's tasks,
// both sides in parallel. A failed read of an individual document is logged
// and skipped; a remote API failure aborts the whole pass.
func (e *Engine) gather(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{docs: make(map[string]string)}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refs, err := e.store.List("")
		if err != nil {
			return fmt.Errorf("engine: enumerate documents: %w", err)
		}
		for _, ref := range refs {
			data, err := e.store.Read(ref.Path)
			if err != nil {
				e.logger.Warn("gather: document read failed, skipping",
					slog.String("doc", ref.Path),
					slog.String("error", err.Error()))
				continue
			}
			text := string(data)
			snap.docs[ref.Path] = text
			snap.locals = append(snap.locals, parser.ParseDocument(ref.Path, text)...)
		}
		return nil
	})

	g.Go(func() error {
		lists, err := e.remote.ListLists(gctx)
		if err != nil {
			return fmt.Errorf("engine: list lists: %w", err)
		}
		snap.lists = lists

		var mu sync.Mutex
		lg, lctx := errgroup.WithContext(gctx)
		for _, l := range lists {
			lg.Go(func() error {
				tasks, err := e.remote.ListTasks(lctx, l.ID)
				if err != nil {
					return fmt.Errorf("engine: list tasks of %s: %w", l.Name, err)
				}
				mu.Lock()
				snap.remotes = append(snap.remotes, tasks...)
				mu.Unlock()
				return nil
			})
		}
		return lg.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// pairIndex holds the per-pass lookup structures.
type pairIndex struct {
	remoteByID      map[string]models.RemoteTask
	localByRemoteID map[string]models.LocalTask
}

// buildIndex keys both sides by remote identifier. Duplicate remote
// identifiers should not occur; last one wins. Duplicate local links to the
// same identifier keep the first occurrence.
func (e *Engine) buildIndex(snap *snapshot) pairIndex {
	idx := pairIndex{
		remoteByID:      make(map[string]models.RemoteTask, len(snap.remotes)),
		localByRemoteID: make(map[string]models.LocalTask),
	}
	for _, rt := range snap.remotes {
		idx.remoteByID[rt.ID] = rt
	}
	for _, lt := range snap.locals {
		if lt.RemoteID == "" {
			continue
		}
		if prev, ok := idx.localByRemoteID[lt.RemoteID]; ok {
			e.logger.Warn("index: duplicate local link",
				slog.String("remote_id", lt.RemoteID),
				slog.String("kept", fmt.Sprintf("%s:%d", prev.Doc, prev.Line)),
				slog.String("ignored", fmt.Sprintf("%s:%d", lt.Doc, lt.Line)))
			continue
		}
		idx.localByRemoteID[lt.RemoteID] = lt
	}
	return idx
}
