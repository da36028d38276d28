package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/parser"
)

// resolve walks both indices and decides, for every task, which write (if
// any) reconciles the two sides. It runs strictly sequentially: the ledger
// and the suppression set are mutated here and nowhere else. The ledger is
// updated at decision time, whether or not the write later succeeds.
func (e *Engine) resolve(snap *snapshot, rep *Report) []writeOp {
	idx := e.buildIndex(snap)
	now := time.Now()
	var ops []writeOp

	// Destination list for new remote tasks, resolved once per pass.
	destList, destListErr := pickList(snap.lists, e.cfg.DefaultList)

	for _, lt := range snap.locals {
		switch {
		case lt.RemoteID == "":
			// New on the local side.
			if destListErr != nil {
				e.logger.Error("resolve: cannot create remote task",
					slog.String("doc", lt.Doc),
					slog.Int("line", lt.Line),
					slog.String("error", destListErr.Error()))
				rep.Failures++
				continue
			}
			ops = append(ops, &createRemoteOp{local: lt, list: destList})

		default:
			rt, ok := idx.remoteByID[lt.RemoteID]
			if !ok {
				// Remote task is gone; drop the link, keep the line.
				ops = append(ops, &unlinkOp{local: lt})
				continue
			}
			if prev, dup := idx.localByRemoteID[lt.RemoteID]; dup && (prev.Doc != lt.Doc || prev.Line != lt.Line) {
				// Duplicate link; only the indexed occurrence is resolved.
				continue
			}
			if op := e.resolvePair(lt, rt, now, rep); op != nil {
				ops = append(ops, op)
			}
		}
	}

	for _, rt := range snap.remotes {
		if _, linked := idx.localByRemoteID[rt.ID]; linked {
			continue
		}
		// New on the remote side. Guard against duplicate creation from a
		// prior partially-failed pass: the identifier may already sit in a
		// document whose link marker did not index (or in any local task).
		if localsContainID(snap.locals, rt.ID) {
			e.logger.Debug("resolve: remote task already linked locally", slog.String("remote_id", rt.ID))
			continue
		}
		destDoc, exists := e.pickDestinationDoc(snap)
		if exists && strings.Contains(snap.docs[destDoc], rt.ID) {
			e.logger.Debug("resolve: identifier already present in destination, skipping create",
				slog.String("remote_id", rt.ID),
				slog.String("doc", destDoc))
			continue
		}
		ops = append(ops, &createLocalOp{remote: rt, doc: destDoc})
	}

	return ops
}

// resolvePair applies the per-pair decision tree: suppressed pairs are
// skipped outright, equal projections only refresh the ledger, content
// differences always push local to remote, and bare completion differences
// go through the ledger-based completion policy.
func (e *Engine) resolvePair(lt models.LocalTask, rt models.RemoteTask, now time.Time, rep *Report) writeOp {
	if e.suppress.Has(rt.ID) {
		rep.Skipped++
		return nil
	}

	lp := projectLocal(lt, parser.NormalizeTitle)
	rp := projectRemote(rt, strings.TrimSpace)

	if lp == rp {
		// In agreement. Refresh the ledger so stale first-contact policy
		// does not re-trigger later.
		e.ledger[rt.ID] = ledgerEntry{completed: lp.Completed, syncedAt: now}
		return nil
	}

	contentDiffers := !lp.ContentEquals(rp)
	completionDiffers := lp.Completed != rp.Completed

	switch {
	case contentDiffers:
		// Content wins over completion: a title, priority, or date edit is
		// assumed more intentional than a checkbox toggle, so the local
		// line is pushed wholesale.
		e.ledger[rt.ID] = ledgerEntry{completed: lp.Completed, syncedAt: now}
		e.suppress.Add(rt.ID)
		return &pushContentOp{local: lt, remote: rt, state: lp}

	case completionDiffers:
		winner, toRemote := e.resolveCompletion(rt.ID, lp.Completed, rp.Completed)
		e.ledger[rt.ID] = ledgerEntry{completed: winner, syncedAt: now}
		e.suppress.Add(rt.ID)
		if toRemote {
			return &pushCompletionOp{local: lt, remote: rt, done: winner}
		}
		return &pullCompletionOp{local: lt, done: winner}

	default:
		// Unreachable given the equality check above; treated as a no-op.
		return nil
	}
}

// resolveCompletion decides which side's completion flag wins when only the
// checkbox state diverged. With a ledger entry the engine infers which side
// moved since the last agreed state; without one, or when both sides moved,
// the completed side wins (completion bias). Timestamps are deliberately not
// consulted: third-party editors and clock skew make them unreliable.
func (e *Engine) resolveCompletion(id string, local, remote bool) (winner, toRemote bool) {
	entry, seen := e.ledger[id]
	if !seen {
		// First contact (or restart): completion bias.
		return true, local
	}
	localMoved := local != entry.completed
	remoteMoved := remote != entry.completed
	switch {
	case localMoved && !remoteMoved:
		return local, true
	case remoteMoved && !localMoved:
		return remote, false
	default:
		// Both moved since the ledger: genuine concurrent edit, same bias
		// as first contact. (Neither moved is unreachable here.)
		return true, local
	}
}

// pickList resolves the destination list for new remote tasks: the
// configured name first, then the service's well-known default, then the
// first available list.
func pickList(lists []models.ListRef, preferred string) (models.ListRef, error) {
	if preferred != "" {
		for _, l := range lists {
			if strings.EqualFold(l.Name, preferred) {
				return l, nil
			}
		}
	}
	for _, l := range lists {
		if l.WellKnown == "defaultList" {
			return l, nil
		}
	}
	if len(lists) > 0 {
		return lists[0], nil
	}
	return models.ListRef{}, fmt.Errorf("engine: %w", apperr.ErrNoList)
}

// pickDestinationDoc chooses where a new local task line lands: the
// configured tasks document if it exists, else today's dated note, else the
// tasks document again (to be created).
func (e *Engine) pickDestinationDoc(snap *snapshot) (path string, exists bool) {
	for p := range snap.docs {
		if strings.EqualFold(p, e.cfg.TasksDoc) {
			return p, true
		}
	}
	daily := time.Now().Format("2006-01-02") + ".md"
	if _, ok := snap.docs[daily]; ok {
		return daily, true
	}
	return e.cfg.TasksDoc, false
}

func localsContainID(locals []models.LocalTask, id string) bool {
	for _, lt := range locals {
		if lt.RemoteID == id {
			return true
		}
	}
	return false
}
