package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/parser"
)

// writeOp is one decided write-back operation. Ops run concurrently; each
// settles on its own and a failure never aborts the others.
type writeOp interface {
	run(ctx context.Context, e *Engine) error
	describe() string
	count(rep *Report)
}

// apply dispatches all ops concurrently and waits for every one to settle.
// Failures are logged and counted; the pass itself still succeeds.
func (e *Engine) apply(ctx context.Context, ops []writeOp, rep *Report) {
	if len(ops) == 0 {
		return
	}
	errs := make([]error, len(ops))
	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = op.run(ctx, e)
		}()
	}
	wg.Wait()

	for i, op := range ops {
		if errs[i] != nil {
			e.logger.Warn("write-back failed",
				slog.String("op", op.describe()),
				slog.String("error", errs[i].Error()))
			rep.Failures++
			continue
		}
		op.count(rep)
	}
}

// rewriteLine patches one line of a document in place. The patch is
// positional and best-effort: if the document changed shape since indexing
// the write may land on the wrong line, which is logged but not corrected.
func (e *Engine) rewriteLine(doc string, line int, expectedRaw string, rewrite func(string) string) error {
	unlock := e.docLocks.lock(doc)
	defer unlock()

	data, err := e.store.Read(doc)
	if err != nil {
		return fmt.Errorf("engine: reread %s: %w", doc, err)
	}
	lines := strings.Split(string(data), "\n")
	if line < 0 || line >= len(lines) {
		return fmt.Errorf("engine: line %d out of range in %s", line, doc)
	}
	if lines[line] != expectedRaw {
		e.logger.Warn("document changed since indexing, patching current line anyway",
			slog.String("doc", doc),
			slog.Int("line", line))
	}
	lines[line] = rewrite(lines[line])
	return e.store.Write(doc, []byte(strings.Join(lines, "\n")))
}

// appendLine adds a line to the end of doc (creating it when create is
// true) and returns the zero-based index the line landed on.
func (e *Engine) appendLine(doc, line string) (int, error) {
	unlock := e.docLocks.lock(doc)
	defer unlock()

	data, err := e.store.Read(doc)
	if err != nil {
		// Not present yet: start a fresh document.
		if _, cerr := e.store.Create(doc, []byte(line+"\n")); cerr != nil {
			return 0, fmt.Errorf("engine: create %s: %w", doc, cerr)
		}
		return 0, nil
	}
	text := string(data)
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	at := strings.Count(text, "\n")
	if err := e.store.Write(doc, []byte(text+line+"\n")); err != nil {
		return 0, fmt.Errorf("engine: append to %s: %w", doc, err)
	}
	return at, nil
}

// listIDFor returns the list owning rt, falling back to a remote scan when
// the snapshot did not record one.
func (e *Engine) listIDFor(ctx context.Context, rt models.RemoteTask) (string, error) {
	if rt.ListID != "" {
		return rt.ListID, nil
	}
	l, err := e.remote.FindListContaining(ctx, rt.ID)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

// pushContentOp replaces the remote task's title, priority, due date, and
// completion with the local side's values.
type pushContentOp struct {
	local  models.LocalTask
	remote models.RemoteTask
	state  models.ProjectedState
}

func (o *pushContentOp) run(ctx context.Context, e *Engine) error {
	listID, err := e.listIDFor(ctx, o.remote)
	if err != nil {
		return err
	}
	status := models.StatusForCompleted(o.state.Completed)
	prio := o.state.Priority
	due := o.state.Due
	title := o.state.Title
	_, err = e.remote.PatchTask(ctx, listID, o.remote.ID, models.TaskPatch{
		Title:      &title,
		Status:     &status,
		Importance: &prio,
		Due:        &due,
	})
	return err
}

func (o *pushContentOp) describe() string {
	return fmt.Sprintf("push content %s:%d -> %s", o.local.Doc, o.local.Line, o.remote.ID)
}

func (o *pushContentOp) count(rep *Report) { rep.Pushed++ }

// pushCompletionOp pushes the winning completion flag to the remote side.
type pushCompletionOp struct {
	local  models.LocalTask
	remote models.RemoteTask
	done   bool
}

func (o *pushCompletionOp) run(ctx context.Context, e *Engine) error {
	listID, err := e.listIDFor(ctx, o.remote)
	if err != nil {
		return err
	}
	status := models.StatusForCompleted(o.done)
	_, err = e.remote.PatchTask(ctx, listID, o.remote.ID, models.TaskPatch{Status: &status})
	return err
}

func (o *pushCompletionOp) describe() string {
	return fmt.Sprintf("push completion %s:%d -> %s", o.local.Doc, o.local.Line, o.remote.ID)
}

func (o *pushCompletionOp) count(rep *Report) { rep.Pushed++ }

// pullCompletionOp rewrites the local checkbox to the winning state.
type pullCompletionOp struct {
	local models.LocalTask
	done  bool
}

func (o *pullCompletionOp) run(ctx context.Context, e *Engine) error {
	return e.rewriteLine(o.local.Doc, o.local.Line, o.local.Raw, func(cur string) string {
		return parser.SetCompleted(cur, o.done)
	})
}

func (o *pullCompletionOp) describe() string {
	return fmt.Sprintf("pull completion -> %s:%d", o.local.Doc, o.local.Line)
}

func (o *pullCompletionOp) count(rep *Report) { rep.Pulled++ }

// createRemoteOp creates a remote task for a local-only line, then writes
// the assigned identifier back as a link marker on that line.
type createRemoteOp struct {
	local models.LocalTask
	list  models.ListRef
}

func (o *createRemoteOp) run(ctx context.Context, e *Engine) error {
	created, err := e.remote.CreateTask(ctx, o.list.ID, parser.ToRemoteDraft(o.local))
	if err != nil {
		return err
	}
	return e.rewriteLine(o.local.Doc, o.local.Line, o.local.Raw, func(cur string) string {
		return parser.AppendLink(cur, created.ID)
	})
}

func (o *createRemoteOp) describe() string {
	return fmt.Sprintf("create remote from %s:%d in list %s", o.local.Doc, o.local.Line, o.list.Name)
}

func (o *createRemoteOp) count(rep *Report) { rep.CreatedRemote++ }

// createLocalOp appends a remote-only task to the destination document and
// best-effort records the back-reference on the remote body.
type createLocalOp struct {
	remote models.RemoteTask
	doc    string
}

func (o *createLocalOp) run(ctx context.Context, e *Engine) error {
	at, err := e.appendLine(o.doc, parser.ToLocalText(o.remote))
	if err != nil {
		return err
	}
	// Back-reference is best-effort; a failure here leaves the local line
	// in place and is not a pair failure.
	listID, err := e.listIDFor(ctx, o.remote)
	if err == nil {
		body := fmt.Sprintf("gebo-ref: %s:%d", o.doc, at)
		if _, perr := e.remote.PatchTask(ctx, listID, o.remote.ID, models.TaskPatch{Body: &body}); perr != nil {
			err = perr
		}
	}
	if err != nil {
		e.logger.Warn("back-reference not recorded",
			slog.String("remote_id", o.remote.ID),
			slog.String("error", err.Error()))
	}
	return nil
}

func (o *createLocalOp) describe() string {
	return fmt.Sprintf("create local %s in %s", o.remote.ID, o.doc)
}

func (o *createLocalOp) count(rep *Report) { rep.CreatedLocal++ }

// unlinkOp strips a dangling link marker, leaving the rest of the line as
// it was.
type unlinkOp struct {
	local models.LocalTask
}

func (o *unlinkOp) run(ctx context.Context, e *Engine) error {
	return e.rewriteLine(o.local.Doc, o.local.Line, o.local.Raw, parser.StripLink)
}

func (o *unlinkOp) describe() string {
	return fmt.Sprintf("unlink %s at %s:%d", o.local.RemoteID, o.local.Doc, o.local.Line)
}

func (o *unlinkOp) count(rep *Report) { rep.Unlinked++ }
