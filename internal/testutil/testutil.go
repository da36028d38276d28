// Package testutil provides shared test helpers: temporary vaults and an
// in-memory remote task service.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/storage"
)

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// FakeRemote is an in-memory implementation of remote.Service with one
// default list.
type FakeRemote struct {
	mu     sync.Mutex
	lists  []models.ListRef
	tasks  map[string][]models.RemoteTask
	nextID int

	// Calls counts every API invocation, for asserting quiescence.
	calls int
}

// NewFakeRemote creates a FakeRemote with a single well-known default list.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		lists: []models.ListRef{{ID: "l1", Name: "Tasks", WellKnown: "defaultList"}},
		tasks: map[string][]models.RemoteTask{},
	}
}

// Seed adds a task to the default list and returns it.
func (f *FakeRemote) Seed(rt models.RemoteTask) models.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt.ListID = "l1"
	if rt.Status == "" {
		rt.Status = models.StatusNotStarted
	}
	if rt.Importance == "" {
		rt.Importance = models.PriorityNormal
	}
	f.tasks["l1"] = append(f.tasks["l1"], rt)
	return rt
}

// Calls returns the number of API invocations so far.
func (f *FakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Tasks returns a copy of the tasks in the given list.
func (f *FakeRemote) Tasks(listID string) []models.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteTask(nil), f.tasks[listID]...)
}

// ListLists implements remote.Service.
func (f *FakeRemote) ListLists(context.Context) ([]models.ListRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]models.ListRef(nil), f.lists...), nil
}

// ListTasks implements remote.Service.
func (f *FakeRemote) ListTasks(_ context.Context, listID string) ([]models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]models.RemoteTask(nil), f.tasks[listID]...), nil
}

// CreateTask implements remote.Service.
func (f *FakeRemote) CreateTask(_ context.Context, listID string, draft models.RemoteTaskDraft) (models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nextID++
	rt := models.RemoteTask{
		ID:         fmt.Sprintf("fake%d", f.nextID),
		ListID:     listID,
		Title:      draft.Title,
		Status:     draft.Status,
		Importance: draft.Importance,
		Due:        draft.Due,
		Body:       draft.Body,
	}
	f.tasks[listID] = append(f.tasks[listID], rt)
	return rt, nil
}

// PatchTask implements remote.Service.
func (f *FakeRemote) PatchTask(_ context.Context, listID, taskID string, patch models.TaskPatch) (models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, t := range f.tasks[listID] {
		if t.ID != taskID {
			continue
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Importance != nil {
			t.Importance = *patch.Importance
		}
		if patch.Due != nil {
			t.Due = *patch.Due
		}
		if patch.Body != nil {
			t.Body = *patch.Body
		}
		f.tasks[listID][i] = t
		return t, nil
	}
	return models.RemoteTask{}, apperr.ErrNotFound
}

// FindListContaining implements remote.Service.
func (f *FakeRemote) FindListContaining(_ context.Context, taskID string) (models.ListRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, l := range f.lists {
		for _, t := range f.tasks[l.ID] {
			if t.ID == taskID {
				return l, nil
			}
		}
	}
	return models.ListRef{}, apperr.ErrNotFound
}
