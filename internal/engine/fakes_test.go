package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/checksum"
	"github.com/starford/gebo/internal/models"
)

// memStore is an in-memory storage.Provider.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]string
	writes int
}

func newMemStore(docs map[string]string) *memStore {
	if docs == nil {
		docs = make(map[string]string)
	}
	return &memStore{docs: docs}
}

func (m *memStore) List(string) ([]models.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentRef
	for p, text := range m.docs {
		if !strings.HasSuffix(p, ".md") {
			continue
		}
		out = append(out, models.DocumentRef{Path: p, Checksum: checksum.Sum([]byte(text))})
	}
	return out, nil
}

func (m *memStore) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("memstore: read %s: %w", path, apperr.ErrNotFound)
	}
	return []byte(text), nil
}

func (m *memStore) Write(path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = string(content)
	m.writes++
	return nil
}

func (m *memStore) Create(path string, initial []byte) (models.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[path]; ok {
		return models.DocumentRef{}, apperr.ErrAlreadyExists
	}
	m.docs[path] = string(initial)
	m.writes++
	return models.DocumentRef{Path: path, Checksum: checksum.Sum(initial)}, nil
}

func (m *memStore) doc(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[path]
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fakeRemote is an in-memory remote.Service.
type fakeRemote struct {
	mu      sync.Mutex
	lists   []models.ListRef
	tasks   map[string][]models.RemoteTask // listID -> tasks
	nextID  int
	patches int
	creates int
	listErr error
}

func newFakeRemote(lists ...models.ListRef) *fakeRemote {
	if len(lists) == 0 {
		lists = []models.ListRef{{ID: "l1", Name: "Tasks", WellKnown: "defaultList"}}
	}
	return &fakeRemote{lists: lists, tasks: make(map[string][]models.RemoteTask)}
}

func (f *fakeRemote) add(listID string, rt models.RemoteTask) models.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt.ListID = listID
	if rt.Importance == "" {
		rt.Importance = models.PriorityNormal
	}
	if rt.Status == "" {
		rt.Status = models.StatusNotStarted
	}
	f.tasks[listID] = append(f.tasks[listID], rt)
	return rt
}

func (f *fakeRemote) get(id string) (models.RemoteTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ts := range f.tasks {
		for _, t := range ts {
			if t.ID == id {
				return t, true
			}
		}
	}
	return models.RemoteTask{}, false
}

func (f *fakeRemote) setStatus(id string, st models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for lid, ts := range f.tasks {
		for i, t := range ts {
			if t.ID == id {
				f.tasks[lid][i].Status = st
			}
		}
	}
}

func (f *fakeRemote) ListLists(context.Context) ([]models.ListRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.ListRef(nil), f.lists...), nil
}

func (f *fakeRemote) ListTasks(_ context.Context, listID string) ([]models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteTask(nil), f.tasks[listID]...), nil
}

func (f *fakeRemote) CreateTask(_ context.Context, listID string, draft models.RemoteTaskDraft) (models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.nextID++
	rt := models.RemoteTask{
		ID:         fmt.Sprintf("r%d", f.nextID),
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

func (f *fakeRemote) PatchTask(_ context.Context, listID, taskID string, patch models.TaskPatch) (models.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches++
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

func (f *fakeRemote) FindListContaining(_ context.Context, taskID string) (models.ListRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		for _, t := range f.tasks[l.ID] {
			if t.ID == taskID {
				return l, nil
			}
		}
	}
	return models.ListRef{}, apperr.ErrNotFound
}
