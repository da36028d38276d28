package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, srv.Client())
}

func TestListLists(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lists" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"value":[
			{"id":"l1","displayName":"Tasks","wellknownListName":"defaultList"},
			{"id":"l2","displayName":"Work"}]}`))
	}))
	lists, err := c.ListLists(context.Background())
	if err != nil {
		t.Fatalf("ListLists: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("len(lists) = %d", len(lists))
	}
	if lists[0].WellKnown != "defaultList" || lists[1].Name != "Work" {
		t.Errorf("lists = %+v", lists)
	}
}

func TestListTasks_DueDateAndDefaults(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[
			{"id":"t1","title":"Ship it","status":"completed","importance":"high",
			 "dueDateTime":{"dateTime":"2026-09-01T00:00:00.0000000","timeZone":"UTC"}},
			{"id":"t2","title":"Bare"}]}`))
	}))
	tasks, err := c.ListTasks(context.Background(), "l1")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks[0].Due != "2026-09-01" || !tasks[0].Status.Completed() {
		t.Errorf("task[0] = %+v", tasks[0])
	}
	if tasks[1].Importance != models.PriorityNormal || tasks[1].Status != models.StatusNotStarted {
		t.Errorf("defaults not applied: %+v", tasks[1])
	}
	if tasks[0].ListID != "l1" {
		t.Errorf("list id = %q", tasks[0].ListID)
	}
}

func TestCreateTask_SendsDraft(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/lists/l1/tasks" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["title"] != "New task" || body["importance"] != "high" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"created1","title":"New task","status":"notStarted","importance":"high"}`))
	}))
	rt, err := c.CreateTask(context.Background(), "l1", models.RemoteTaskDraft{
		Title:      "New task",
		Status:     models.StatusNotStarted,
		Importance: models.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if rt.ID != "created1" {
		t.Errorf("id = %q", rt.ID)
	}
}

func TestPatchTask_PartialFields(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["title"]; ok {
			t.Error("title should be absent from a status-only patch")
		}
		if body["status"] != "completed" {
			t.Errorf("status = %v", body["status"])
		}
		_, _ = w.Write([]byte(`{"id":"t1","title":"Ship it","status":"completed"}`))
	}))
	st := models.StatusCompleted
	rt, err := c.PatchTask(context.Background(), "l1", "t1", models.TaskPatch{Status: &st})
	if err != nil {
		t.Fatalf("PatchTask: %v", err)
	}
	if !rt.Status.Completed() {
		t.Errorf("status = %v", rt.Status)
	}
}

func TestAPIError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	}))
	_, err := c.ListLists(context.Background())
	ae, ok := apperr.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", ae.Status)
	}
}

func TestFindListContaining(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lists":
			_, _ = w.Write([]byte(`{"value":[{"id":"l1","displayName":"A"},{"id":"l2","displayName":"B"}]}`))
		case "/lists/l1/tasks":
			_, _ = w.Write([]byte(`{"value":[]}`))
		case "/lists/l2/tasks":
			_, _ = w.Write([]byte(`{"value":[{"id":"needle","title":"x"}]}`))
		}
	}))
	l, err := c.FindListContaining(context.Background(), "needle")
	if err != nil {
		t.Fatalf("FindListContaining: %v", err)
	}
	if l.ID != "l2" {
		t.Errorf("list = %+v", l)
	}

	_, err = c.FindListContaining(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
