package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// Client talks JSON over HTTP to the task service. Collection endpoints wrap
// their payload in a {"value": [...]} envelope.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a Client for baseURL authenticating every request with
// the given bearer token via an oauth2 transport.
func NewClient(baseURL, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: oauth2.NewClient(context.Background(), src),
	}
}

// NewClientWithHTTP is used by tests to inject a plain transport.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Wire representations. Dates travel as a nested dateTime object the way
// list-service APIs commonly model "date only in some time zone".
type wireDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type wireBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type wireTask struct {
	ID           string        `json:"id,omitempty"`
	Title        string        `json:"title,omitempty"`
	Status       string        `json:"status,omitempty"`
	Importance   string        `json:"importance,omitempty"`
	DueDateTime  *wireDateTime `json:"dueDateTime,omitempty"`
	CreatedAt    *time.Time    `json:"createdDateTime,omitempty"`
	ModifiedAt   *time.Time    `json:"lastModifiedDateTime,omitempty"`
	Body         *wireBody     `json:"body,omitempty"`
}

type wireList struct {
	ID        string `json:"id"`
	Name      string `json:"displayName"`
	WellKnown string `json:"wellknownListName,omitempty"`
}

type valueEnvelope[T any] struct {
	Value []T `json:"value"`
}

// ListLists implements Service.
func (c *Client) ListLists(ctx context.Context) ([]models.ListRef, error) {
	var env valueEnvelope[wireList]
	if err := c.do(ctx, http.MethodGet, "/lists", nil, &env); err != nil {
		return nil, err
	}
	out := make([]models.ListRef, len(env.Value))
	for i, wl := range env.Value {
		out[i] = models.ListRef{ID: wl.ID, Name: wl.Name, WellKnown: wl.WellKnown}
	}
	return out, nil
}

// ListTasks implements Service.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]models.RemoteTask, error) {
	var env valueEnvelope[wireTask]
	if err := c.do(ctx, http.MethodGet, "/lists/"+listID+"/tasks", nil, &env); err != nil {
		return nil, err
	}
	out := make([]models.RemoteTask, len(env.Value))
	for i, wt := range env.Value {
		out[i] = fromWire(wt, listID)
	}
	return out, nil
}

// CreateTask implements Service.
func (c *Client) CreateTask(ctx context.Context, listID string, draft models.RemoteTaskDraft) (models.RemoteTask, error) {
	req := wireTask{
		Title:      draft.Title,
		Status:     string(draft.Status),
		Importance: string(draft.Importance),
	}
	if draft.Due != "" {
		req.DueDateTime = &wireDateTime{DateTime: draft.Due + "T00:00:00.0000000", TimeZone: "UTC"}
	}
	if draft.Body != "" {
		req.Body = &wireBody{Content: draft.Body, ContentType: "text"}
	}
	var resp wireTask
	if err := c.do(ctx, http.MethodPost, "/lists/"+listID+"/tasks", req, &resp); err != nil {
		return models.RemoteTask{}, err
	}
	return fromWire(resp, listID), nil
}

// PatchTask implements Service.
func (c *Client) PatchTask(ctx context.Context, listID, taskID string, patch models.TaskPatch) (models.RemoteTask, error) {
	req := map[string]any{}
	if patch.Title != nil {
		req["title"] = *patch.Title
	}
	if patch.Status != nil {
		req["status"] = string(*patch.Status)
	}
	if patch.Importance != nil {
		req["importance"] = string(*patch.Importance)
	}
	if patch.Due != nil {
		if *patch.Due == "" {
			req["dueDateTime"] = nil
		} else {
			req["dueDateTime"] = wireDateTime{DateTime: *patch.Due + "T00:00:00.0000000", TimeZone: "UTC"}
		}
	}
	if patch.Body != nil {
		req["body"] = wireBody{Content: *patch.Body, ContentType: "text"}
	}
	var resp wireTask
	if err := c.do(ctx, http.MethodPatch, "/lists/"+listID+"/tasks/"+taskID, req, &resp); err != nil {
		return models.RemoteTask{}, err
	}
	return fromWire(resp, listID), nil
}

// FindListContaining implements Service by scanning every list. It is only
// used as a fallback when a task's owning list is not already known.
func (c *Client) FindListContaining(ctx context.Context, taskID string) (models.ListRef, error) {
	lists, err := c.ListLists(ctx)
	if err != nil {
		return models.ListRef{}, err
	}
	for _, l := range lists {
		tasks, err := c.ListTasks(ctx, l.ID)
		if err != nil {
			return models.ListRef{}, err
		}
		for _, t := range tasks {
			if t.ID == taskID {
				return l, nil
			}
		}
	}
	return models.ListRef{}, fmt.Errorf("remote: list for task %s: %w", taskID, apperr.ErrNotFound)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apperr.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}

func fromWire(wt wireTask, listID string) models.RemoteTask {
	rt := models.RemoteTask{
		ID:         wt.ID,
		ListID:     listID,
		Title:      wt.Title,
		Status:     models.Status(wt.Status),
		Importance: models.Priority(wt.Importance),
	}
	if wt.CreatedAt != nil {
		rt.CreatedAt = *wt.CreatedAt
	}
	if wt.ModifiedAt != nil {
		rt.ModifiedAt = *wt.ModifiedAt
	}
	if rt.Importance == "" {
		rt.Importance = models.PriorityNormal
	}
	if rt.Status == "" {
		rt.Status = models.StatusNotStarted
	}
	if wt.DueDateTime != nil && len(wt.DueDateTime.DateTime) >= 10 {
		rt.Due = wt.DueDateTime.DateTime[:10]
	}
	if wt.Body != nil {
		rt.Body = wt.Body.Content
	}
	return rt
}
