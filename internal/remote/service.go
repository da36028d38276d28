// Package remote implements the client for the list-based task service.
package remote

import (
	"context"

	"github.com/starford/gebo/internal/models"
)

// Service is the remote task API surface the sync engine consumes. Calls are
// independent units of work; retry policy belongs to the caller.
type Service interface {
	// ListLists returns every task list visible to the account.
	ListLists(ctx context.Context) ([]models.ListRef, error)
	// ListTasks returns all tasks in the given list.
	ListTasks(ctx context.Context, listID string) ([]models.RemoteTask, error)
	// CreateTask creates a task in the given list and returns it with its
	// server-assigned identifier.
	CreateTask(ctx context.Context, listID string, draft models.RemoteTaskDraft) (models.RemoteTask, error)
	// PatchTask applies a partial update to one task.
	PatchTask(ctx context.Context, listID, taskID string, patch models.TaskPatch) (models.RemoteTask, error)
	// FindListContaining locates the list owning taskID, or
	// apperr.ErrNotFound when no list does.
	FindListContaining(ctx context.Context, taskID string) (models.ListRef, error)
}
