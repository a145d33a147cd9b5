package api

import (
	"context"

	"tasks-api/domain"
)

// Storage abstracts task persistence for handlers.
type Storage interface {
	InsertTask(ctx context.Context, task domain.Task) error
	ListTasks(ctx context.Context, pageToken string, limit int) ([]domain.Task, string, error)
	MarkTaskDone(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
}
