package api

import (
	"errors"
	"strings"

	"tasks-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// HeaderNextPageToken carries the continuation token of a paged listing.
const HeaderNextPageToken = "X-Next-Page-Token"

var (
	errNameRequired    = errors.New("name is required")
	errCreatedRequired = errors.New("created is required")
	errBodyTooLarge    = errors.New("request body too large")
)

// POST /api/tasks request body
type createTaskRequest struct {
	Name    *string `json:"name"`
	Created *string `json:"created"`
	IsDone  *bool   `json:"isDone"`
}

func (r createTaskRequest) toTask(id string) (domain.Task, error) {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return domain.Task{}, errNameRequired
	}
	if r.Created == nil {
		return domain.Task{}, errCreatedRequired
	}
	task := domain.Task{ID: id, Name: *r.Name, Created: *r.Created}
	if r.IsDone != nil {
		task.IsDone = *r.IsDone
	}
	return task, nil
}

// POST /api/tasks response body
type createTaskResponse struct {
	RequestID string `json:"requestId"`
}

// PUT /api/tasks request body. Fields other than _id are ignored.
type updateTaskRequest struct {
	ID string `json:"_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}
