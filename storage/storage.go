package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"tasks-api/domain"
)

// DefaultMaxPageSize caps the number of rows requested for a single page.
const DefaultMaxPageSize = 1000

// tableAPI is the subset of *aztables.Client used by Storage.
type tableAPI interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// queueAPI is the subset of *azqueue.QueueClient used to publish change events.
type queueAPI interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Storage persists tasks in an Azure table, one partition per task.
type Storage struct {
	taskTable   tableAPI
	events      queueAPI
	maxPageSize int
	logger      *log.Logger
}

// New creates a Storage instance from the given connection string. Change
// events are published only when eventsQueue is not empty.
func New(connStr, tasksTable, eventsQueue string, maxPageSize int, logger *log.Logger) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}

	var events queueAPI
	if eventsQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute * 5,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 60,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		events = q
	}
	return newStorage(svc.NewClient(tasksTable), events, maxPageSize, logger), nil
}

func newStorage(table tableAPI, events queueAPI, maxPageSize int, logger *log.Logger) *Storage {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Storage{taskTable: table, events: events, maxPageSize: maxPageSize, logger: logger}
}

// InsertTask adds a new row for task. It fails with ErrConflict when a row
// with the same id already exists.
func (s *Storage) InsertTask(ctx context.Context, task domain.Task) error {
	payload, err := sonic.Marshal(newTaskEntity(task))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return classify("insert task", err)
	}
	s.publish(ctx, domain.TaskEvent{Type: domain.EventTaskCreated, TaskID: task.ID, Task: &task})
	return nil
}

// ListTasks scans the table. When limit is positive a single page of at most
// limit rows is fetched and the token of the following page is returned;
// otherwise every remaining page is read.
func (s *Storage) ListTasks(ctx context.Context, pageToken string, limit int) ([]domain.Task, string, error) {
	opts := &aztables.ListEntitiesOptions{}
	if pageToken != "" {
		pk, rk, err := decodePageToken(pageToken)
		if err != nil {
			return nil, "", err
		}
		opts.NextPartitionKey = &pk
		opts.NextRowKey = &rk
	}
	if limit > 0 {
		if limit > s.maxPageSize {
			limit = s.maxPageSize
		}
		top := int32(limit)
		opts.Top = &top
	}

	pager := s.taskTable.NewListEntitiesPager(opts)
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, "", classify("list tasks", err)
		}
		for _, raw := range resp.Entities {
			task, err := decodeTaskEntity(raw)
			if err != nil {
				return nil, "", err
			}
			tasks = append(tasks, task)
		}
		if limit > 0 {
			return tasks, encodePageToken(resp.NextPartitionKey, resp.NextRowKey), nil
		}
	}
	return tasks, "", nil
}

// MarkTaskDone merges isDone=true into the task row. Other columns are left
// untouched. It fails with ErrNotFound when the task does not exist.
func (s *Storage) MarkTaskDone(ctx context.Context, id string) error {
	done := true
	t := edmBoolean
	payload, err := sonic.Marshal(taskUpdate{
		entityKeys: entityKeys{PartitionKey: id, RowKey: domain.FixedRowKey},
		IsDone:     &done,
		IsDoneType: &t,
	})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return classify("mark task done", err)
	}
	s.publish(ctx, domain.TaskEvent{Type: domain.EventTaskDone, TaskID: id})
	return nil
}

// DeleteTask removes the task row. It fails with ErrNotFound when the task
// does not exist.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	et := azcore.ETagAny
	if _, err := s.taskTable.DeleteEntity(ctx, id, domain.FixedRowKey, &aztables.DeleteEntityOptions{IfMatch: &et}); err != nil {
		return classify("delete task", err)
	}
	s.publish(ctx, domain.TaskEvent{Type: domain.EventTaskDeleted, TaskID: id})
	return nil
}
