package storage

import (
	"github.com/bytedance/sonic"

	"tasks-api/domain"
)

const edmBoolean = "Edm.Boolean"

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// taskEntity is the full row written on insert and read back on list.
type taskEntity struct {
	entityKeys
	Name       string `json:"name"`
	Created    string `json:"created"`
	IsDone     bool   `json:"isDone"`
	IsDoneType string `json:"isDone@odata.type,omitempty"`
}

// taskUpdate carries a partial row for merge operations.
type taskUpdate struct {
	entityKeys
	IsDone     *bool   `json:"isDone,omitempty"`
	IsDoneType *string `json:"isDone@odata.type,omitempty"`
}

func newTaskEntity(task domain.Task) taskEntity {
	return taskEntity{
		entityKeys: entityKeys{PartitionKey: task.ID, RowKey: domain.FixedRowKey},
		Name:       task.Name,
		Created:    task.Created,
		IsDone:     task.IsDone,
		IsDoneType: edmBoolean,
	}
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:      ent.PartitionKey,
		Name:    ent.Name,
		Created: ent.Created,
		IsDone:  ent.IsDone,
	}, nil
}
