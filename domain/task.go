package domain

import (
	"errors"
	"strings"
)

// FixedRowKey is the row key shared by every task row. Each task owns its own
// partition, so the partition key alone identifies it.
const FixedRowKey = "1"

const maxKeyLength = 1024

var (
	ErrEmptyID   = errors.New("task id is empty")
	ErrInvalidID = errors.New("invalid task id")
)

// Task represents a single item of the task list.
type Task struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Created string `json:"created"`
	IsDone  bool   `json:"isDone"`
}

// ValidateID reports whether id can be used as a table partition key.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	if len(id) > maxKeyLength {
		return ErrInvalidID
	}
	for _, r := range id {
		switch {
		case r == '/', r == '\\', r == '#', r == '?':
			return ErrInvalidID
		case r < 0x20, r >= 0x7f && r <= 0x9f:
			return ErrInvalidID
		}
	}
	return nil
}
