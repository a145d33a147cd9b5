package domain

// Change event types published after a successful write.
const (
	EventTaskCreated = "task-created"
	EventTaskDone    = "task-done"
	EventTaskDeleted = "task-deleted"
)

// TaskEvent notifies downstream consumers that a task row changed.
type TaskEvent struct {
	Type      string `json:"type"`
	TaskID    string `json:"taskId"`
	Task      *Task  `json:"task,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
