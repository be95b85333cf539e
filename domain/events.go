package domain

import "context"

// Task event types published after a successful write.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// TaskEvent describes a change applied to the task table.
type TaskEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	TaskID    string `json:"taskId"`
	Task      *Task  `json:"task,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// EventPublisher receives task events. Implementations must not block the
// caller on slow sinks and report delivery failures themselves.
type EventPublisher interface {
	Publish(ctx context.Context, ev TaskEvent)
}
