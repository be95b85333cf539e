package api

import (
	"context"

	"todo-api/domain"
)

// TaskService is the use-case layer the handlers delegate to.
type TaskService interface {
	ListTasks(ctx context.Context, limit int) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, in domain.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// HealthChecker verifies that the task backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// EventSink delivers task events to a durable queue.
type EventSink interface {
	EnqueueEvents(ctx context.Context, events []domain.TaskEvent) error
}
