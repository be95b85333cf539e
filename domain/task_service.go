package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultListLimit is used when ListTasks is called without a positive limit.
const DefaultListLimit = 100

// TaskStore is the key-value backend holding task records in one logical table.
type TaskStore interface {
	// ListAll returns up to limit tasks in backend order.
	ListAll(ctx context.Context, limit int) ([]Task, error)
	// GetByID returns nil without error when the task does not exist.
	GetByID(ctx context.Context, id string) (*Task, error)
	// Put creates or fully replaces the task keyed by its id.
	Put(ctx context.Context, task Task) error
	// DeleteByID removes the task; deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
}

// TaskService validates requests and translates them into store calls.
type TaskService struct {
	st        TaskStore
	publisher EventPublisher
	logger    *log.Logger
	timeout   time.Duration
	newID     func() string
}

// Option customises a TaskService.
type Option func(*TaskService)

// WithPublisher publishes a TaskEvent after every successful write.
func WithPublisher(p EventPublisher) Option {
	return func(s *TaskService) { s.publisher = p }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *TaskService) { s.timeout = d }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *TaskService) { s.newID = fn }
}

// NewTaskService builds a service over st and panics if st is nil.
// A nil logger falls back to the logrus standard logger.
func NewTaskService(st TaskStore, logger *log.Logger, opts ...Option) *TaskService {
	if st == nil {
		panic("domain.NewTaskService: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &TaskService{st: st, logger: logger, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ListTasks returns at most limit tasks. A non-positive limit means DefaultListLimit.
func (s *TaskService) ListTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.logger.WithField("limit", limit).Debug("listing tasks")

	callCtx, cancel := s.storeCtx(ctx)
	tasks, err := s.st.ListAll(callCtx, limit)
	cancel()
	if err != nil {
		s.logger.WithError(err).Error("list tasks failed")
		return nil, &BackendError{Op: "list", Err: err}
	}
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	if tasks == nil {
		tasks = []Task{}
	}
	s.logger.WithField("count", len(tasks)).Debug("tasks retrieved")
	return tasks, nil
}

// GetTask returns ErrNotFound when id does not exist.
func (s *TaskService) GetTask(ctx context.Context, id string) (Task, error) {
	callCtx, cancel := s.storeCtx(ctx)
	task, err := s.st.GetByID(callCtx, id)
	cancel()
	if err != nil {
		s.logger.WithError(err).WithField("task", id).Error("get task failed")
		return Task{}, &BackendError{Op: "get", Err: err}
	}
	if task == nil {
		s.logger.WithField("task", id).Info("task not found")
		return Task{}, ErrNotFound
	}
	return *task, nil
}

// CreateTask validates in, assigns a fresh id and stores the task.
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	task := in.toTask(s.newID())

	callCtx, cancel := s.storeCtx(ctx)
	err := s.st.Put(callCtx, task)
	cancel()
	if err != nil {
		s.logger.WithError(err).WithField("task", task.ID).Error("create task failed")
		return Task{}, &BackendError{Op: "put", Err: err}
	}
	s.logger.WithFields(log.Fields{"task": task.ID, "title": task.Title}).Info("task created")
	s.publish(ctx, TaskCreated, task.ID, &task)
	return task, nil
}

// UpdateTask fully replaces an existing task. It never creates a missing one.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in TaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}

	callCtx, cancel := s.storeCtx(ctx)
	existing, err := s.st.GetByID(callCtx, id)
	cancel()
	if err != nil {
		s.logger.WithError(err).WithField("task", id).Error("update lookup failed")
		return Task{}, &BackendError{Op: "get", Err: err}
	}
	if existing == nil {
		s.logger.WithField("task", id).Info("update of missing task")
		return Task{}, ErrNotFound
	}

	task := in.toTask(id)
	callCtx, cancel = s.storeCtx(ctx)
	err = s.st.Put(callCtx, task)
	cancel()
	if err != nil {
		s.logger.WithError(err).WithField("task", id).Error("update task failed")
		return Task{}, &BackendError{Op: "put", Err: err}
	}
	s.logger.WithFields(log.Fields{"task": id, "completed": task.IsCompleted}).Info("task updated")
	s.publish(ctx, TaskUpdated, id, &task)
	return task, nil
}

// DeleteTask removes the task. Deleting an unknown id succeeds.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	callCtx, cancel := s.storeCtx(ctx)
	err := s.st.DeleteByID(callCtx, id)
	cancel()
	if err != nil {
		s.logger.WithError(err).WithField("task", id).Error("delete task failed")
		return &BackendError{Op: "delete", Err: err}
	}
	s.logger.WithField("task", id).Info("task deleted")
	s.publish(ctx, TaskDeleted, id, nil)
	return nil
}

func (s *TaskService) publish(ctx context.Context, typ, id string, task *Task) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, TaskEvent{Type: typ, TaskID: id, Task: task})
}
