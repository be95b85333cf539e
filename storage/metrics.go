package storage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"todo-api/domain"
)

// Backend is a task store that can also be health checked and released.
type Backend interface {
	domain.TaskStore
	Ping(ctx context.Context) error
	Close() error
}

type storeMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	f := promauto.With(reg)
	return &storeMetrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todo",
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of task store operations by backend and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo",
			Name:      "store_operation_errors_total",
			Help:      "Failed task store operations by backend and operation.",
		}, []string{"backend", "op"}),
	}
}

type instrumentedStore struct {
	base    Backend
	backend string
	metrics *storeMetrics
}

// Instrument records latency and failures of every call made to base.
func Instrument(base Backend, backend string, reg prometheus.Registerer) Backend {
	return &instrumentedStore{base: base, backend: backend, metrics: newStoreMetrics(reg)}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.duration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.errors.WithLabelValues(s.backend, op).Inc()
	}
}

func (s *instrumentedStore) ListAll(ctx context.Context, limit int) ([]domain.Task, error) {
	start := time.Now()
	tasks, err := s.base.ListAll(ctx, limit)
	s.observe("list", start, err)
	return tasks, err
}

func (s *instrumentedStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	start := time.Now()
	task, err := s.base.GetByID(ctx, id)
	s.observe("get", start, err)
	return task, err
}

func (s *instrumentedStore) Put(ctx context.Context, t domain.Task) error {
	start := time.Now()
	err := s.base.Put(ctx, t)
	s.observe("put", start, err)
	return err
}

func (s *instrumentedStore) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	err := s.base.DeleteByID(ctx, id)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.base.Ping(ctx)
	s.observe("ping", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.base.Close()
}
