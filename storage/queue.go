package storage

import (
	"context"
	"runtime"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"todo-api/domain"
)

const (
	defaultQueueConcurrency = 10
	queuePerCPU             = 10
	maxQueueConcurrency     = 64
)

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error)
}

// EventQueue publishes task change events to an Azure Storage queue.
type EventQueue struct {
	queue            queueClient
	queueConcurrency int
}

func queueConcurrencyForCPU(cpu int) int {
	if cpu < 1 {
		return defaultQueueConcurrency
	}
	return min(cpu*queuePerCPU, maxQueueConcurrency)
}

// NewEventQueue creates an EventQueue for the named queue.
func NewEventQueue(connStr, queueName string) (*EventQueue, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{Retry: RetryOptions()},
	}
	opts.Retry.MaxRetries = 5
	opts.Retry.MaxRetryDelay = time.Minute
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &EventQueue{queue: q, queueConcurrency: queueConcurrencyForCPU(runtime.NumCPU())}, nil
}

// EnqueueEvents sends one message per event and returns the first failure.
func (q *EventQueue) EnqueueEvents(ctx context.Context, events []domain.TaskEvent) error {
	payloads := make([][]byte, len(events))
	for i, ev := range events {
		data, err := sonic.Marshal(ev)
		if err != nil {
			return err
		}
		payloads[i] = data
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(q.queueConcurrency, 1))
	for _, data := range payloads {
		g.Go(func() error {
			_, err := q.queue.EnqueueMessage(gctx, string(data), nil)
			return err
		})
	}
	return g.Wait()
}

// Ping checks that the queue exists and is reachable.
func (q *EventQueue) Ping(ctx context.Context) error {
	_, err := q.queue.GetProperties(ctx, nil)
	return err
}
