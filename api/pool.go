package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// DispatcherConfig sizes the event worker pool.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

// EventDispatcher publishes task events to a sink from a bounded worker pool.
// When the buffer stays full past HandoffTimeout the event is sent inline.
type EventDispatcher struct {
	sink           EventSink
	log            *log.Logger
	clock          eventClock
	jobs           chan domain.TaskEvent
	timeout        time.Duration
	handoffTimeout time.Duration
	workerWG       sync.WaitGroup
	closeOnce      sync.Once
}

// NewEventDispatcher starts cfg.Workers goroutines that deliver events to sink.
// Zero values fall back to one worker and a 30s delivery timeout.
func NewEventDispatcher(sink EventSink, cfg DispatcherConfig, logger *log.Logger) *EventDispatcher {
	if sink == nil {
		panic("api.NewEventDispatcher: sink is nil")
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	d := &EventDispatcher{
		sink:           sink,
		log:            logger,
		jobs:           make(chan domain.TaskEvent, cfg.Buffer),
		timeout:        cfg.Timeout,
		handoffTimeout: cfg.HandoffTimeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.workerWG.Add(1)
		go d.worker(i)
	}
	logger.Infof("event dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.Timeout, cfg.HandoffTimeout)
	return d
}

// Publish stamps ev with an id and timestamp and hands it to the pool.
// Delivery failures are logged and never returned to the caller.
func (d *EventDispatcher) Publish(ctx context.Context, ev domain.TaskEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.Timestamp = d.clock.next()

	if d.tryEnqueue(ev) {
		return
	}

	d.log.WithField("event", ev.Type).Warn("event buffer saturated; publishing inline")
	// Detached from request cancellation.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	d.send(sendCtx, ev, -1)
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *EventDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.workerWG.Wait()
}

func (d *EventDispatcher) worker(id int) {
	defer d.workerWG.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		d.send(ctx, ev, id)
		cancel()
	}
}

func (d *EventDispatcher) send(ctx context.Context, ev domain.TaskEvent, worker int) {
	if err := d.sink.EnqueueEvents(ctx, []domain.TaskEvent{ev}); err != nil {
		d.log.WithFields(log.Fields{
			"event":  ev.ID,
			"type":   ev.Type,
			"task":   ev.TaskID,
			"worker": worker,
		}).Errorf("publish event failed: %v", err)
	}
}

func (d *EventDispatcher) tryEnqueue(ev domain.TaskEvent) bool {
	if ok, closed := trySendNonBlocking(d.jobs, ev); closed {
		return false
	} else if ok {
		return true
	}

	if d.handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(d.jobs, ev, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan domain.TaskEvent, ev domain.TaskEvent) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.TaskEvent, ev domain.TaskEvent, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	case <-timer:
		return false, false
	}
}
