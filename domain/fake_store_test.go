package domain

import (
	"context"
	"sort"
	"sync"
)

type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]Task
	puts  []Task
	gets  int

	listErr   error
	getErr    error
	putErr    error
	deleteErr error
}

func (f *fakeStore) ListAll(ctx context.Context, limit int) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Task, 0, limit)
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		out = append(out, f.tasks[id])
	}
	return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) Put(ctx context.Context, t Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if f.tasks == nil {
		f.tasks = map[string]Task{}
	}
	f.tasks[t.ID] = t
	f.puts = append(f.puts, t)
	return nil
}

func (f *fakeStore) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.tasks, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []TaskEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, ev TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}
