package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/nutsdb/nutsdb"

	"todo-api/domain"
)

const nutsTasksBucket = "tasks"

// NutsStore is an embedded task store for single-node deployments and local runs.
type NutsStore struct {
	db *nutsdb.DB
}

// NewNutsStore opens (or creates) the database under dir.
func NewNutsStore(dir string) (*NutsStore, error) {
	opts := nutsdb.DefaultOptions
	opts.Dir = dir
	db, err := nutsdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open nutsdb: %w", err)
	}

	if err := db.Update(func(tx *nutsdb.Tx) error {
		return tx.NewBucket(nutsdb.DataStructureBTree, nutsTasksBucket)
	}); err != nil && !errors.Is(err, nutsdb.ErrBucketAlreadyExist) {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &NutsStore{db: db}, nil
}

func (s *NutsStore) ListAll(ctx context.Context, limit int) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0)
	err := s.db.View(func(tx *nutsdb.Tx) error {
		_, values, err := tx.GetAll(nutsTasksBucket)
		if err != nil {
			return err
		}
		for _, v := range values {
			if len(tasks) >= limit {
				break
			}
			var task domain.Task
			if err := sonic.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("decode task: %w", err)
			}
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *NutsStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *nutsdb.Tx) error {
		v, err := tx.Get(nutsTasksBucket, []byte(id))
		if err != nil {
			return err
		}
		data = v
		return nil
	})
	if err != nil {
		if errors.Is(err, nutsdb.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var task domain.Task
	if err := sonic.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

func (s *NutsStore) Put(ctx context.Context, t domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.Marshal(t)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Put(nutsTasksBucket, []byte(t.ID), data, nutsdb.Persistent)
	})
}

func (s *NutsStore) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Delete(nutsTasksBucket, []byte(id))
	})
	if err != nil && !errors.Is(err, nutsdb.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Ping reports whether the database is still open.
func (s *NutsStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *nutsdb.Tx) error { return nil })
}

func (s *NutsStore) Close() error {
	return s.db.Close()
}
