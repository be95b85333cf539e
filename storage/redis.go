package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"todo-api/domain"
)

// RedisStore keeps every task as a field of one Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores tasks in the hash named key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if client == nil {
		panic("storage.NewRedisStore: client is nil")
	}
	return &RedisStore{client: client, key: key}
}

// ParseRedisOptions accepts a redis:// URL or the Azure style
// "host:port,password=...,ssl=True" connection string.
func ParseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

// ListAll walks the hash with HSCAN until limit tasks were collected.
func (s *RedisStore) ListAll(ctx context.Context, limit int) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, min(limit, 128))
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		kvs, next, err := s.client.HScan(ctx, s.key, cursor, "", int64(limit)).Result()
		if err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(kvs) && len(tasks) < limit; i += 2 {
			// HSCAN may return a field more than once across iterations.
			if _, dup := seen[kvs[i]]; dup {
				continue
			}
			seen[kvs[i]] = struct{}{}
			var task domain.Task
			if err := sonic.UnmarshalString(kvs[i+1], &task); err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		if next == 0 || len(tasks) >= limit {
			return tasks, nil
		}
		cursor = next
	}
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.client.HGet(ctx, s.key, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var task domain.Task
	if err := sonic.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *RedisStore) Put(ctx context.Context, t domain.Task) error {
	data, err := sonic.Marshal(t)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, t.ID, data).Err()
}

func (s *RedisStore) DeleteByID(ctx context.Context, id string) error {
	return s.client.HDel(ctx, s.key, id).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
