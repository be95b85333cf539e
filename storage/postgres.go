package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-api/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and ensures the todo_tasks table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTodoSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTodoSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS todo_tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init todo schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, is_completed FROM todo_tasks LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTodoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, description, is_completed FROM todo_tasks WHERE id=$1`, id)
	task, err := scanTodoRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (s *PostgresStore) Put(ctx context.Context, t domain.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO todo_tasks (id, title, description, is_completed, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET
		   title=EXCLUDED.title,
		   description=EXCLUDED.description,
		   is_completed=EXCLUDED.is_completed,
		   updated_at=EXCLUDED.updated_at`,
		t.ID, t.Title, t.Description, t.IsCompleted,
	)
	if err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM todo_tasks WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTodoRow(row pgx.Row) (domain.Task, error) {
	var (
		task domain.Task
		desc *string
	)
	if err := row.Scan(&task.ID, &task.Title, &desc, &task.IsCompleted); err != nil {
		return domain.Task{}, err
	}
	task.Description = desc
	return task, nil
}
