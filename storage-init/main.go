package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"todo-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	tasksTable := os.Getenv("TASKS_TABLE")
	if tasksTable == "" {
		tasksTable = "TodoTable"
	}

	ctx := context.Background()

	if err := storage.EnsureTables(ctx, connStr, tasksTable); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	log.WithField("table", tasksTable).Debug("table ready")

	if err := storage.EnsureQueues(ctx, connStr, os.Getenv("TASK_EVENTS_QUEUE")); err != nil {
		log.Fatalf("create queues: %v", err)
	}

	log.Info("storage init complete")
}
