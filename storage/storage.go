package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"todo-api/domain"
)

// maxPageSize is the largest page Azure Table storage returns per request.
const maxPageSize = 1000

type tableClient interface {
	NewListEntitiesPager(o *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	GetEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, o *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// TableStore keeps tasks in a single Azure Table partition keyed by task id.
type TableStore struct {
	table        tableClient
	partitionKey string
}

// RetryOptions is the retry policy shared by the Azure table and queue clients.
func RetryOptions() policy.RetryOptions {
	return policy.RetryOptions{
		MaxRetries:    3,
		TryTimeout:    time.Minute,
		RetryDelay:    time.Second,
		MaxRetryDelay: 15 * time.Second,
		StatusCodes:   []int{408, 429, 500, 502, 503, 504},
	}
}

// NewTableStore creates a TableStore from the given connection string.
func NewTableStore(connStr, tableName, partitionKey string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{Retry: RetryOptions()},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(tableName), partitionKey: partitionKey}, nil
}

type taskEntity struct {
	PartitionKey string  `json:"PartitionKey"`
	RowKey       string  `json:"RowKey"`
	Title        string  `json:"Title"`
	Description  *string `json:"Description,omitempty"`
	IsCompleted  bool    `json:"IsCompleted"`
}

func encodeTaskEntity(pk string, t domain.Task) ([]byte, error) {
	return sonic.Marshal(taskEntity{
		PartitionKey: pk,
		RowKey:       t.ID,
		Title:        t.Title,
		Description:  t.Description,
		IsCompleted:  t.IsCompleted,
	})
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		IsCompleted: ent.IsCompleted,
	}, nil
}

// partitionFilter builds an OData filter, doubling quotes inside the literal.
func partitionFilter(pk string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(pk, "'", "''") + "'"
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// ListAll reads pages until limit tasks were collected or the partition is exhausted.
func (s *TableStore) ListAll(ctx context.Context, limit int) ([]domain.Task, error) {
	filter := partitionFilter(s.partitionKey)
	top := int32(min(limit, maxPageSize))
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	tasks := make([]domain.Task, 0, top)
	for pager.More() && len(tasks) < limit {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			if len(tasks) == limit {
				break
			}
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *TableStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	ent, err := s.table.GetEntity(ctx, s.partitionKey, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	task, err := decodeTaskEntity(ent.Value)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Put replaces the whole entity; no If-Match is sent so the last writer wins.
func (s *TableStore) Put(ctx context.Context, t domain.Task) error {
	payload, err := encodeTaskEntity(s.partitionKey, t)
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (s *TableStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.table.DeleteEntity(ctx, s.partitionKey, id, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Ping issues a single one-entity page request to verify table access.
func (s *TableStore) Ping(ctx context.Context) error {
	filter := partitionFilter(s.partitionKey)
	top := int32(1)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	_, err := pager.NextPage(ctx)
	return err
}

func (s *TableStore) Close() error { return nil }
