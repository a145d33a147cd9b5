package storage

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
)

func responseError(status int, code string) error {
	req, _ := http.NewRequest(http.MethodGet, "https://account.table.core.windows.net/tasks", nil)
	return &azcore.ResponseError{
		ErrorCode:  code,
		StatusCode: status,
		RawResponse: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Request:    req,
			Body:       http.NoBody,
		},
	}
}

type rowKey struct{ pk, rk string }

// fakeTable mimics the table service semantics Storage relies on: insert
// conflicts, merge and delete against missing rows, and key-ordered paging.
type fakeTable struct {
	mu       sync.Mutex
	rows     map[rowKey]map[string]any
	pageSize int
	listErr  error
	payloads [][]byte
	merges   []*aztables.UpdateEntityOptions
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[rowKey]map[string]any{}, pageSize: 1000}
}

func decodeKeys(entity []byte) (rowKey, map[string]any, error) {
	props := map[string]any{}
	if err := sonic.Unmarshal(entity, &props); err != nil {
		return rowKey{}, nil, err
	}
	pk, _ := props["PartitionKey"].(string)
	rk, _ := props["RowKey"].(string)
	if pk == "" {
		return rowKey{}, nil, errors.New("missing PartitionKey")
	}
	return rowKey{pk: pk, rk: rk}, props, nil
}

func (f *fakeTable) AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, entity)
	key, props, err := decodeKeys(entity)
	if err != nil {
		return aztables.AddEntityResponse{}, err
	}
	if _, exists := f.rows[key]; exists {
		return aztables.AddEntityResponse{}, responseError(http.StatusConflict, "EntityAlreadyExists")
	}
	f.rows[key] = props
	return aztables.AddEntityResponse{}, nil
}

func (f *fakeTable) UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, entity)
	f.merges = append(f.merges, options)
	key, props, err := decodeKeys(entity)
	if err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	row, exists := f.rows[key]
	if !exists {
		return aztables.UpdateEntityResponse{}, responseError(http.StatusNotFound, "ResourceNotFound")
	}
	if options != nil && options.UpdateMode == aztables.UpdateModeMerge {
		for k, v := range props {
			row[k] = v
		}
		return aztables.UpdateEntityResponse{}, nil
	}
	f.rows[key] = props
	return aztables.UpdateEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, partitionKey string, rowKeyValue string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rowKey{pk: partitionKey, rk: rowKeyValue}
	if _, exists := f.rows[key]; !exists {
		return aztables.DeleteEntityResponse{}, responseError(http.StatusNotFound, "ResourceNotFound")
	}
	delete(f.rows, key)
	return aztables.DeleteEntityResponse{}, nil
}

func (f *fakeTable) NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	var startPK, startRK string
	top := 0
	if opts != nil {
		if opts.NextPartitionKey != nil {
			startPK = *opts.NextPartitionKey
		}
		if opts.NextRowKey != nil {
			startRK = *opts.NextRowKey
		}
		if opts.Top != nil {
			top = int(*opts.Top)
		}
	}
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(resp aztables.ListEntitiesResponse) bool {
			return resp.NextPartitionKey != nil
		},
		Fetcher: func(ctx context.Context, prev *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			pk, rk := startPK, startRK
			if prev != nil {
				pk, rk = *prev.NextPartitionKey, *prev.NextRowKey
			}
			return f.page(pk, rk, top)
		},
	})
}

func (f *fakeTable) page(startPK, startRK string, top int) (aztables.ListEntitiesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return aztables.ListEntitiesResponse{}, f.listErr
	}
	keys := make([]rowKey, 0, len(f.rows))
	for k := range f.rows {
		if startPK != "" && (k.pk < startPK || (k.pk == startPK && k.rk < startRK)) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pk != keys[j].pk {
			return keys[i].pk < keys[j].pk
		}
		return keys[i].rk < keys[j].rk
	})

	size := f.pageSize
	if top > 0 && top < size {
		size = top
	}
	var resp aztables.ListEntitiesResponse
	for i, k := range keys {
		if i == size {
			pk, rk := k.pk, k.rk
			resp.NextPartitionKey = &pk
			resp.NextRowKey = &rk
			break
		}
		data, err := sonic.Marshal(f.rows[k])
		if err != nil {
			return aztables.ListEntitiesResponse{}, err
		}
		resp.Entities = append(resp.Entities, data)
	}
	return resp, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return azqueue.EnqueueMessagesResponse{}, f.err
	}
	if err := ctx.Err(); err != nil {
		return azqueue.EnqueueMessagesResponse{}, err
	}
	f.messages = append(f.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func (f *fakeQueue) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}
