// Command storage-init provisions the task table and, when configured, the
// change-event queue. Resources that already exist are left untouched.
package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
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
	table := os.Getenv("TASKS_TABLE")
	if table == "" {
		table = "tasks"
	}

	ctx := context.Background()

	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		log.Fatalf("table service: %v", err)
	}
	created, err := ensureTable(ctx, svc.NewClient(table))
	if err != nil {
		log.Fatalf("create table %s: %v", table, err)
	}
	log.WithFields(log.Fields{"table": table, "created": created}).Info("table ready")

	if queue := os.Getenv("TASK_EVENTS_QUEUE"); queue != "" {
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, nil)
		if err != nil {
			log.Fatalf("queue client: %v", err)
		}
		created, err := ensureQueue(ctx, q)
		if err != nil {
			log.Fatalf("create queue %s: %v", queue, err)
		}
		log.WithFields(log.Fields{"queue": queue, "created": created}).Info("queue ready")
	}

	log.Info("storage init complete")
}

type tableCreator interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

type queueCreator interface {
	Create(ctx context.Context, options *azqueue.CreateOptions) (azqueue.CreateResponse, error)
}

// ensureTable creates the table and reports whether it did not exist yet.
func ensureTable(ctx context.Context, c tableCreator) (bool, error) {
	if _, err := c.CreateTable(ctx, nil); err != nil {
		if isErrorCode(err, string(aztables.TableAlreadyExists)) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ensureQueue creates the queue and reports whether it did not exist yet.
func ensureQueue(ctx context.Context, q queueCreator) (bool, error) {
	if _, err := q.Create(ctx, nil); err != nil {
		if isErrorCode(err, "QueueAlreadyExists") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
