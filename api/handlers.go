package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tasks-api/domain"
	"tasks-api/storage"
)

const (
	routeTasks = "/api/tasks"
	routeTask  = "/api/tasks/:id"
)

// Register wires up all API routes on the provided Echo instance. maxPageSize
// bounds the pageSize query parameter of the listing.
func Register(e *echo.Echo, store Storage, logger *log.Logger, maxPageSize int) {
	e.JSONSerializer = sonicSerializer{}
	e.POST(routeTasks, createTask(store, logger))
	e.GET(routeTasks, listTasks(store, logger, maxPageSize))
	e.PUT(routeTasks, updateTask(store, logger))
	e.DELETE(routeTask, deleteTask(store, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func createTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "create", routeTasks)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		var req createTaskRequest
		decodeStart := time.Now()
		decodeErr := decodeBody(c, &req)
		metrics.ObserveDecode(time.Since(decodeStart))
		if decodeErr != nil {
			metrics.Fail("decode", decodeErr)
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, validErr := req.toTask(uuid.NewString())
		if validErr != nil {
			metrics.Fail("validate", validErr)
			return c.String(http.StatusBadRequest, validErr.Error())
		}
		metrics.SetTaskID(task.ID)

		storeStart := time.Now()
		storeErr := store.InsertTask(ctx, task)
		metrics.ObserveStore(time.Since(storeStart))
		if storeErr != nil {
			return writeStoreError(c, metrics, storeErr)
		}
		return c.JSON(http.StatusCreated, createTaskResponse{RequestID: task.ID})
	}
}

func listTasks(store Storage, logger *log.Logger, maxPageSize int) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "list", routeTasks)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		pageToken := c.QueryParam("pageToken")
		metrics.SetPageTokenProvided(pageToken != "")

		pageSizeParam := strings.TrimSpace(c.QueryParam("pageSize"))
		pageSize := 0
		if pageSizeParam != "" {
			var parseErr error
			pageSize, parseErr = strconv.Atoi(pageSizeParam)
			if parseErr != nil || pageSize <= 0 {
				metrics.Fail("invalid_page_size", parseErr)
				return c.String(http.StatusBadRequest, "invalid page size")
			}
			if maxPageSize > 0 && pageSize > maxPageSize {
				pageSize = maxPageSize
			}
		}

		storeStart := time.Now()
		tasks, nextToken, storeErr := store.ListTasks(ctx, pageToken, pageSize)
		metrics.ObserveStore(time.Since(storeStart))
		if storeErr != nil {
			return writeStoreError(c, metrics, storeErr)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		metrics.SetTasksReturned(len(tasks))
		if nextToken != "" {
			metrics.SetHasNextPage(true)
			c.Response().Header().Set(HeaderNextPageToken, nextToken)
		}
		err = c.JSON(http.StatusOK, tasks)
		if err != nil {
			metrics.Fail("encode_response", err)
		}
		return err
	}
}

// updateTask marks the task named by _id as done. The request can only ever
// set isDone to true; any other field in the body is ignored.
func updateTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "update", routeTasks)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		var req updateTaskRequest
		decodeStart := time.Now()
		decodeErr := decodeBody(c, &req)
		metrics.ObserveDecode(time.Since(decodeStart))
		if decodeErr != nil {
			metrics.Fail("decode", decodeErr)
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if idErr := domain.ValidateID(req.ID); idErr != nil {
			metrics.Fail("validate", idErr)
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		metrics.SetTaskID(req.ID)

		storeStart := time.Now()
		storeErr := store.MarkTaskDone(ctx, req.ID)
		metrics.ObserveStore(time.Since(storeStart))
		if storeErr != nil {
			return writeStoreError(c, metrics, storeErr)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "updated"})
	}
}

func deleteTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := startRequest(c, logger, "delete", routeTask)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		// echo has already unescaped the path parameter.
		id := c.Param("id")
		if idErr := domain.ValidateID(id); idErr != nil {
			metrics.Fail("validate", idErr)
			return c.String(http.StatusBadRequest, idErr.Error())
		}
		metrics.SetTaskID(id)

		storeStart := time.Now()
		storeErr := store.DeleteTask(ctx, id)
		metrics.ObserveStore(time.Since(storeStart))
		if storeErr != nil {
			return writeStoreError(c, metrics, storeErr)
		}
		// 204 carries no body, so the "deleted" message is not sent.
		return c.NoContent(http.StatusNoContent)
	}
}

// decodeBody reads the whole body and decodes exactly one JSON value from it.
// Trailing content after that value is rejected.
func decodeBody(c echo.Context, v any) error {
	body := c.Request().Body
	if body == nil {
		return io.EOF
	}
	data, err := io.ReadAll(io.LimitReader(body, requestBodyMaxSize+1))
	if err != nil {
		return err
	}
	if len(data) > requestBodyMaxSize {
		return errBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return io.EOF
	}
	return sonic.ConfigStd.Unmarshal(data, v)
}

func writeStoreError(c echo.Context, metrics *requestMetrics, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.Fail("not_found", err)
		return c.String(http.StatusNotFound, "task not found")
	case errors.Is(err, storage.ErrConflict):
		metrics.Fail("conflict", err)
		return c.String(http.StatusConflict, "task already exists")
	case errors.Is(err, storage.ErrInvalidPageToken):
		metrics.Fail("invalid_page_token", err)
		return c.String(http.StatusBadRequest, "invalid page token")
	default:
		metrics.Fail("storage", err)
		return c.String(http.StatusInternalServerError, "storage failure")
	}
}
