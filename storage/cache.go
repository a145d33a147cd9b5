package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tasks-api/domain"
)

const tasksCacheKey = "tasks:all"

type backend interface {
	InsertTask(ctx context.Context, task domain.Task) error
	ListTasks(ctx context.Context, pageToken string, limit int) ([]domain.Task, string, error)
	MarkTaskDone(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
}

// Cache wraps a backend with a Redis-backed copy of the full task listing.
// Paged listings always go to the backend. Successful writes evict the copy.
type Cache struct {
	base   backend
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// Redis failures never fail a request; they are logged as warnings.
func NewCache(base backend, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) ListTasks(ctx context.Context, pageToken string, limit int) ([]domain.Task, string, error) {
	full := pageToken == "" && limit <= 0
	if full {
		if tasks, ok := c.loadTasks(ctx); ok {
			return tasks, "", nil
		}
	}

	tasks, next, err := c.base.ListTasks(ctx, pageToken, limit)
	if err != nil {
		return nil, "", err
	}
	if full {
		c.storeTasks(ctx, tasks)
	}
	return tasks, next, nil
}

func (c *Cache) InsertTask(ctx context.Context, task domain.Task) error {
	if err := c.base.InsertTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) MarkTaskDone(ctx context.Context, id string) error {
	if err := c.base.MarkTaskDone(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) loadTasks(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			c.logger.WithError(err).Warn("tasks cache read failed")
		}
		return nil, false
	}
	tasks := []domain.Task{}
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		c.logger.WithError(err).Warn("tasks cache entry corrupt")
		c.evict(ctx)
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		c.logger.WithError(err).Warn("encode tasks cache entry")
		return
	}
	if err := c.redis.Set(ctx, tasksCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("tasks cache store failed")
	}
}

// evict drops the cached listing after a committed write. It runs detached
// from ctx so a caller that has gone away cannot leave a stale listing behind.
func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(context.WithoutCancel(ctx), tasksCacheKey).Err(); err != nil {
		c.logger.WithError(err).Warn("tasks cache eviction failed")
	}
}
