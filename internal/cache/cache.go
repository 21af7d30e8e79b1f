// Package cache puts a Redis read-through cache in front of the task list.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/db"
	"github.com/Joseda-hg/taskconsole/internal/model"
)

const (
	tasksKey = "taskconsole:tasks"
	// genKey is bumped by every evict. A list read from the store is only
	// cached when no evict happened since the read started.
	genKey = "taskconsole:tasks:gen"
)

var errStale = errors.New("task list changed during read")

type Backend interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, taskID int64) (model.Task, error)
	CreateTask(ctx context.Context, input db.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, taskID int64, input db.TaskInput) (model.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	ListComments(ctx context.Context, taskID int64) ([]model.Comment, error)
	CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error)
	UpdateComment(ctx context.Context, commentID int64, content string) (model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	Ping(ctx context.Context) error
}

// Cache serves ListTasks from Redis and evicts on every write, including
// comment writes since they change comments_count. Redis failures fall back
// to the backend.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger
}

func New(base Backend, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if base == nil {
		panic("cache.New: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Cache{base: base, redis: client, ttl: ttl, log: log}
}

// NewClient connects to the Redis server at url (redis://host:port/db).
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *Cache) ListTasks(ctx context.Context) ([]model.Task, error) {
	if tasks, ok := c.loadTasks(ctx); ok {
		return tasks, nil
	}

	gen, genOK := c.generation(ctx)
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if genOK {
		c.storeTasks(ctx, gen, tasks)
	}
	return tasks, nil
}

func (c *Cache) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	return c.base.GetTask(ctx, taskID)
}

func (c *Cache) CreateTask(ctx context.Context, input db.TaskInput) (model.Task, error) {
	task, err := c.base.CreateTask(ctx, input)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx)
	return task, nil
}

func (c *Cache) UpdateTask(ctx context.Context, taskID int64, input db.TaskInput) (model.Task, error) {
	task, err := c.base.UpdateTask(ctx, taskID, input)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx)
	return task, nil
}

func (c *Cache) DeleteTask(ctx context.Context, taskID int64) error {
	if err := c.base.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	return c.base.ListComments(ctx, taskID)
}

func (c *Cache) CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error) {
	comment, err := c.base.CreateComment(ctx, taskID, content)
	if err != nil {
		return model.Comment{}, err
	}
	c.evict(ctx)
	return comment, nil
}

func (c *Cache) UpdateComment(ctx context.Context, commentID int64, content string) (model.Comment, error) {
	return c.base.UpdateComment(ctx, commentID, content)
}

func (c *Cache) DeleteComment(ctx context.Context, commentID int64) error {
	if err := c.base.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) loadTasks(ctx context.Context) ([]model.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("task cache read failed")
			_ = c.redis.Del(ctx, tasksKey).Err()
		}
		return nil, false
	}
	var tasks []model.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		c.log.WithError(err).Warn("task cache entry corrupt")
		_ = c.redis.Del(ctx, tasksKey).Err()
		return nil, false
	}
	return tasks, true
}

// generation returns the current evict counter. ok is false when Redis
// cannot tell, in which case nothing gets cached.
func (c *Cache) generation(ctx context.Context) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, genKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		c.log.WithError(err).Warn("task cache generation read failed")
		return 0, false
	}
	return gen, true
}

// storeTasks caches tasks unless an evict ran after gen was read. WATCH on
// genKey makes a concurrent evict abort the write.
func (c *Cache) storeTasks(ctx context.Context, gen int64, tasks []model.Task) {
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tasksKey, data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("task list changed during read, not cached")
	default:
		c.log.WithError(err).Warn("task cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Del(ctx, tasksKey)
		return nil
	})
	if err != nil {
		c.log.WithError(err).Warn("task cache evict failed")
	}
}
