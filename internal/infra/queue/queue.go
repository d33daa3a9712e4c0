package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"trackmed/internal/app"
)

const (
	defaultMainQueue       = "trackmed:dispatch"
	defaultProcessingQueue = "trackmed:dispatch:processing"
	defaultDLQ             = "trackmed:dispatch:dlq"
	defaultPopTimeout      = 5 * time.Second
)

// Config contains configuration for the Redis dispatch queue.
type Config struct {
	Addr     string
	Password string
	DB       int

	MaxAttempts int
	RetryDelay  time.Duration // fixed backoff between attempts
	Workers     int
}

// Handler processes one task; a returned error triggers the retry policy.
type Handler func(ctx context.Context, task *Task) error

// RedisQueue is an at-least-once dispatch job queue backed by Redis
// lists. Tasks move atomically from the main queue to a processing list,
// are retried in-process with a fixed backoff, and land in a dead-letter
// list once the attempt budget is exhausted.
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	processingQueue string
	dlq             string
	cfg             Config
	log             *logrus.Entry
	wg              sync.WaitGroup
}

func NewRedisQueue(cfg Config, log *logrus.Entry) (*RedisQueue, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  defaultPopTimeout + 2*time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{
		client:          client,
		mainQueue:       defaultMainQueue,
		processingQueue: defaultProcessingQueue,
		dlq:             defaultDLQ,
		cfg:             cfg,
		log:             log,
	}, nil
}

// Publish pushes a task onto the main queue.
func (q *RedisQueue) Publish(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.mainQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to publish task %s: %w", task.ID, err)
	}
	return nil
}

// PublishDispatch implements app.JobPublisher.
func (q *RedisQueue) PublishDispatch(ctx context.Context, job app.DispatchJob) error {
	task, err := NewTask(TaskTypeDispatch, job, q.cfg.MaxAttempts)
	if err != nil {
		return err
	}
	return q.Publish(ctx, task)
}

// Start launches the worker pool. It returns immediately; workers run
// until ctx is cancelled.
func (q *RedisQueue) Start(ctx context.Context, handler Handler) {
	q.log.WithField("workers", q.cfg.Workers).Info("Dispatch queue workers starting")
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
}

func (q *RedisQueue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := q.client.BRPopLPush(ctx, q.mainQueue, q.processingQueue, defaultPopTimeout).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.WithError(err).Error("Failed to pop task from dispatch queue")
			time.Sleep(time.Second)
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			q.log.WithError(err).Error("Dropping malformed task to DLQ")
			q.moveToDLQ(ctx, &Task{ID: "malformed", Payload: json.RawMessage(data)}, err)
		} else {
			q.processWithRetry(ctx, &task, handler)
		}

		if err := q.client.LRem(ctx, q.processingQueue, 1, data).Err(); err != nil && ctx.Err() == nil {
			q.log.WithError(err).Error("Failed to remove task from processing queue")
		}
	}
}

// processWithRetry applies the fixed-backoff retry policy. Exhausting the
// attempt budget moves the task to the dead-letter queue for operator
// visibility instead of dropping it silently.
func (q *RedisQueue) processWithRetry(ctx context.Context, task *Task, handler Handler) {
	for {
		task.Attempts++
		err := handler(ctx, task)
		if err == nil {
			return
		}

		if task.Attempts >= task.MaxAttempts {
			q.log.WithFields(logrus.Fields{
				"task_id":  task.ID,
				"attempts": task.Attempts,
			}).WithError(err).Error("Task failed after final attempt, moving to DLQ")
			q.moveToDLQ(ctx, task, err)
			return
		}

		q.log.WithFields(logrus.Fields{
			"task_id": task.ID,
			"attempt": task.Attempts,
			"max":     task.MaxAttempts,
			"delay":   q.cfg.RetryDelay,
		}).WithError(err).Warn("Task failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.RetryDelay):
		}
	}
}

func (q *RedisQueue) moveToDLQ(ctx context.Context, task *Task, cause error) {
	failed := FailedTask{Task: task, Error: cause.Error(), FailedAt: time.Now().UTC()}
	data, err := json.Marshal(failed)
	if err != nil {
		q.log.WithError(err).Error("Failed to marshal dead-letter record")
		return
	}
	if err := q.client.LPush(ctx, q.dlq, data).Err(); err != nil && ctx.Err() == nil {
		q.log.WithError(err).Error("Failed to push task to DLQ")
	}
}

// DLQLength reports how many tasks have exhausted their retries.
func (q *RedisQueue) DLQLength(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.dlq).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read DLQ length: %w", err)
	}
	return n, nil
}

// Close waits for workers to drain and closes the Redis client. Cancel
// the Start context first.
func (q *RedisQueue) Close() error {
	q.wg.Wait()
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}
