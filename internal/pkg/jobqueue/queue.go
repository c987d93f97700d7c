package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis layout. A job id lives in exactly one of pending, active, delayed
// or dead while its body is kept under jobKey.
const (
	keyNamespace = "formfox:jobs:"
	pendingKey   = keyNamespace + "pending"
	activeKey    = keyNamespace + "active"
	delayedKey   = keyNamespace + "delayed"
	deadKey      = keyNamespace + "dead"

	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Minute

	jobTTL       = 24 * time.Hour
	deadLimit    = 1000
	pollTimeout  = time.Second
	promoteEvery = 200 * time.Millisecond
	reclaimEvery = time.Minute
	staleAfter   = 10 * time.Minute
)

func jobKey(id string) string { return keyNamespace + "job:" + id }

// Handler executes one job. A returned error marks the attempt as failed.
type Handler func(ctx context.Context, job *Job) error

// Queue runs jobs from Redis on a fixed number of workers. Retries wait in
// a sorted set scored by their due time, so they survive a restart.
type Queue struct {
	rdb        *redis.Client
	workers    int
	retryDelay time.Duration
	now        func() time.Time

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue on top of rdb. workers <= 0 means 3.
func NewQueue(rdb *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = 3
	}
	return &Queue{
		rdb:        rdb,
		workers:    workers,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		handlers:   make(map[JobType]Handler),
	}
}

// Register installs the handler for jobType, replacing any previous one.
func (q *Queue) Register(jobType JobType, h Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = h
}

// SetRetryDelay sets the base delay between attempts. The n-th retry waits
// n times this delay.
func (q *Queue) SetRetryDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryDelay
	}
	q.retryDelay = d
}

func (q *Queue) handler(jobType JobType) (Handler, bool) {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// Running reports whether Start has been called without a matching Stop.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}

// Start launches the workers and the scheduler. Calling it twice is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.wg.Add(1)
	go q.schedule(ctx)
}

// Stop cancels polling and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel == nil {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	q.cancel()
	q.wg.Wait()
	q.cancel = nil
	log.Info("[JobQueue] All workers stopped")
}

// EnqueueJob stores a new pending job carrying the JSON encoding of payload.
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}

	now := q.now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    raw,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.ID), data, jobTTL)
		pipe.LPush(ctx, pendingKey, job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

func (q *Queue) work(ctx context.Context, n int) {
	defer q.wg.Done()
	for {
		id, err := q.rdb.BLMove(ctx, pendingKey, activeKey, "RIGHT", "LEFT", pollTimeout).Result()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Errorf("[JobQueue] Worker %d: dequeue failed: %v", n, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// Jobs already taken off the list run to completion after Stop.
		q.run(context.WithoutCancel(ctx), id)
	}
}

func (q *Queue) run(ctx context.Context, id string) {
	job, err := q.load(ctx, id)
	if err != nil {
		log.Errorf("[JobQueue] Dropping job %s: %v", id, err)
		q.rdb.LRem(ctx, activeKey, 1, id)
		return
	}

	job.start(q.now())
	q.save(ctx, q.rdb, job)

	if h, ok := q.handler(job.Type); ok {
		err = h(ctx, job)
	} else {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err == nil {
		log.Infof("[JobQueue] Job %s completed", job.ID)
		_, perr := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, jobKey(job.ID))
			pipe.LRem(ctx, activeKey, 1, job.ID)
			return nil
		})
		if perr != nil {
			log.Errorf("[JobQueue] Failed to clear completed job %s: %v", job.ID, perr)
		}
		return
	}

	log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
	now := q.now()
	retry := job.fail(err, now)

	_, perr := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if retry {
			due := now.Add(q.retryDelay * time.Duration(job.RetryCount))
			log.Infof("[JobQueue] Retrying job %s at %s (attempt %d/%d)", job.ID, due.Format(time.RFC3339), job.RetryCount, job.MaxRetries)
			pipe.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due.UnixMilli()), Member: job.ID})
		} else {
			log.Errorf("[JobQueue] Job %s gave up after %d attempts", job.ID, job.RetryCount)
			pipe.LPush(ctx, deadKey, job.ID)
			pipe.LTrim(ctx, deadKey, 0, deadLimit-1)
		}
		q.save(ctx, pipe, job)
		pipe.LRem(ctx, activeKey, 1, job.ID)
		return nil
	})
	if perr != nil {
		log.Errorf("[JobQueue] Failed to record failure of job %s: %v", job.ID, perr)
	}
}

// schedule moves due retries back to pending and requeues jobs whose
// worker vanished mid-run.
func (q *Queue) schedule(ctx context.Context) {
	defer q.wg.Done()
	promote := time.NewTicker(promoteEvery)
	defer promote.Stop()
	reclaim := time.NewTicker(reclaimEvery)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-promote.C:
			if _, err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("[JobQueue] Promoting delayed jobs failed: %v", err)
			}
		case <-reclaim.C:
			if _, err := q.reclaimStale(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("[JobQueue] Reclaiming stale jobs failed: %v", err)
			}
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		// Only the instance whose ZREM succeeds pushes the id.
		removed, err := q.rdb.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, pendingKey, id).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (q *Queue) reclaimStale(ctx context.Context) (int, error) {
	ids, err := q.rdb.LRange(ctx, activeKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	now := q.now()
	reclaimed := 0
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if err != nil {
			q.rdb.LRem(ctx, activeKey, 1, id)
			continue
		}
		if now.Sub(job.UpdatedAt) <= staleAfter {
			continue
		}

		log.Warnf("[JobQueue] Requeueing job %s (type=%s, status=%s)", job.ID, job.Type, job.Status)
		job.Status = JobStatusPending
		job.UpdatedAt = now
		_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			q.save(ctx, pipe, job)
			pipe.LRem(ctx, activeKey, 1, id)
			pipe.RPush(ctx, pendingKey, id)
			return nil
		})
		if err != nil {
			return reclaimed, err
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (q *Queue) load(ctx context.Context, id string) (*Job, error) {
	data, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (q *Queue) save(ctx context.Context, c redis.Cmdable, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := c.Set(ctx, jobKey(job.ID), data, jobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to save job %s: %v", job.ID, err)
	}
}
