package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAlerts = "jobs:alerts"

	JobLowStock = "low_stock"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JobHandler processes one job payload. A returned error moves the job to the
// dead letter queue; handlers do their own retrying.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers maps job types to their handlers.
type WorkerHandlers struct {
	Alerts JobHandler
}

var errUnknownJob = errors.New("unknown job type")

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueLowStock pushes a low stock alert job to Redis.
func (d *Dispatcher) EnqueueLowStock(ctx context.Context, payload LowStockPayload) error {
	return d.enqueue(ctx, QueueAlerts, JobLowStock, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// StartWorkerPool launches numWorkers goroutines consuming the alert queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// popFunc pops one job; it returns [queue, payload] or an error.
type popFunc func(ctx context.Context) ([]string, error)

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	pop := func(ctx context.Context) ([]string, error) {
		// Blocking pop, waits up to 5s then loops to check ctx
		return rdb.BRPop(ctx, 5*time.Second, QueueAlerts).Result()
	}
	handle := func(ctx context.Context, queue, raw string) {
		processJob(ctx, rdb, handlers, queue, raw)
	}
	consume(ctx, id, pop, handle, newPopBackOff())
}

func newPopBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// consume pops and handles jobs until ctx is done. A failed pop other than
// the BRPOP timeout (redis.Nil) waits out the next backoff interval, so an
// unreachable Redis is not polled in a tight loop.
func consume(ctx context.Context, id int, pop popFunc, handle func(ctx context.Context, queue, raw string), b backoff.BackOff) {
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		result, err := pop(ctx)
		switch {
		case err == nil:
			b.Reset()
			if len(result) == 2 {
				handle(ctx, result[0], result[1])
			}
		case errors.Is(err, redis.Nil):
			b.Reset()
		case ctx.Err() != nil:
		default:
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				wait = 30 * time.Second
			}
			log.Warn().Err(err).Int("worker", id).Dur("retry_in", wait).Msg("queue pop failed")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		_ = SendToDLQ(ctx, rdb, queue, "", json.RawMessage(raw), "malformed envelope: "+err.Error(), 0)
		return
	}
	if err := dispatch(ctx, handlers, job); err != nil {
		log.Error().Str("type", job.Type).Str("queue", queue).Err(err).Msg("job failed")
		_ = SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), MaxAlertAttempts)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}

func dispatch(ctx context.Context, handlers *WorkerHandlers, job Job) error {
	switch job.Type {
	case JobLowStock:
		if handlers == nil || handlers.Alerts == nil {
			return fmt.Errorf("%w: no handler for %q", errUnknownJob, job.Type)
		}
		return handlers.Alerts.Process(ctx, job.Payload)
	default:
		return fmt.Errorf("%w: %q", errUnknownJob, job.Type)
	}
}
