package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

// Handler applies events. *reconcile.Engine satisfies it.
type Handler interface {
	Apply(ctx context.Context, ev reconcile.Event) (reconcile.Result, error)
	RecordFailure(ctx context.Context, ev reconcile.Event, cause error) error
}

type Options struct {
	Prefix            string
	Workers           int
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	VisibilityTimeout time.Duration
	// PollInterval bounds how long a worker blocks waiting for a job and how
	// often delayed retries are promoted.
	PollInterval  time.Duration
	SweepInterval time.Duration
	// JobTTL applies to jobs that are not dead-lettered. Dead letters persist
	// until replayed.
	JobTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "payrecon"
	}

	if o.Workers <= 0 {
		o.Workers = 4
	}

	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}

	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}

	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Minute
	}

	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = 10 * time.Minute
	}

	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}

	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}

	if o.JobTTL <= 0 {
		o.JobTTL = 7 * 24 * time.Hour
	}

	return o
}

type keys struct {
	prefix     string
	pending    string
	processing string
	delayed    string
	dead       string
	// started scores each processing job id by when a worker took it.
	started string
}

func newKeys(prefix string) keys {
	return keys{
		prefix:     prefix,
		pending:    prefix + ":pending",
		processing: prefix + ":processing",
		delayed:    prefix + ":delayed",
		dead:       prefix + ":dead",
		started:    prefix + ":started",
	}
}

func (k keys) job(id string) string { return k.prefix + ":job:" + id }

// promoteScript moves every due job id from the delayed set to the pending
// list in one step, so two schedulers never promote the same id twice.
var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	redis.call('LPUSH', KEYS[2], id)
end
return #ids
`)

// replayScript moves a dead job id back to pending and rewrites its body, but
// only when the id was still on the dead list. Nothing moves otherwise.
var replayScript = redis.NewScript(`
if redis.call('LREM', KEYS[1], 1, ARGV[1]) == 0 then
	return 0
end
redis.call('SET', KEYS[3], ARGV[2], 'PX', ARGV[3])
redis.call('LPUSH', KEYS[2], ARGV[1])
return 1
`)

const promoteBatch = 100

// Queue is a Redis-backed at-least-once job queue with delayed retries and a
// dead-letter list.
type Queue struct {
	client *redis.Client
	opts   Options
	keys   keys
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(client *redis.Client, opts Options, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	opts = opts.withDefaults()

	return &Queue{
		client: client,
		opts:   opts,
		keys:   newKeys(opts.Prefix),
		logger: logger.With("component", "queue"),
	}
}

// Start launches the workers, the retry scheduler and the stuck-job sweeper.
func (q *Queue) Start(ctx context.Context, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.running = true

	q.logger.Info("starting queue", "workers", q.opts.Workers, "prefix", q.opts.Prefix)

	for i := range q.opts.Workers {
		q.wg.Add(1)
		go q.worker(ctx, i, h)
	}

	q.wg.Add(2)
	go q.scheduler(ctx)
	go q.sweeper(ctx)
}

// Stop stops pulling new jobs and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	q.logger.Info("stopping queue")
	q.cancel()
	q.wg.Wait()
	q.running = false
	q.logger.Info("queue stopped")
}

func (q *Queue) Enqueue(ctx context.Context, ev reconcile.Event) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:          uuid.New().String(),
		Event:       ev,
		Status:      StatusPending,
		MaxAttempts: q.opts.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshaling job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, q.opts.JobTTL)
		pipe.LPush(ctx, q.keys.pending, job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueuing job: %w", err)
	}

	q.logger.Debug("job enqueued", "job_id", job.ID, "event_id", ev.ExternalEventID)

	return job, nil
}

func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.keys.job(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}

		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job %s: %w", id, err)
	}

	return &job, nil
}

// DeadLetters returns up to limit dead jobs, most recent first.
func (q *Queue) DeadLetters(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := q.client.LRange(ctx, q.keys.dead, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))

	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}

			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Replay moves a dead job back to the pending list with a fresh retry budget.
func (q *Queue) Replay(ctx context.Context, id string) (*Job, error) {
	job, err := q.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	job.Reset()

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshaling job %s: %w", id, err)
	}

	moved, err := replayScript.Run(ctx, q.client,
		[]string{q.keys.dead, q.keys.pending, q.keys.job(id)},
		id, data, q.opts.JobTTL.Milliseconds(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("replaying dead letter %s: %w", id, err)
	}

	if moved == 0 {
		return nil, fmt.Errorf("dead letter %s: %w", id, ErrJobNotFound)
	}

	q.logger.Info("dead letter replayed", "job_id", id, "event_id", job.Event.ExternalEventID)

	return job, nil
}

type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
	Dead       int64 `json:"dead"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.keys.pending)
	processing := pipe.LLen(ctx, q.keys.processing)
	delayed := pipe.ZCard(ctx, q.keys.delayed)
	dead := pipe.LLen(ctx, q.keys.dead)

	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("reading queue stats: %w", err)
	}

	return Stats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
		Dead:       dead.Val(),
	}, nil
}

func (q *Queue) worker(ctx context.Context, id int, h Handler) {
	defer q.wg.Done()

	log := q.logger.With("worker", id)
	log.Debug("worker started")

	for {
		if ctx.Err() != nil {
			log.Debug("worker stopping")
			return
		}

		if _, err := q.processNext(ctx, h); err != nil {
			if ctx.Err() != nil {
				return
			}

			log.Error("failed to process job", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(q.opts.PollInterval):
			}
		}
	}
}

// processNext blocks up to PollInterval for a job and handles it. It reports
// false when no job was available.
func (q *Queue) processNext(ctx context.Context, h Handler) (bool, error) {
	id, err := q.client.BLMove(ctx, q.keys.pending, q.keys.processing, "RIGHT", "LEFT", q.opts.PollInterval).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("dequeuing job: %w", err)
	}

	if err := q.client.ZAdd(ctx, q.keys.started, redis.Z{Score: float64(time.Now().UnixMilli()), Member: id}).Err(); err != nil {
		q.logger.Error("failed to mark job started", "job_id", id, "error", err)
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, q.keys.processing, 1, id)
		q.client.ZRem(ctx, q.keys.started, id)

		return false, err
	}

	// In-flight jobs finish even when the queue is stopping.
	q.process(context.WithoutCancel(ctx), h, job)

	return true, nil
}

func (q *Queue) process(ctx context.Context, h Handler, job *Job) {
	job.MarkAsProcessing()

	if err := q.save(ctx, job); err != nil {
		q.logger.Error("failed to save job", "job_id", job.ID, "error", err)
	}

	log := q.logger.With("job_id", job.ID, "event_id", job.Event.ExternalEventID, "attempt", job.Attempts)

	res, err := h.Apply(ctx, job.Event)

	switch dispose(job, err) {
	case dispositionDone:
		log.Info("job completed", "outcome", res.Outcome)
		q.complete(ctx, job)

	case dispositionRetry:
		delay := Backoff(job.Attempts, q.opts.BackoffBase, q.opts.BackoffMax)
		job.MarkAsRetrying(err)
		log.Warn("job failed, retrying", "delay", delay, "error", err)
		q.retry(ctx, job, delay)

	case dispositionDeadLetter:
		if reconcile.Retryable(err) {
			// The engine only records failures it classifies as final. An
			// exhausted transient failure is recorded here.
			if rerr := h.RecordFailure(ctx, job.Event, err); rerr != nil {
				log.Error("failed to record event failure", "error", rerr)
			}
		}

		job.MarkAsDead(err)
		log.Error("job dead-lettered", "kind", job.ErrorKind, "error", err)
		q.deadLetter(ctx, job)
	}
}

func (q *Queue) save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.ID, err)
	}

	if err := q.client.Set(ctx, q.keys.job(job.ID), data, q.opts.JobTTL).Err(); err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}

	return nil
}

func (q *Queue) complete(ctx context.Context, job *Job) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, q.keys.job(job.ID))
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.ZRem(ctx, q.keys.started, job.ID)
		return nil
	})
	if err != nil {
		q.logger.Error("failed to complete job", "job_id", job.ID, "error", err)
	}
}

func (q *Queue) retry(ctx context.Context, job *Job, delay time.Duration) {
	data, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("failed to marshal job", "job_id", job.ID, "error", err)
		return
	}

	readyAt := time.Now().Add(delay).UnixMilli()

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, q.opts.JobTTL)
		pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(readyAt), Member: job.ID})
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.ZRem(ctx, q.keys.started, job.ID)
		return nil
	})
	if err != nil {
		q.logger.Error("failed to schedule retry", "job_id", job.ID, "error", err)
	}
}

func (q *Queue) deadLetter(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("failed to marshal job", "job_id", job.ID, "error", err)
		return
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, 0)
		pipe.LPush(ctx, q.keys.dead, job.ID)
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.ZRem(ctx, q.keys.started, job.ID)
		return nil
	})
	if err != nil {
		q.logger.Error("failed to dead-letter job", "job_id", job.ID, "error", err)
	}
}

// promoteDue moves retries whose delay has elapsed back to the pending list.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{q.keys.delayed, q.keys.pending},
		strconv.FormatInt(now.UnixMilli(), 10), promoteBatch,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promoting delayed jobs: %w", err)
	}

	return n, nil
}

func (q *Queue) scheduler(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := q.promoteDue(ctx, now)
			if err != nil {
				if ctx.Err() == nil {
					q.logger.Error("failed to promote delayed jobs", "error", err)
				}

				continue
			}

			if n > 0 {
				q.logger.Debug("promoted delayed jobs", "count", n)
			}
		}
	}
}

func (q *Queue) sweeper(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := q.recoverStuck(ctx, now); err != nil && ctx.Err() == nil {
				q.logger.Error("failed to sweep processing list", "error", err)
			}
		}
	}
}

// recoverStuck requeues jobs left in the processing list longer than the
// visibility timeout, typically by a worker that crashed mid-job. The age
// comes from the started set. An id with no start time yet is stamped now
// and given a full timeout.
func (q *Queue) recoverStuck(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.LRange(ctx, q.keys.processing, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("listing processing jobs: %w", err)
	}

	recovered := 0

	for _, id := range ids {
		score, err := q.client.ZScore(ctx, q.keys.started, id).Result()
		if errors.Is(err, redis.Nil) {
			err = q.client.ZAddNX(ctx, q.keys.started, redis.Z{Score: float64(now.UnixMilli()), Member: id}).Err()
			if err != nil {
				return recovered, fmt.Errorf("stamping processing job %s: %w", id, err)
			}

			continue
		}

		if err != nil {
			return recovered, fmt.Errorf("reading start of job %s: %w", id, err)
		}

		age := now.Sub(time.UnixMilli(int64(score)))
		if age <= q.opts.VisibilityTimeout {
			continue
		}

		job, err := q.GetJob(ctx, id)
		if err != nil {
			q.logger.Warn("dropping unreadable job from processing list", "job_id", id, "error", err)
			q.client.LRem(ctx, q.keys.processing, 1, id)
			q.client.ZRem(ctx, q.keys.started, id)

			continue
		}

		q.logger.Warn("recovering stuck job", "job_id", id, "age", age)

		job.Status = StatusPending
		job.UpdatedAt = now

		data, err := json.Marshal(job)
		if err != nil {
			return recovered, fmt.Errorf("marshaling job %s: %w", id, err)
		}

		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, q.keys.job(id), data, q.opts.JobTTL)
			pipe.LRem(ctx, q.keys.processing, 1, id)
			pipe.ZRem(ctx, q.keys.started, id)
			pipe.RPush(ctx, q.keys.pending, id)
			return nil
		})
		if err != nil {
			return recovered, fmt.Errorf("requeuing stuck job %s: %w", id, err)
		}

		recovered++
	}

	return recovered, nil
}
