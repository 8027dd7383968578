package queue

import (
	"errors"
	"time"

	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

var ErrJobNotFound = errors.New("job not found")

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRetrying   Status = "retrying"
	StatusDead       Status = "dead"
)

// Job carries one normalized event through the queue. The full event travels
// with the job so a dead letter can be inspected and replayed as is.
type Job struct {
	ID          string          `json:"id"`
	Event       reconcile.Event `json:"event"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	ErrorKind   reconcile.Kind  `json:"error_kind,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	DeadAt      *time.Time      `json:"dead_at,omitempty"`
}

// MarkAsProcessing starts a new attempt.
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = StatusProcessing
	j.Attempts++
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

func (j *Job) MarkAsRetrying(err error) {
	j.Status = StatusRetrying
	j.recordError(err)
}

func (j *Job) MarkAsDead(err error) {
	now := time.Now()
	j.Status = StatusDead
	j.DeadAt = &now
	j.recordError(err)
}

// Reset prepares a dead job for replay with a fresh retry budget.
func (j *Job) Reset() {
	j.Status = StatusPending
	j.Attempts = 0
	j.DeadAt = nil
	j.ProcessedAt = nil
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has attempts left.
func (j *Job) IsRetryable() bool {
	return j.Attempts < j.MaxAttempts
}

func (j *Job) recordError(err error) {
	j.UpdatedAt = time.Now()

	if err == nil {
		return
	}

	j.LastError = err.Error()
	j.ErrorKind = reconcile.KindOf(err)
}

type disposition int

const (
	dispositionDone disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

// dispose decides what happens to j after an attempt that returned err.
// Only transient errors are retried, and only while attempts remain.
func dispose(j *Job, err error) disposition {
	switch {
	case err == nil:
		return dispositionDone
	case reconcile.Retryable(err) && j.IsRetryable():
		return dispositionRetry
	default:
		return dispositionDeadLetter
	}
}

// Backoff returns base·2^(attempt−1), capped at maxDelay.
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay || d <= 0 {
			return maxDelay
		}
	}

	return min(d, maxDelay)
}
