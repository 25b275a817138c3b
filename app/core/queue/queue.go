package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrStarted = errors.New("queue: already started")
	ErrStopped = errors.New("queue: stopped")
)

// Job is one unit of asynchronous work, typically a task dispatch. A job
// runs exactly once; failure handling belongs to the job itself.
type Job struct {
	ID             string
	AttemptTimeout time.Duration
	Run            func(context.Context) error
}

// Queue is a bounded worker pool draining jobs in submission order.
type Queue struct {
	mu       sync.Mutex
	jobs     chan Job
	started  bool
	stopping bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	nextID    atomic.Uint64
	inFlight  atomic.Int64
	enqueued  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

type Stats struct {
	Started   bool   `json:"started"`
	Depth     int    `json:"depth"`
	Capacity  int    `json:"capacity"`
	Enqueued  uint64 `json:"enqueued"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{jobs: make(chan Job, buffer)}
}

// Enqueue submits a job, blocking while the buffer is full until ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job Job) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if job.Run == nil {
		return "", errors.New("queue: job run callback is required")
	}
	if job.AttemptTimeout < 0 {
		return "", errors.New("queue: attempt timeout cannot be negative")
	}
	if job.ID == "" {
		job.ID = fmt.Sprintf("q-%d", q.nextID.Add(1))
	}

	q.mu.Lock()
	jobs := q.jobs
	stopping := q.stopping
	q.mu.Unlock()
	if stopping {
		return "", ErrStopped
	}

	select {
	case jobs <- job:
		q.enqueued.Add(1)
		return job.ID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("queue: enqueue canceled: %w", ctx.Err())
	}
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	return Stats{
		Started:   started,
		Depth:     len(q.jobs),
		Capacity:  cap(q.jobs),
		Enqueued:  q.enqueued.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
	}
}

func (q *Queue) Start(parent context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(parent)
	q.cancel = cancel
	q.started = true
	q.stopping = false
	q.mu.Unlock()

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return nil
}

// Stop drains pending jobs, waiting up to timeout for in-flight work.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	cancel := q.cancel
	q.cancel = nil
	q.started = false
	q.stopping = true
	q.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for len(q.jobs) > 0 || q.inFlight.Load() > 0 {
		if timeout > 0 && time.Now().After(deadline) {
			cancel()
			q.mu.Lock()
			q.stopping = false
			q.mu.Unlock()
			return fmt.Errorf("queue: stop timeout after %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	q.wg.Wait()

	q.mu.Lock()
	q.stopping = false
	q.mu.Unlock()
	return nil
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.inFlight.Add(1)
			q.runOnce(ctx, job)
			q.inFlight.Add(-1)
		}
	}
}

func (q *Queue) runOnce(parent context.Context, job Job) {
	runCtx := parent
	cancel := func() {}
	if job.AttemptTimeout > 0 {
		runCtx, cancel = context.WithTimeout(parent, job.AttemptTimeout)
	}
	err := job.Run(runCtx)
	cancel()
	if err != nil {
		q.failed.Add(1)
		return
	}
	q.completed.Add(1)
}
