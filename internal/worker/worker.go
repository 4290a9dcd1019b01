package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type ProcessFunc[T any] func(ctx context.Context, job T) error

// KeyFunc names the ordering key of a job.
type KeyFunc[T any] func(job T) string

type WorkerPool[T any] struct {
	name       string
	numWorkers int
	queues     []chan T
	key        KeyFunc[T]
	processor  ProcessFunc[T]
	wg         sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorkerPool shares one queue between all workers. Jobs run in no
// particular order.
func NewWorkerPool[T any](name string, numWorkers int, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	return newPool(name, numWorkers, []chan T{make(chan T, bufferSize)}, nil, processor)
}

// NewKeyedWorkerPool gives every worker its own queue and routes jobs by key.
// Jobs with the same key run one at a time in submission order.
func NewKeyedWorkerPool[T any](name string, numWorkers int, bufferSize int, key KeyFunc[T], processor ProcessFunc[T]) *WorkerPool[T] {
	numWorkers = max(numWorkers, 1)
	queues := make([]chan T, numWorkers)
	for i := range queues {
		queues[i] = make(chan T, bufferSize)
	}
	return newPool(name, numWorkers, queues, key, processor)
}

func newPool[T any](name string, numWorkers int, queues []chan T, key KeyFunc[T], processor ProcessFunc[T]) *WorkerPool[T] {
	return &WorkerPool[T]{
		name:       name,
		numWorkers: max(numWorkers, 1),
		queues:     queues,
		key:        key,
		processor:  processor,
		done:       make(chan struct{}),
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i+1, wp.queues[i%len(wp.queues)])
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int, jobs <-chan T) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				slog.Error("job failed", "pool", wp.name, "worker", id, "error", err)
			}
		}
	}
}

func (wp *WorkerPool[T]) queueFor(job T) chan T {
	if len(wp.queues) == 1 {
		return wp.queues[0]
	}
	h := fnv.New32a()
	h.Write([]byte(wp.key(job)))
	return wp.queues[h.Sum32()%uint32(len(wp.queues))]
}

// Submit blocks until the job is queued, ctx is done or the pool stops.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.queueFor(job) <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.done:
		return ErrPoolStopped
	}
}

// Stop rejects new jobs and waits for the workers to exit. Queued jobs still
// run unless the context given to Start is already done.
func (wp *WorkerPool[T]) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.done)

		wp.mu.Lock()
		wp.stopped = true
		for _, q := range wp.queues {
			close(q)
		}
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
