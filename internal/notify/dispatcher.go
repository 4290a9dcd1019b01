package notify

import (
	"context"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/worker"
)

type Notifier interface {
	Notify(ctx context.Context, t models.Transition) error
}

// Dispatcher runs notifications on its own pool so fan-out can be stopped
// independently from polling. Transitions of one region key are delivered in
// the order they were dispatched.
type Dispatcher struct {
	pool *worker.WorkerPool[models.Transition]
}

func NewDispatcher(n Notifier, workers, buffer int) *Dispatcher {
	return &Dispatcher{
		pool: worker.NewKeyedWorkerPool("notify", workers, buffer, models.Transition.Key, n.Notify),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

func (d *Dispatcher) Dispatch(ctx context.Context, t models.Transition) error {
	return d.pool.Submit(ctx, t)
}

// Stop waits for queued notifications.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
}
