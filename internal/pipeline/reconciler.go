package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
	"github.com/mr1hm/go-radar-alerts/internal/repository"
)

const defaultWriteTimeout = 10 * time.Second

// Reconciler is the only writer of the fact log. It appends a row when the
// proposed severity differs from the current one and suppresses repeats.
type Reconciler struct {
	repo         repository.AlertRepository
	clock        clockwork.Clock
	metrics      *observability.Metrics
	writeTimeout time.Duration
	locks        keyLocks
}

func NewReconciler(repo repository.AlertRepository, clock clockwork.Clock, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		repo:         repo,
		clock:        clock,
		metrics:      metrics,
		writeTimeout: defaultWriteTimeout,
		locks:        keyLocks{m: make(map[models.Target]*keyLock)},
	}
}

// Reconcile returns the accepted transition, or nil when the key already
// holds the proposed severity.
func (r *Reconciler) Reconcile(ctx context.Context, target models.Target, sev models.Severity, source string) (*models.Transition, error) {
	return r.ReconcileThen(ctx, target, sev, source, nil)
}

// ReconcileThen is Reconcile with a hook that runs on the accepted transition
// before the key is released, so hooks of one key run in commit order.
func (r *Reconciler) ReconcileThen(ctx context.Context, target models.Target, sev models.Severity, source string, then func(*models.Transition)) (*models.Transition, error) {
	unlock := r.locks.lock(target)
	defer unlock()

	current, ok, err := r.repo.LastSeverity(ctx, target.Region, target.HazardType)
	if err != nil {
		return nil, fmt.Errorf("read state %s/%s: %w", target.Region, target.HazardType, err)
	}
	if ok && current == sev {
		r.metrics.TransitionsTotal.WithLabelValues("suppressed").Inc()
		return nil, nil
	}

	state := &models.AlertState{
		Region:     target.Region,
		HazardType: target.HazardType,
		Severity:   sev,
		Source:     source,
		CreatedAt:  r.clock.Now(),
	}

	// a started write commits even if the caller goes away
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()
	if err := r.repo.AppendState(writeCtx, state); err != nil {
		return nil, fmt.Errorf("append state %s/%s: %w", target.Region, target.HazardType, err)
	}

	r.metrics.TransitionsTotal.WithLabelValues("accepted").Inc()
	tr := &models.Transition{
		Region:     state.Region,
		HazardType: state.HazardType,
		Severity:   state.Severity,
		Source:     state.Source,
		At:         state.CreatedAt,
	}
	if then != nil {
		then(tr)
	}
	return tr, nil
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyLocks serializes work per key and forgets keys nobody holds.
type keyLocks struct {
	mu sync.Mutex
	m  map[models.Target]*keyLock
}

func (k *keyLocks) lock(key models.Target) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
