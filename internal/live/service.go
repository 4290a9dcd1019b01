package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

const (
	TypeSnapshot     = "snapshot"
	TypeRegionUpdate = "region_update"
)

type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type RegionUpdate struct {
	Region   models.Region                         `json:"region"`
	Statuses map[models.HazardType]models.Severity `json:"statuses"`
}

type StateReader interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	RegionStatuses(ctx context.Context, region models.Region) (map[models.HazardType]models.Severity, error)
}

// Service pushes state to the hub: incremental region updates on every
// accepted transition and full snapshots on demand or on drift.
type Service struct {
	hub    *Hub
	states StateReader

	mu   sync.Mutex
	last models.Snapshot
}

func NewService(hub *Hub, states StateReader) *Service {
	return &Service{
		hub:    hub,
		states: states,
	}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// Publish sends the current statuses of the transition's region.
func (s *Service) Publish(ctx context.Context, t models.Transition) error {
	statuses, err := s.states.RegionStatuses(ctx, t.Region)
	if err != nil {
		return fmt.Errorf("read region statuses: %w", err)
	}

	msg, err := json.Marshal(Envelope{
		Type: TypeRegionUpdate,
		Data: RegionUpdate{Region: t.Region, Statuses: statuses},
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(msg)
	return nil
}

func (s *Service) SnapshotMessage(ctx context.Context) ([]byte, error) {
	snap, err := s.states.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return encodeSnapshot(snap)
}

func encodeSnapshot(snap models.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = models.Snapshot{}
	}
	return json.Marshal(Envelope{Type: TypeSnapshot, Data: snap})
}

// Reconcile broadcasts the full snapshot when it differs from the last one
// broadcast. It reports whether anything was sent.
func (s *Service) Reconcile(ctx context.Context) (bool, error) {
	snap, err := s.states.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("read snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.Equal(snap) {
		return false, nil
	}

	msg, err := encodeSnapshot(snap)
	if err != nil {
		return false, err
	}
	s.last = snap
	s.hub.Broadcast(msg)
	return true, nil
}

// RunReconciler re-sends the snapshot on drift every interval until ctx is
// done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if sent, err := s.Reconcile(ctx); err != nil {
			slog.Error("live snapshot reconcile failed", "error", err)
		} else if sent {
			slog.Debug("broadcast new snapshot", "clients", s.hub.ClientCount())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
