package moderation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

var (
	ErrNotFound       = errors.New("report not found")
	ErrAlreadyHandled = errors.New("report already handled")
)

// Store holds pending reports in memory. Entries older than the TTL are
// evicted, handled or not, and the oldest entry makes room when the store
// is full.
type Store struct {
	mu       sync.Mutex
	reports  map[string]*models.PendingReport
	ttl      time.Duration
	capacity int
	clock    clockwork.Clock
}

// NewStore keeps at least one report whatever capacity is given.
func NewStore(ttl time.Duration, capacity int, clock clockwork.Clock) *Store {
	capacity = max(capacity, 1)
	return &Store{
		reports:  make(map[string]*models.PendingReport),
		ttl:      ttl,
		capacity: capacity,
		clock:    clock,
	}
}

func (s *Store) Add(userID int64, text string) models.PendingReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.evictExpired(now)
	for len(s.reports) >= s.capacity {
		s.evictOldest()
	}

	r := &models.PendingReport{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        text,
		SubmittedAt: now,
	}
	s.reports[r.ID] = r
	return *r
}

func (s *Store) Get(id string) (models.PendingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.clock.Now())
	r, ok := s.reports[id]
	if !ok {
		return models.PendingReport{}, ErrNotFound
	}
	return *r, nil
}

// Decide marks the report handled. Only the first decision is applied.
func (s *Store) Decide(id string, decision models.ReportDecision, adminID int64) (models.PendingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.clock.Now())
	r, ok := s.reports[id]
	if !ok {
		return models.PendingReport{}, ErrNotFound
	}
	if r.Handled {
		return *r, ErrAlreadyHandled
	}

	r.Handled = true
	r.Decision = decision
	r.DecidedBy = adminID
	return *r, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func (s *Store) evictExpired(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, r := range s.reports {
		if now.Sub(r.SubmittedAt) >= s.ttl {
			delete(s.reports, id)
		}
	}
}

func (s *Store) evictOldest() {
	var oldest *models.PendingReport
	for _, r := range s.reports {
		if oldest == nil || r.SubmittedAt.Before(oldest.SubmittedAt) {
			oldest = r
		}
	}
	if oldest != nil {
		delete(s.reports, oldest.ID)
	}
}
