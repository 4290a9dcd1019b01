package live

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-radar-alerts/internal/observability"
)

const clientBuffer = 64

// Hub tracks connected dashboard clients. One lock guards membership and
// broadcast iteration.
type Hub struct {
	clients map[uint64]chan []byte
	nextID  atomic.Uint64
	mu      sync.RWMutex
	closed  bool
	metrics *observability.Metrics
}

func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		clients: make(map[uint64]chan []byte),
		metrics: metrics,
	}
}

func (h *Hub) Subscribe() (uint64, <-chan []byte) {
	id := h.nextID.Add(1)
	ch := make(chan []byte, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.clients[id] = ch
	h.metrics.LiveClients.Inc()

	return id, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
		h.metrics.LiveClients.Dec()
	}
}

// Broadcast queues msg for every client. Clients with a full queue miss it;
// the periodic snapshot catches them up.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client channels, which ends their connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
		h.metrics.LiveClients.Dec()
	}
}
