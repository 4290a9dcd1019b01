package ingestion

import "sync"

// LastSeen remembers the latest message text per source for the lifetime of
// the process.
type LastSeen struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewLastSeen() *LastSeen {
	return &LastSeen{seen: make(map[string]string)}
}

// Update stores text for source and reports whether it differs from the
// previous one.
func (l *LastSeen) Update(source, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.seen[source]; ok && prev == text {
		return false
	}
	l.seen[source] = text
	return true
}

func (l *LastSeen) Get(source string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.seen[source]
	return text, ok
}
