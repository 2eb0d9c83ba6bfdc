package service

import (
	"fmt"
	"sync"
	"time"
)

// inflightLocks is a time-bounded advisory lock keyed by (attempt, question).
// Acquisition is non-blocking: a concurrent save for the same key is
// deflected to the retry queue instead of waiting. The TTL bounds the hold
// so a crashed save attempt cannot permanently wedge a key.
type inflightLocks struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]time.Time
	now  func() time.Time
}

func newInflightLocks(ttl time.Duration) *inflightLocks {
	return &inflightLocks{
		ttl:  ttl,
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func saveKey(attemptID, questionID uint) string {
	return fmt.Sprintf("%d:%d", attemptID, questionID)
}

// TryAcquire marks the key in-flight. Returns false if the key is already
// held and its TTL has not yet expired.
func (l *inflightLocks) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[key]; ok && l.now().Before(expiry) {
		return false
	}
	l.held[key] = l.now().Add(l.ttl)
	return true
}

func (l *inflightLocks) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
