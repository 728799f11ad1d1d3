package workflow

import "sync"

// requestLocks serializes act calls per request ID. Entries are reference
// counted and removed once the last holder releases, so the map stays
// bounded by the number of requests currently being acted on.
type requestLocks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newRequestLocks() *requestLocks {
	return &requestLocks{
		entries: make(map[int64]*lockEntry),
	}
}

// Lock acquires the exclusive lock for a request ID
func (l *requestLocks) Lock(requestID int64) {
	l.mu.Lock()
	entry, ok := l.entries[requestID]
	if !ok {
		entry = &lockEntry{}
		l.entries[requestID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the exclusive lock for a request ID
func (l *requestLocks) Unlock(requestID int64) {
	l.mu.Lock()
	entry, ok := l.entries[requestID]
	if ok {
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, requestID)
		}
	}
	l.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
