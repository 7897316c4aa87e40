package services

import "sync"

// OwnerLocks serializes mutations per learner. A learner's scheduling
// state is a chain of pure-function applications, so concurrent writes
// for the same owner must not interleave; different owners never
// contend.
type OwnerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewOwnerLocks() *OwnerLocks {
	return &OwnerLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for ownerID and returns its unlock func.
// Callers must not hold the lock across retry backoffs.
func (l *OwnerLocks) Lock(ownerID string) func() {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
