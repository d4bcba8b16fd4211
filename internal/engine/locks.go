package engine

import "sync"

// keyedLocks hands out one mutex per entity identifier, so no two workers
// ever process the same identity concurrently. Locks live for the life of
// the engine; the population is bounded by distinct entity ids seen.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for id and returns the unlock func.
func (k *keyedLocks) acquire(id string) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
