package engine

import "sync"

// keyedMutex serializes operations per request id. The store has no
// transition-level guard of its own, so two approvers racing on the same
// request must be ordered here; the version column catches races from other
// processes.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*entry)}
}

// lock acquires the mutex for id and returns the matching unlock func.
func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &entry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
