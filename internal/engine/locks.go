package engine

import "sync"

// projectLocks serializes units of work per project. Operations against
// different projects run fully in parallel; there is no shared mutable
// state across projects beyond this map.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named project and returns the unlock func
func (p *projectLocks) acquire(projectID string) func() {
	p.mu.Lock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
