package engine

import (
	"sync"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// instanceLocks serializes engine work per workflow instance. Operations on
// different instances proceed in parallel; operations on the same instance
// queue behind each other. Entries are never removed: dropping one while a
// waiter still holds the old mutex would let two callers enter the critical
// section under different mutexes for the same instance
type instanceLocks struct {
	mu    sync.Mutex
	locks map[api.InstanceID]*sync.Mutex
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{
		locks: map[api.InstanceID]*sync.Mutex{},
	}
}

func (l *instanceLocks) lock(id api.InstanceID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
