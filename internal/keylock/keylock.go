// Package keylock serializes work per key. Holders of different keys never
// wait on each other.
package keylock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Locker hands out one logical lock per key. Entries exist only while some
// caller holds or waits for them.
type Locker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func New() *Locker {
	return &Locker{entries: make(map[uuid.UUID]*entry)}
}

// Lock blocks until key is free or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	e := l.acquire(key)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.release(key, e)
		return nil, fmt.Errorf("waiting for lock on %s: %w", key, err)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.release(key, e)
		})
	}, nil
}

// Held reports how many keys currently have holders or waiters.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

func (l *Locker) acquire(key uuid.UUID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}

	e.refs++

	return e
}

func (l *Locker) release(key uuid.UUID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
