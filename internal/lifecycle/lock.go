package lifecycle

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// KeyedLock hands out one exclusive slot per task ID. Entries are reference
// counted and dropped once no caller holds or waits for them.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{entries: make(map[uuid.UUID]*lockEntry)}
}

func (l *KeyedLock) ref(id uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *KeyedLock) unref(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// Acquire blocks until the slot for id is free or ctx is done.
// The returned function releases the slot and must be called exactly once.
func (l *KeyedLock) Acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	e := l.ref(id)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(id)
		return nil, err
	}
	return l.releaser(id, e), nil
}

// TryAcquire takes the slot for id only if it is free right now.
func (l *KeyedLock) TryAcquire(id uuid.UUID) (func(), bool) {
	e := l.ref(id)
	if !e.sem.TryAcquire(1) {
		l.unref(id)
		return nil, false
	}
	return l.releaser(id, e), true
}

func (l *KeyedLock) releaser(id uuid.UUID, e *lockEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(id)
		})
	}
}

// Len returns the number of IDs currently held or awaited.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
