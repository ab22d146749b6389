// Package lock serializes mutations of one sub-order across both workflows.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the lock could not be taken before the wait budget ran out.
var ErrBusy = errors.New("sub-order is locked by another request")

// Locker hands out a mutual-exclusion lock per key. The returned release
// func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SubOrderKey is the lock key shared by early returns and extensions.
func SubOrderKey(subOrderID string) string {
	return "lock:suborder:" + subOrderID
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. It is only correct when a single
// server replica mutates sub-orders.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.drop(key, e)
		})
	}, nil
}

func (m *KeyedMutex) drop(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
