package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// KeyedMutex hands out one mutex per key so settlements on different
// accounts never serialize against each other. Entries are reference
// counted and removed when the last waiter is done, so the table does not
// grow with the number of accounts ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{} // holds one token when unlocked
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key, waiting at most timeout. A timeout or
// context cancellation surfaces as ErrConcurrencyTimeout so callers can
// treat it as retryable.
func (m *KeyedMutex) Lock(ctx context.Context, key string, timeout time.Duration) error {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		l.ch <- struct{}{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.ch:
		return nil
	case <-timer.C:
		m.drop(key)
		return fmt.Errorf("waiting for %s: %w", key, ErrConcurrencyTimeout)
	case <-ctx.Done():
		m.drop(key)
		return fmt.Errorf("waiting for %s: %w", key, ErrConcurrencyTimeout)
	}
}

// Unlock releases the mutex for key. Unlocking a key that is not held is a
// programming error and panics, same as sync.Mutex.
func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	l, ok := m.locks[key]
	m.mu.Unlock()
	if !ok {
		panic("services: unlock of unheld key " + key)
	}
	l.ch <- struct{}{}
	m.drop(key)
}

func (m *KeyedMutex) drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(m.locks, key)
	}
}
