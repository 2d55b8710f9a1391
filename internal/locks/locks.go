// Package locks provides a mutex keyed by an arbitrary string id. It
// serializes critical sections for the same key while leaving different keys
// fully independent, which is the locking granularity holding mutations need:
// one account's adjustments queue behind each other, two accounts' never do.
package locks

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex is a set of mutexes addressed by key. The zero value is not
// usable; create one with NewKeyedMutex.
//
// Waiters for the same key are granted the lock in acquisition order subject
// to Go's sync.Mutex fairness: no strict FIFO, but starvation-mode hand-off
// guarantees every waiter eventually proceeds.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock acquires the exclusive lock for key, blocking while another caller
// holds it.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. The entry is dropped from the map once no
// holder or waiter references it, so the map stays proportional to the number
// of keys currently contended.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("locks: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len reports the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
