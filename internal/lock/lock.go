// Package lock serialises read-modify-write sequences on a product's stock
// or a debt's balance.
package lock

import (
	"context"
	"slices"
	"sync"
)

// Locker acquires every key or none. Keys are taken in sorted order so two
// callers locking overlapping sets cannot deadlock. The returned unlock is
// idempotent.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is a Locker for a single process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := k.acquire(ctx, key); err != nil {
			k.release(acquired)
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(acquired) })
	}, nil
}

func (k *KeyedMutex) acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		k.drop(key, l)
		k.mu.Unlock()
		return ctx.Err()
	}
}

func (k *KeyedMutex) release(keys []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		l := k.locks[key]
		<-l.ch
		k.drop(key, l)
	}
}

// drop must be called with k.mu held.
func (k *KeyedMutex) drop(key string, l *keyLock) {
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
