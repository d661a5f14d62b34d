// Package inflight provides process-scoped mutual exclusion keyed by an
// arbitrary string, e.g. an entry id or a delegate address.
package inflight

import (
	"context"
	"sync"
)

type Guard struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewGuard() *Guard {
	return &Guard{slots: make(map[string]chan struct{})}
}

// TryAcquire marks key as in flight. It returns false without blocking when
// another holder already owns the key.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.init()
	if _, busy := g.slots[key]; busy {
		return nil, false
	}
	done := make(chan struct{})
	g.slots[key] = done
	return g.releaser(key, done), true
}

// Acquire waits until key is free or ctx is done.
func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		g.mu.Lock()
		g.init()
		current, busy := g.slots[key]
		if !busy {
			done := make(chan struct{})
			g.slots[key] = done
			g.mu.Unlock()
			return g.releaser(key, done), nil
		}
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-current:
		}
	}
}

// Held reports whether key is currently in flight.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.slots[key]
	return busy
}

func (g *Guard) init() {
	if g.slots == nil {
		g.slots = make(map[string]chan struct{})
	}
}

func (g *Guard) releaser(key string, done chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			if g.slots[key] == done {
				delete(g.slots, key)
			}
			g.mu.Unlock()
			close(done)
		})
	}
}
