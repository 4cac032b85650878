// Package events is a small typed publish/subscribe bus. Publishers and
// subscribers are expected to run on the scheduler loop.
package events

import "sync"

type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id   int
	fn   func(T)
	once bool
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn for every published value.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return b.add(fn, false)
}

// SubscribeOnce registers fn for the next published value only.
func (b *Bus[T]) SubscribeOnce(fn func(T)) (unsubscribe func()) {
	return b.add(fn, true)
}

func (b *Bus[T]) add(fn func(T), once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn, once: once})

	return func() { b.remove(id) }
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to subscribers in registration order. One-shot
// subscribers are latched off before any callback runs, so a nested
// Publish never reaches them twice.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	targets := make([]func(T), 0, len(b.subs))
	kept := b.subs[:0]
	for _, s := range b.subs {
		targets = append(targets, s.fn)
		if !s.once {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(b.subs); i++ {
		b.subs[i] = subscription[T]{}
	}
	b.subs = kept
	b.mu.Unlock()

	for _, fn := range targets {
		fn(v)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
