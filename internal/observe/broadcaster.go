// internal/observe/broadcaster.go
package observe

import "sync"

// Broadcaster fans out committed snapshots to subscribers. Subscribers are called
// synchronously, in subscription order, on the publishing goroutine.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and immediately hands it the current value.
// The returned function removes the subscription; calling it twice is safe.
func (b *Broadcaster[T]) Subscribe(current T, fn func(T)) (cancel func()) {
	cancel = b.Listen(fn)
	fn(current)
	return cancel
}

// Listen registers fn for future publishes only. Used for event streams that
// have no meaningful "current" value.
func (b *Broadcaster[T]) Listen(fn func(T)) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers v to every subscriber registered at the time of the call.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len reports the number of active subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
