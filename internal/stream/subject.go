// Package stream provides the small publish/subscribe primitives the
// dashboard is built on: a broadcast subject that replays its latest value to
// new subscribers, and a debouncing operator that forwards only settled,
// changed values.
package stream

import "sync"

// Subscription is returned by every Subscribe call. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// Subject holds a current value and broadcasts every new value to all
// subscribers, in subscription order, before Publish returns. Callbacks must
// not publish to or subscribe on the subject that is invoking them.
type Subject[T any] struct {
	mu     sync.Mutex
	pubMu  sync.Mutex
	value  T
	nextID uint64
	order  []uint64
	subs   map[uint64]func(T)
}

// NewSubject creates a subject seeded with initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish stores v and delivers it to every active subscriber.
func (s *Subject[T]) Publish(v T) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.value = v
	fns := s.snapshot()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn and immediately delivers the current value to it.
func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	current := s.value
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() { s.remove(id) })
	})
}

// Len returns the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Subject[T]) snapshot() []func(T) {
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	return fns
}
