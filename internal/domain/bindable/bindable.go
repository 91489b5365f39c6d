// Package bindable provides an observable current-value cell.
package bindable

import "sync"

// ValueChangedEvent describes a value transition.
type ValueChangedEvent[T any] struct {
	Old T
	New T
}

// Observable is the read side of a Bindable.
type Observable[T any] interface {
	// Value returns the current value.
	Value() T
	// OnValueChanged registers fn and returns a func that removes it.
	// The returned func is safe to call more than once.
	OnValueChanged(fn func(ValueChangedEvent[T])) (unsubscribe func())
}

type listener[T any] struct {
	id uint64
	fn func(ValueChangedEvent[T])
}

// Bindable holds a value and notifies listeners when it changes.
// Listeners run on the goroutine that called Set, after the lock is released,
// in registration order.
type Bindable[T comparable] struct {
	mu        sync.RWMutex
	value     T
	listeners []listener[T]
	nextID    uint64
}

// New creates a Bindable holding initial.
func New[T comparable](initial T) *Bindable[T] {
	return &Bindable[T]{value: initial}
}

// Value returns the current value.
func (b *Bindable[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set stores v and notifies listeners. Setting the current value is a no-op.
func (b *Bindable[T]) Set(v T) {
	b.mu.Lock()
	if b.value == v {
		b.mu.Unlock()
		return
	}
	ev := ValueChangedEvent[T]{Old: b.value, New: v}
	b.value = v
	ls := make([]listener[T], len(b.listeners))
	copy(ls, b.listeners)
	b.mu.Unlock()

	for _, l := range ls {
		l.fn(ev)
	}
}

// OnValueChanged implements Observable.
func (b *Bindable[T]) OnValueChanged(fn func(ValueChangedEvent[T])) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Bindable[T]) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Bindable[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}
