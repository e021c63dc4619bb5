// Package lazy provides process-lifetime memoization for values that are
// expensive to resolve (instance metadata, catalog loads, topic ARNs).
//
// A [Value] or [Map] outcome is never invalidated: the first result, success
// or failure, is returned to every later caller. A [Loader] keeps successful
// results only, so a failed load is attempted again by the next caller.
package lazy

import "sync"

// Value memoizes the outcome of a single resolution.
type Value[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Get resolves the value with fn on first use and returns the cached
// outcome afterwards.
func (v *Value[T]) Get(fn func() (T, error)) (T, error) {
	v.once.Do(func() {
		v.val, v.err = fn()
	})
	return v.val, v.err
}

// Map memoizes one Value per key.
type Map[K comparable, T any] struct {
	mu     sync.Mutex
	values map[K]*Value[T]
}

// Get resolves the value for key with fn on first use.
func (m *Map[K, T]) Get(key K, fn func() (T, error)) (T, error) {
	return m.entry(key).Get(fn)
}

func (m *Map[K, T]) entry(key K) *Value[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[K]*Value[T])
	}
	v, ok := m.values[key]
	if !ok {
		v = &Value[T]{}
		m.values[key] = v
	}
	return v
}

// Loader memoizes successful loads per key. Errors are returned to the
// caller and nothing is stored. Concurrent callers for one key wait for the
// load in progress.
type Loader[K comparable, T any] struct {
	mu      sync.Mutex
	entries map[K]*loaderEntry[T]
}

type loaderEntry[T any] struct {
	mu     sync.Mutex
	loaded bool
	val    T
}

// Get returns the stored value for key, or loads it with fn.
func (l *Loader[K, T]) Get(key K, fn func() (T, error)) (T, error) {
	e := l.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.val, nil
	}
	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	e.val, e.loaded = v, true
	return v, nil
}

func (l *Loader[K, T]) entry(key K) *loaderEntry[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = make(map[K]*loaderEntry[T])
	}
	e, ok := l.entries[key]
	if !ok {
		e = &loaderEntry[T]{}
		l.entries[key] = e
	}
	return e
}
