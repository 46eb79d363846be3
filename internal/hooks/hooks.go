// Package hooks provides typed extension points. Each point has a fixed
// argument type so contributors are checked at compile time; handlers run by
// ascending priority and, within a priority, in registration order.
package hooks

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// DefaultPriority is used by contributors that do not care about ordering.
const DefaultPriority = 10

type entry[F any] struct {
	fn       F
	priority int
	seq      int
}

type list[F any] struct {
	mu      sync.RWMutex
	entries []entry[F]
	seq     int
}

func (l *list[F]) add(fn F, priority int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.entries = append(l.entries, entry[F]{fn: fn, priority: priority, seq: l.seq})
	sort.SliceStable(l.entries, func(i, j int) bool {
		if l.entries[i].priority != l.entries[j].priority {
			return l.entries[i].priority < l.entries[j].priority
		}
		return l.entries[i].seq < l.entries[j].seq
	})
}

// snapshot copies the handlers so they run without holding the lock; a
// handler may register further handlers.
func (l *list[F]) snapshot() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]F, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}

func (l *list[F]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Action is a named broadcast point.
type Action[T any] struct {
	name     string
	handlers list[func(T)]
	fired    atomic.Int64
}

func NewAction[T any](name string) *Action[T] {
	return &Action[T]{name: name}
}

func (a *Action[T]) Name() string { return a.name }

// Add registers fn at the given priority.
func (a *Action[T]) Add(fn func(T), priority int) {
	a.handlers.add(fn, priority)
}

// Do invokes every handler with arg.
func (a *Action[T]) Do(arg T) {
	a.fired.Add(1)
	for _, fn := range a.handlers.snapshot() {
		fn(arg)
	}
}

// Did reports whether Do has been called at least once.
func (a *Action[T]) Did() bool { return a.fired.Load() > 0 }

// Fired returns how many times Do has been called.
func (a *Action[T]) Fired() int64 { return a.fired.Load() }

// Len returns the number of registered handlers.
func (a *Action[T]) Len() int { return a.handlers.len() }

// Filter is a named value-transforming point.
type Filter[T any] struct {
	name     string
	handlers list[func(T) T]
}

func NewFilter[T any](name string) *Filter[T] {
	return &Filter[T]{name: name}
}

func (f *Filter[T]) Name() string { return f.name }

func (f *Filter[T]) Add(fn func(T) T, priority int) {
	f.handlers.add(fn, priority)
}

// Apply threads v through every handler and returns the result.
func (f *Filter[T]) Apply(v T) T {
	for _, fn := range f.handlers.snapshot() {
		v = fn(v)
	}
	return v
}

// Capture broadcasts a writer-based action into w.
func Capture(a *Action[io.Writer], w io.Writer) {
	a.Do(w)
}
