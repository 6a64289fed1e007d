package closure

import "sync"

// LazyClosure is the SerializableClosureProcess: a deferred closure
// builder holding a producing action that constructs the Closure on
// first demand, plus the static codec for its eventual result. The
// producer is guaranteed to run at most once, even under concurrent
// demands, and every caller after the first observes the identical
// memoised Closure.
type LazyClosure[T any] struct {
	produce      func() (Closure, error)
	ResultCodec  Codec[T]

	once   sync.Once
	cached Closure
	err    error
}

// NewLazyClosure wraps produce and resultCodec into a LazyClosure.
func NewLazyClosure[T any](produce func() (Closure, error), resultCodec Codec[T]) *LazyClosure[T] {
	return &LazyClosure[T]{produce: produce, ResultCodec: resultCodec}
}

// Force runs the producing action at most once and returns the memoised
// Closure on every call, including concurrent ones racing the first
// call.
func (l *LazyClosure[T]) Force() (Closure, error) {
	l.once.Do(func() {
		l.cached, l.err = l.produce()
	})
	return l.cached, l.err
}
