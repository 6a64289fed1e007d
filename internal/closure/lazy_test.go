package closure

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLazyClosureMemoizesUnderConcurrency(t *testing.T) {
	var calls int32
	codec := JSONCodec[int]("int")

	lc := NewLazyClosure(func() (Closure, error) {
		atomic.AddInt32(&calls, 1)
		return Build("add-one", 41, JSONCodec[int]("int"))
	}, codec)

	const n = 50
	var wg sync.WaitGroup
	results := make([]Closure, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = lc.Force()
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("producer ran %d times, want exactly 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Force() error at %d: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID || !bytes.Equal(results[i].Arg, results[0].Arg) {
			t.Fatalf("Force() result at %d = %+v, want %+v (byte-for-byte identical)", i, results[i], results[0])
		}
	}
}

func TestLazyClosurePropagatesProducerError(t *testing.T) {
	wantErr := &ErrUnknownClosure{ID: "boom"}
	lc := NewLazyClosure(func() (Closure, error) {
		return Closure{}, wantErr
	}, JSONCodec[int]("int"))

	if _, err := lc.Force(); err != wantErr {
		t.Fatalf("Force() error = %v, want %v", err, wantErr)
	}
	// Second call still returns the memoised error, not a fresh one.
	if _, err := lc.Force(); err != wantErr {
		t.Fatalf("second Force() error = %v, want memoised %v", err, wantErr)
	}
}
