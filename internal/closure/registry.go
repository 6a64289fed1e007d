package closure

import (
	"context"
	"fmt"
	"log/slog"
)

// Closure is a self-describing unit of remote work: an identifier
// selecting a pre-registered function plus a serialised argument
// payload. Closures are value types.
type Closure struct {
	ID  string
	Arg []byte
}

// ErrUnknownClosure is returned by Registry.Invoke when a worker
// receives a closure identifier it has no registration for. Both
// binaries register the same table at startup (see Register), so this
// indicates a version skew between master and worker.
type ErrUnknownClosure struct {
	ID string
}

func (e *ErrUnknownClosure) Error() string {
	return fmt.Sprintf("closure: unknown closure id %q", e.ID)
}

// invoker is the type-erased shape stored in the registry: it decodes
// the argument, runs the function under a panic guard, and returns the
// encoded result or a human-readable error string, exactly mirroring
// RemoteFunction's Either String B contract.
type invoker func(ctx context.Context, arg []byte) (payload []byte, errMsg string)

// Registry is a process-wide, immutable-after-init table mapping stable
// identifiers to executable functions. Both the master and worker
// binaries link the same registrations at startup so that a Closure can
// be shipped as an identifier plus encoded argument, without shipping
// code.
type Registry struct {
	entries map[string]invoker
}

// NewRegistry creates an empty registry. Programs typically keep one
// package-level *Registry populated by init() functions via Register.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]invoker)}
}

// Register adds fn, keyed by id, to r. Registering the same id twice is
// a programmer error and panics immediately at startup, matching the
// teacher's "fail fast on misconfiguration" style (cf. config.Load's
// hard error on a missing DATABASE_URL).
func Register[A, B any](r *Registry, id string, fn func(context.Context, A) (B, error), argCodec Codec[A], resultCodec Codec[B]) {
	if _, exists := r.entries[id]; exists {
		panic(fmt.Sprintf("closure: duplicate registration for id %q", id))
	}
	r.entries[id] = func(ctx context.Context, rawArg []byte) (payload []byte, errMsg string) {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("closure panicked", "id", id, "panic", p)
				errMsg = fmt.Sprintf("panic: %v", p)
			}
		}()

		arg, err := argCodec.Decode(rawArg)
		if err != nil {
			return nil, fmt.Sprintf("invalid argument for %q: %v", id, err)
		}

		result, err := fn(ctx, arg)
		if err != nil {
			slog.Error("closure returned error", "id", id, "error", err)
			return nil, err.Error()
		}

		out, err := resultCodec.Encode(result)
		if err != nil {
			return nil, fmt.Sprintf("failed to encode result for %q: %v", id, err)
		}
		return out, ""
	}
}

// Invoke looks up id and runs it against the encoded argument. It never
// panics: closure panics are caught and converted into an error message
// so a misbehaving remote function can't take down the worker process
// that's running it.
func (r *Registry) Invoke(ctx context.Context, id string, arg []byte) ([]byte, string, error) {
	fn, ok := r.entries[id]
	if !ok {
		return nil, "", &ErrUnknownClosure{ID: id}
	}
	payload, errMsg := fn(ctx, arg)
	return payload, errMsg, nil
}

// Build encodes a value into a Closure for the identifier id, using
// argCodec to serialise arg. This is the counterpart of Register on the
// calling (master) side.
func Build[A any](id string, arg A, argCodec Codec[A]) (Closure, error) {
	raw, err := argCodec.Encode(arg)
	if err != nil {
		return Closure{}, fmt.Errorf("closure: failed to encode argument for %q: %w", id, err)
	}
	return Closure{ID: id, Arg: raw}, nil
}
