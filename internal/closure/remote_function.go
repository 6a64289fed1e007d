package closure

import "context"

// RemoteFunction is a registered remote function: an identifier, the
// action A -> Process (Either String B), and the static codecs for A and
// B. The action is required to catch all exceptions locally, log them,
// and convert them to an error result -- Register's panic guard
// enforces this regardless of what the caller's fn does.
type RemoteFunction[A, B any] struct {
	ID          string
	ArgCodec    Codec[A]
	ResultCodec Codec[B]
}

// Define registers fn under id in r and returns a RemoteFunction handle
// the master side can use to build closures against it via Apply. Both
// the master and worker binaries must call Define with identical
// arguments at init() time so the closure identifier resolves to the
// same function on both ends.
func Define[A, B any](r *Registry, id string, fn func(context.Context, A) (B, error), argCodec Codec[A], resultCodec Codec[B]) *RemoteFunction[A, B] {
	Register(r, id, fn, argCodec, resultCodec)
	return &RemoteFunction[A, B]{ID: id, ArgCodec: argCodec, ResultCodec: resultCodec}
}

// Apply builds a Closure invoking rf with arg, suitable for wrapping in
// a LazyClosure.
func (rf *RemoteFunction[A, B]) Apply(arg A) (Closure, error) {
	return Build(rf.ID, arg, rf.ArgCodec)
}

// DecodeResult decodes a worker's InvokeResult payload into B using
// rf's result codec.
func (rf *RemoteFunction[A, B]) DecodeResult(payload []byte) (B, error) {
	return rf.ResultCodec.Decode(payload)
}
