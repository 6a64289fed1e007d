// Package closure implements the closure registry: the static table
// mapping identifiers persistent across the master and worker binaries
// to the underlying function and its codecs, plus the memoised deferred
// closure builder (SerializableClosureProcess) and the typed remote
// function wrapper (RemoteFunction).
package closure

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec is a SerializableDict: a statically-identified handle naming the
// encoder/decoder for values of type T. It is required to deserialise a
// remote result without ambient type information.
type Codec[T any] struct {
	Name   string
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSONCodec builds a Codec backed by encoding/json. Register and Define
// have no default codec; callers pass one explicitly, and the bundled
// workload passes this one for its argument and result.
func JSONCodec[T any](name string) Codec[T] {
	return Codec[T]{
		Name: name,
		Encode: func(v T) ([]byte, error) {
			return json.Marshal(v)
		},
		Decode: func(b []byte) (T, error) {
			var v T
			err := json.Unmarshal(b, &v)
			return v, err
		},
	}
}

// GobCodec builds a Codec backed by encoding/gob, matching the framing
// used on the wire between master and worker (internal/wire). Prefer
// this for large or non-JSON-friendly payloads.
func GobCodec[T any](name string) Codec[T] {
	return Codec[T]{
		Name: name,
		Encode: func(v T) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decode: func(b []byte) (T, error) {
			var v T
			err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v)
			return v, err
		},
	}
}
