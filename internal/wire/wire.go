// Package wire contains the control messages exchanged between master
// and worker over the TCP transport, plus their gob framing. gob's
// Encoder/Decoder pair is self-framing over a persistent net.Conn, so no
// separate length prefix is required.
package wire

import (
	"encoding/gob"
	"fmt"
	"io"
)

// MessageKind tags the variant of a WorkerMessage.
type MessageKind int

const (
	// Connected acknowledges a worker's registration.
	Connected MessageKind = iota
	// ShutDown asks the worker to terminate gracefully.
	ShutDown
)

func (k MessageKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case ShutDown:
		return "ShutDown"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// WorkerMessage is the two-variant control message sent between master
// and worker.
type WorkerMessage struct {
	Kind MessageKind
}

// Registration is what a worker sends to the master's service endpoint
// on connecting: its own identity, the service id it believes it is
// serving, and the address the master should reply to.
type Registration struct {
	WorkerID  string
	Service   string
	ReplyAddr string
}

// Invoke asks a worker to execute a registered closure. RequestID
// correlates this one dispatch attempt across the master's and the
// worker's logs; it has no bearing on execution and is never
// interpreted by the worker beyond echoing it back into its own
// structured logging.
type Invoke struct {
	ClosureID string
	Arg       []byte
	RequestID string
}

// InvokeResult is the worker's reply to an Invoke. OK is false when the
// closure itself returned an error (as opposed to a transport failure,
// which never produces an InvokeResult at all).
type InvokeResult struct {
	OK      bool
	Payload []byte
	ErrMsg  string
}

// Envelope is what a caller sends to a worker's own listening address
// (as opposed to the master's registration endpoint): either a control
// message (ShutDown) or a closure invocation, sharing one accept loop
// so the worker doesn't need a second bound port. gob can't decode into
// an interface without a registered concrete type, so the two possible
// payloads are carried as a tagged pair of fields instead.
type Envelope struct {
	IsInvoke bool
	Control  WorkerMessage
	Invoke   Invoke
}

// Encoder writes framed wire values to w.
type Encoder struct{ enc *gob.Encoder }

// NewEncoder wraps w for writing wire values.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{enc: gob.NewEncoder(w)} }

// Encode writes v.
func (e *Encoder) Encode(v interface{}) error { return e.enc.Encode(v) }

// Decoder reads framed wire values from r.
type Decoder struct{ dec *gob.Decoder }

// NewDecoder wraps r for reading wire values.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{dec: gob.NewDecoder(r)} }

// Decode reads the next value into v.
func (d *Decoder) Decode(v interface{}) error { return d.dec.Decode(v) }
