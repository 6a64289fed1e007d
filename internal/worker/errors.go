package worker

// ErrUnexpectedConnected is returned by Serve when the worker receives
// a second Connected message on its control mailbox -- a protocol
// violation, since the master only ever sends one Connected (during
// the handshake reply) followed eventually by exactly one ShutDown.
type ErrUnexpectedConnected struct{}

func (*ErrUnexpectedConnected) Error() string {
	return "worker: received unexpected second Connected message"
}
