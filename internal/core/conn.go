package core

// Frame is one encoded message on the wire.
type Frame []byte

// Conn is a transport endpoint as the relay core sees it. The adapter owns
// the underlying socket; the core only ever hands it frames. TrySend must
// never block: a full outbound buffer is reported as an error and the frame
// is dropped for that recipient.
type Conn interface {
	TrySend(f Frame) error
	Close()
}
