package semaphores

// Codec converts protocol messages to and from bytes. MsgpackCodec is the
// only implementation; managed callers use their msgpack library of choice.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Transport moves whole messages between the harness and a managed caller.
type Transport interface {
	// Send writes one message and flushes it.
	Send(data []byte) error

	// Receive blocks for the next message. It returns io.EOF once the peer
	// has closed its end between messages.
	Receive() ([]byte, error)

	Close() error
}
