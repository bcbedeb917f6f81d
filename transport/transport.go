// Package transport defines the buffer-oriented transport contract the peer
// layer runs on: blocking acquisition of contiguous read/write spans, with
// explicit submit/consume accounting and guard-style release.
package transport

// WriteBuffer is a writable span acquired from an endpoint's outbound
// channel. The caller fills Bytes(), records the produced amount with
// Submit, and then Release()s the buffer, which publishes the bytes and
// wakes the reader. Releasing without a Submit publishes nothing.
type WriteBuffer interface {
	// Bytes returns the writable span. Its full length is available for one
	// contiguous write.
	Bytes() []byte

	// Submit records that n bytes at the start of the span are ready to be
	// published. Fails if n exceeds the span length.
	Submit(n int) error

	// Release publishes any submitted bytes and releases the underlying
	// buffer lock. Release is idempotent; the span must not be touched
	// afterwards.
	Release()
}

// ReadBuffer is a readable span acquired from an endpoint's inbound channel.
// The caller inspects Bytes(), records the number of bytes it finished with
// via Consume, and Release()s the buffer, which frees the space and wakes
// the writer.
type ReadBuffer interface {
	// Bytes returns the readable span.
	Bytes() []byte

	// Consume records that n bytes at the start of the span have been
	// processed. Fails if n exceeds the span length.
	Consume(n int) error

	// Release frees any consumed bytes and releases the underlying buffer
	// lock. Release is idempotent; the span must not be touched afterwards.
	Release()
}

// Endpoint is a bidirectional communication handle pairing one outbound and
// one inbound byte channel.
type Endpoint interface {
	// ReadBuf blocks until inbound data is available and returns it as one
	// contiguous span.
	ReadBuf() (ReadBuffer, error)

	// WriteBuf blocks until outbound space is available and returns it as
	// one contiguous span.
	WriteBuf() (WriteBuffer, error)

	// Close tears the endpoint down. On the creating side this also marks
	// the channels closed and wakes all waiters.
	Close() error
}

// Transport produces endpoints for addresses. Create binds the creator side;
// Connect attaches to an address some creator has already bound.
type Transport interface {
	Create(addr string) (Endpoint, error)
	Connect(addr string) (Endpoint, error)
}
