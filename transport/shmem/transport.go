package shmem

import (
	"time"

	"github.com/openeuler-mirror/xmig/transport"
)

// Channel name suffixes for the two directions of an endpoint pair.
const (
	c2sSuffix = "_c2s"
	s2cSuffix = "_s2c"
)

// Defaults for the transport configuration.
const (
	DefaultBufferSize     = 4096
	DefaultConnectTimeout = 100 * time.Millisecond
)

// Transport produces shared-memory endpoints. The zero value is not usable;
// construct with NewTransport.
type Transport struct {
	bufferSize  int
	connTimeout time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithBufferSize sets the per-channel ring size in bytes. The value is
// rounded up to the page size when the segment is created.
func WithBufferSize(size int) Option {
	return func(t *Transport) { t.bufferSize = size }
}

// WithConnectTimeout bounds how long Connect polls for the creator side.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(t *Transport) { t.connTimeout = timeout }
}

// NewTransport creates a Transport with the given options applied over the
// defaults.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		bufferSize:  DefaultBufferSize,
		connTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Endpoint pairs two ring channels into one bidirectional connection.
type Endpoint struct {
	path         string
	readChannel  *Channel
	writeChannel *Channel
}

var _ transport.Endpoint = (*Endpoint)(nil)

// Create builds the creator-side endpoint for addr: it creates both channel
// segments and maps creator receive to the _c2s direction.
func (t *Transport) Create(addr string) (transport.Endpoint, error) {
	readChannel, err := CreateChannel(addr+c2sSuffix, t.bufferSize)
	if err != nil {
		return nil, err
	}
	writeChannel, err := CreateChannel(addr+s2cSuffix, t.bufferSize)
	if err != nil {
		readChannel.Close()
		return nil, err
	}

	return &Endpoint{
		path:         "shmem://" + addr,
		readChannel:  readChannel,
		writeChannel: writeChannel,
	}, nil
}

// Connect attaches to an endpoint some creator has bound at addr, mapping
// connector transmit to the _c2s direction.
func (t *Transport) Connect(addr string) (transport.Endpoint, error) {
	readChannel, err := OpenChannel(addr+s2cSuffix, t.connTimeout)
	if err != nil {
		return nil, err
	}
	writeChannel, err := OpenChannel(addr+c2sSuffix, t.connTimeout)
	if err != nil {
		readChannel.Close()
		return nil, err
	}

	return &Endpoint{
		path:         "shmem://" + addr,
		readChannel:  readChannel,
		writeChannel: writeChannel,
	}, nil
}

// ReadBuf acquires the next readable span on the inbound channel.
func (e *Endpoint) ReadBuf() (transport.ReadBuffer, error) {
	return e.readChannel.ReadBuf()
}

// WriteBuf acquires the next writable span on the outbound channel.
func (e *Endpoint) WriteBuf() (transport.WriteBuffer, error) {
	return e.writeChannel.WriteBuf()
}

// Path returns the endpoint's display address (shmem://<addr>).
func (e *Endpoint) Path() string { return e.path }

// Close tears down both channels. On the creating side this closes the
// channels for both peers and unlinks the segments.
func (e *Endpoint) Close() error {
	err := e.readChannel.Close()
	if werr := e.writeChannel.Close(); err == nil {
		err = werr
	}
	return err
}
