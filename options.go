package xmig

import (
	"time"

	"github.com/openeuler-mirror/xmig/framer"
	"github.com/openeuler-mirror/xmig/transport"
	"github.com/openeuler-mirror/xmig/transport/shmem"
)

// Options configures a Server or Client.
type Options struct {
	// BufferSize is the per-channel ring size in bytes, rounded up to the
	// page size.
	BufferSize int

	// ConnectTimeout bounds how long Connect polls for the creator side.
	ConnectTimeout time.Duration

	// FrameLimit is the maximum total frame length the peer will encode or
	// accept.
	FrameLimit int
}

// Option mutates Options.
type Option func(*Options)

// WithBufferSize sets the per-channel ring size.
func WithBufferSize(size int) Option {
	return func(o *Options) { o.BufferSize = size }
}

// WithConnectTimeout sets the connection polling deadline.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = timeout }
}

// WithFrameLimit sets the maximum frame length.
func WithFrameLimit(limit int) Option {
	return func(o *Options) { o.FrameLimit = limit }
}

func buildOptions(opts []Option) *Options {
	o := &Options{
		BufferSize:     DefaultBufferSize,
		ConnectTimeout: DefaultConnectTimeout,
		FrameLimit:     DefaultFrameLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Options) newTransport() transport.Transport {
	return shmem.NewTransport(
		shmem.WithBufferSize(o.BufferSize),
		shmem.WithConnectTimeout(o.ConnectTimeout),
	)
}

// Server is the creator-side peer: it owns the shared memory segments at its
// address and unlinks them on Close.
type Server struct {
	*Peer
}

// NewServer binds the creator side of addr and returns its peer.
func NewServer(addr string, opts ...Option) (*Server, error) {
	o := buildOptions(opts)
	endpoint, err := o.newTransport().Create(addr)
	if err != nil {
		return nil, err
	}
	return &Server{Peer: NewPeer(framer.New(o.FrameLimit), endpoint)}, nil
}

// Client is the connector-side peer.
type Client struct {
	*Peer
}

// Connect attaches to a server already bound at addr.
func Connect(addr string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	endpoint, err := o.newTransport().Connect(addr)
	if err != nil {
		return nil, err
	}
	return &Client{Peer: NewPeer(framer.New(o.FrameLimit), endpoint)}, nil
}
