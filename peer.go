// Package xmig implements a single-host, bidirectional request/response IPC
// fabric over mirrored shared-memory ring buffers. Two peers exchange typed
// RPC messages with zero-copy framing and end-to-end integrity checking.
package xmig

import (
	"github.com/openeuler-mirror/xmig/bytewise"
	"github.com/openeuler-mirror/xmig/framer"
	"github.com/openeuler-mirror/xmig/internal/logging"
	"github.com/openeuler-mirror/xmig/message"
	"github.com/openeuler-mirror/xmig/transport"
)

// Message is anything the peer layer can put on the wire.
type Message interface {
	WriteTo(*bytewise.Writer) error
}

// decodable constrains the receive path to pointer types that can rebuild
// themselves from a frame payload.
type decodable[M any] interface {
	*M
	ReadFrom(*bytewise.Reader) error
}

// Peer sends and receives messages over a bidirectional endpoint. A Peer is
// not safe for concurrent use; the intended wiring is one goroutine per
// side of a connection.
type Peer struct {
	framer   *framer.Framer
	endpoint transport.Endpoint
	metrics  Metrics
}

// NewPeer wraps an endpoint with a frame codec.
func NewPeer(f *framer.Framer, endpoint transport.Endpoint) *Peer {
	return &Peer{framer: f, endpoint: endpoint}
}

// Metrics returns a snapshot of the peer's counters.
func (p *Peer) Metrics() MetricsSnapshot {
	return p.metrics.Snapshot()
}

// SendMessage frames and publishes one message: acquire the outbound span,
// serialize into the payload region behind the header prefix, finalize the
// header in place, submit the full frame.
func (p *Peer) SendMessage(msg Message) error {
	buf, err := p.endpoint.WriteBuf()
	if err != nil {
		return err
	}
	defer buf.Release()

	frameBuf, err := p.framer.EncodeFrame(buf.Bytes())
	if err != nil {
		return err
	}

	writer := bytewise.NewWriter(frameBuf.Payload())
	if err := msg.WriteTo(writer); err != nil {
		return err
	}

	frameLen, err := frameBuf.Finalize(writer.Written())
	if err != nil {
		return err
	}
	if err := buf.Submit(frameLen); err != nil {
		return err
	}

	p.metrics.recordSend(frameLen)
	logging.Debugf("[peer] sent frame (%d bytes)", frameLen)
	return nil
}

// receiveMessage acquires the inbound span and decodes one message from it.
// ok is false when the span does not yet hold a complete frame; callers
// loop. The decoded message's arguments borrow the channel's read buffer;
// they must not be used after the next receive on this peer.
func receiveMessage[M any, PM decodable[M]](p *Peer) (msg *M, ok bool, err error) {
	buf, err := p.endpoint.ReadBuf()
	if err != nil {
		return nil, false, err
	}
	defer buf.Release()

	frame, err := p.framer.DecodeFrame(buf.Bytes())
	if err != nil {
		return nil, false, err
	}
	if frame == nil {
		p.metrics.recordRetry()
		return nil, false, nil
	}

	msg = new(M)
	reader := bytewise.NewReader(frame.Payload())
	if err := PM(msg).ReadFrom(reader); err != nil {
		return nil, false, err
	}

	// Consume only after decoding: the frame length is derived first so the
	// read cursor advance cannot race the borrowed payload views.
	frameLen := frame.FrameLen()
	if err := buf.Consume(frameLen); err != nil {
		return nil, false, err
	}

	p.metrics.recordReceive(frameLen)
	logging.Debugf("[peer] received frame (%d bytes)", frameLen)
	return msg, true, nil
}

// ReceiveRequest blocks for the next inbound request. ok is false when no
// complete frame was available yet.
func (p *Peer) ReceiveRequest() (req *message.Request, ok bool, err error) {
	return receiveMessage[message.Request](p)
}

// ReceiveResponse blocks for the next inbound response. ok is false when no
// complete frame was available yet.
func (p *Peer) ReceiveResponse() (resp *message.Response, ok bool, err error) {
	return receiveMessage[message.Response](p)
}

// Invoke sends a request and blocks until its response arrives. Responses
// pair positionally: with one in-flight call per connection the next
// response always answers this request.
func (p *Peer) Invoke(req *message.Request) (*message.Response, error) {
	if err := p.SendMessage(req); err != nil {
		return nil, err
	}

	for {
		resp, ok, err := p.ReceiveResponse()
		if err != nil {
			return nil, err
		}
		if ok {
			p.metrics.recordInvoke()
			return resp, nil
		}
	}
}

// Close tears down the peer's endpoint.
func (p *Peer) Close() error {
	return p.endpoint.Close()
}
