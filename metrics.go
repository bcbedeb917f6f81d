package xmig

import "sync/atomic"

// Metrics tracks peer activity with atomic counters. All methods are safe
// for concurrent use.
type Metrics struct {
	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64
	invokes          int64
	receiveRetries   int64
}

func (m *Metrics) recordSend(frameLen int) {
	atomic.AddInt64(&m.messagesSent, 1)
	atomic.AddInt64(&m.bytesSent, int64(frameLen))
}

func (m *Metrics) recordReceive(frameLen int) {
	atomic.AddInt64(&m.messagesReceived, 1)
	atomic.AddInt64(&m.bytesReceived, int64(frameLen))
}

func (m *Metrics) recordInvoke() {
	atomic.AddInt64(&m.invokes, 1)
}

func (m *Metrics) recordRetry() {
	atomic.AddInt64(&m.receiveRetries, 1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	Invokes          int64
	ReceiveRetries   int64
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		MessagesSent:     atomic.LoadInt64(&m.messagesSent),
		MessagesReceived: atomic.LoadInt64(&m.messagesReceived),
		BytesSent:        atomic.LoadInt64(&m.bytesSent),
		BytesReceived:    atomic.LoadInt64(&m.bytesReceived),
		Invokes:          atomic.LoadInt64(&m.invokes),
		ReceiveRetries:   atomic.LoadInt64(&m.receiveRetries),
	}
}
