package shmem

import (
	"sync/atomic"
	"unsafe"

	"github.com/openeuler-mirror/xmig/transport"
)

// readBuffer is a readable span of the ring. It holds the channel's buffer
// lock from acquisition until Release.
type readBuffer struct {
	channel  *Channel
	ptr      unsafe.Pointer
	len      int
	consumed int
	released bool
}

func (b *readBuffer) Bytes() []byte {
	return unsafe.Slice((*byte)(b.ptr), b.len)
}

// Consume records that the first n bytes of the span were processed. The
// head cursor advances when the buffer is released.
func (b *readBuffer) Consume(n int) error {
	if n > b.len {
		return &transport.Error{Code: transport.ErrCodeReadBufferOverflow, Count: n, Cap: b.len}
	}
	b.consumed = n
	return nil
}

// Release advances the head cursor by the consumed amount, drops the buffer
// lock, and wakes one writer if space was freed.
func (b *readBuffer) Release() {
	if b.released {
		return
	}
	b.released = true

	if b.consumed > 0 {
		atomic.AddUint64(&b.channel.ctrl.head, uint64(b.consumed))
	}
	b.channel.lock.Unlock()
	if b.consumed > 0 {
		b.channel.ctrl.notifyWritable()
	}
}

// writeBuffer is a writable span of the ring. It holds the channel's buffer
// lock from acquisition until Release.
type writeBuffer struct {
	channel   *Channel
	ptr       unsafe.Pointer
	len       int
	submitted int
	released  bool
}

func (b *writeBuffer) Bytes() []byte {
	return unsafe.Slice((*byte)(b.ptr), b.len)
}

// Submit records that the first n bytes of the span are ready to publish.
// The tail cursor advances when the buffer is released.
func (b *writeBuffer) Submit(n int) error {
	if n > b.len {
		return &transport.Error{Code: transport.ErrCodeWriteBufferOverflow, Count: n, Cap: b.len}
	}
	b.submitted = n
	return nil
}

// Release advances the tail cursor by the submitted amount, drops the buffer
// lock, and wakes one reader if data was published. The cursor update
// happens before the lock drop so readers always observe a consistent pair.
func (b *writeBuffer) Release() {
	if b.released {
		return
	}
	b.released = true

	if b.submitted > 0 {
		atomic.AddUint64(&b.channel.ctrl.tail, uint64(b.submitted))
	}
	b.channel.lock.Unlock()
	if b.submitted > 0 {
		b.channel.ctrl.notifyReadable()
	}
}
