package shmem

import (
	"sync/atomic"
	"unsafe"

	"github.com/openeuler-mirror/xmig/internal/sys"
	"github.com/openeuler-mirror/xmig/transport"
)

// ChannelState is the lifecycle state stored in the control block. The
// transitions are monotonic: Uninited -> Ready -> Closed, never backwards.
type ChannelState uint8

const (
	StateUninited ChannelState = 0
	StateReady    ChannelState = 1
	StateClosed   ChannelState = 2
)

func (s ChannelState) String() string {
	switch s {
	case StateUninited:
		return "Uninited"
	case StateReady:
		return "Ready"
	case StateClosed:
		return "Closed"
	default:
		return "Invalid"
	}
}

// ctrlBlock is the fixed-layout control record at the head of each channel's
// shared memory. Every field sits on its own cache line; the layout is part
// of the wire contract between processes and must not change.
type ctrlBlock struct {
	head uint64 // read cursor, incremented by readers
	_    [56]byte
	tail uint64 // write cursor, incremented by writers
	_    [56]byte
	state uint32
	_     [60]byte
	bufLock uint32 // futex mutex word serializing buffer acquisition
	_       [60]byte
	readable uint32 // event counter readers wait on
	_        [60]byte
	writable uint32 // event counter writers wait on
	_        [60]byte
}

// Compile-time layout checks. The cursor fields are the platform word; this
// transport requires a 64-bit platform.
var (
	_ [384]byte = [unsafe.Sizeof(ctrlBlock{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(uintptr(0))]byte{}
)

func (cb *ctrlBlock) loadState() (ChannelState, error) {
	s := ChannelState(atomic.LoadUint32(&cb.state))
	if s > StateClosed {
		return s, &transport.Error{Code: transport.ErrCodeInvalidConnectionState}
	}
	return s, nil
}

func (cb *ctrlBlock) storeState(s ChannelState) {
	atomic.StoreUint32(&cb.state, uint32(s))
}

// waitReadable parks until the readable counter moves past lastValue.
func (cb *ctrlBlock) waitReadable(lastValue uint32) {
	sys.FutexWait(&cb.readable, lastValue)
}

// notifyReadable bumps the readable counter and wakes one reader.
func (cb *ctrlBlock) notifyReadable() {
	atomic.AddUint32(&cb.readable, 1)
	sys.FutexWake(&cb.readable, 1)
}

func (cb *ctrlBlock) notifyAllReadable() {
	atomic.AddUint32(&cb.readable, 1)
	sys.FutexWakeAll(&cb.readable)
}

// waitWritable parks until the writable counter moves past lastValue.
func (cb *ctrlBlock) waitWritable(lastValue uint32) {
	sys.FutexWait(&cb.writable, lastValue)
}

// notifyWritable bumps the writable counter and wakes one writer.
func (cb *ctrlBlock) notifyWritable() {
	atomic.AddUint32(&cb.writable, 1)
	sys.FutexWake(&cb.writable, 1)
}

func (cb *ctrlBlock) notifyAllWritable() {
	atomic.AddUint32(&cb.writable, 1)
	sys.FutexWakeAll(&cb.writable)
}
