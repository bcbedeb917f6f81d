package shmem

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"

	"github.com/openeuler-mirror/xmig/internal/logging"
	"github.com/openeuler-mirror/xmig/internal/sys"
	"github.com/openeuler-mirror/xmig/transport"
)

// openRetryDelay is the polling cadence while waiting for the creator side.
const openRetryDelay = 10 * time.Millisecond

// Channel is a single direction of communication over a shared memory
// segment: a byte ring whose cursors, state, and wakeup words live in the
// control block at the head of the segment.
//
// Multiple producers and consumers are tolerated (the buffer lock serializes
// acquisition), but the wire protocol pairs one of each per channel.
type Channel struct {
	region  *Region
	ctrl    *ctrlBlock
	dataPtr unsafe.Pointer
	lock    *sys.FutexMutex
}

// CreateChannel creates the shared memory segment for a channel, initializes
// its control block, and marks it Ready.
func CreateChannel(name string, bufferSize int) (*Channel, error) {
	region, err := CreateRegion(name, bufferSize, int(unsafe.Sizeof(ctrlBlock{})))
	if err != nil {
		return nil, &transport.Error{Code: transport.ErrCodeCreateFailed, Name: name, Inner: err}
	}

	ch := &Channel{
		region:  region,
		ctrl:    (*ctrlBlock)(region.ReservedPtr()),
		dataPtr: region.DataPtr(),
	}
	ch.lock = sys.NewFutexMutex(&ch.ctrl.bufLock)

	// Freshly created segments are zero-filled, which is exactly the
	// Uninited control block; only the state flip needs publishing.
	ch.ctrl.storeState(StateReady)
	logging.Debugf("[shmem] %q: ready (capacity %d)", ch.Name(), ch.Capacity())
	return ch, nil
}

// OpenChannel attaches to a channel some creator has set up, polling for the
// segment to exist and its state to become Ready, bounded by timeout.
func OpenChannel(name string, timeout time.Duration) (*Channel, error) {
	region, err := backoff.Retry(context.Background(), func() (*Region, error) {
		region, err := OpenRegion(name, int(unsafe.Sizeof(ctrlBlock{})))
		if err != nil {
			if errors.Is(err, unix.ENOENT) {
				return nil, err // creator not there yet, keep polling
			}
			return nil, backoff.Permanent(&transport.Error{Code: transport.ErrCodeOpenFailed, Name: name, Inner: err})
		}
		return region, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(openRetryDelay)),
		backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, &transport.Error{Code: transport.ErrCodeConnectionTimeout, Name: name}
	}

	ch := &Channel{
		region:  region,
		ctrl:    (*ctrlBlock)(region.ReservedPtr()),
		dataPtr: region.DataPtr(),
	}
	ch.lock = sys.NewFutexMutex(&ch.ctrl.bufLock)

	_, err = backoff.Retry(context.Background(), func() (struct{}, error) {
		state, serr := ch.ctrl.loadState()
		if serr != nil {
			return struct{}{}, backoff.Permanent(serr)
		}
		switch state {
		case StateReady:
			return struct{}{}, nil
		case StateClosed:
			return struct{}{}, backoff.Permanent(&transport.Error{Code: transport.ErrCodeConnectionClosed, Name: name})
		default:
			return struct{}{}, &transport.Error{Code: transport.ErrCodeConnectionNotReady, Name: name}
		}
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(openRetryDelay)),
		backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		ch.region.Close()
		var terr *transport.Error
		if errors.As(err, &terr) && terr.Code != transport.ErrCodeConnectionNotReady {
			return nil, terr
		}
		return nil, &transport.Error{Code: transport.ErrCodeConnectionTimeout, Name: name}
	}

	logging.Debugf("[shmem] %q: ready (capacity %d)", ch.Name(), ch.Capacity())
	return ch, nil
}

// Name returns the shared memory object name.
func (ch *Channel) Name() string { return ch.region.Name() }

// IsOwner reports whether this side created the segment.
func (ch *Channel) IsOwner() bool { return ch.region.IsOwner() }

// Capacity returns the ring size in bytes. At most Capacity()-1 bytes can be
// in flight; one slot stays free to tell empty from full.
func (ch *Channel) Capacity() int { return ch.region.DataLen() }

// ReadBuf blocks until the ring holds data, then returns all readable bytes
// as one contiguous span. The returned buffer holds the channel's buffer
// lock until released.
func (ch *Channel) ReadBuf() (transport.ReadBuffer, error) {
	for {
		state, err := ch.ctrl.loadState()
		if err != nil {
			return nil, err
		}
		if state == StateClosed {
			return nil, &transport.Error{Code: transport.ErrCodeConnectionClosed, Name: ch.Name()}
		}

		ch.lock.Lock()

		head := atomic.LoadUint64(&ch.ctrl.head)
		tail := loadAcquireUint64(&ch.ctrl.tail)
		readable := tail - head

		if readable > 0 {
			offset := head % uint64(ch.Capacity())
			ptr := unsafe.Pointer(uintptr(ch.dataPtr) + uintptr(offset))
			// The mirror mapping makes the whole span contiguous even when
			// it crosses the end of the data region.
			return &readBuffer{channel: ch, ptr: ptr, len: int(readable)}, nil
		}

		// Snapshot the event counter before dropping the lock so a wakeup
		// that lands in between is not lost: the wait below returns
		// immediately if the counter already moved.
		lastValue := atomic.LoadUint32(&ch.ctrl.readable)
		ch.lock.Unlock()

		logging.Debugf("[shmem] %q: waiting readable...", ch.Name())
		ch.ctrl.waitReadable(lastValue)
	}
}

// WriteBuf blocks until the ring has free space, then returns all writable
// bytes as one contiguous span. The returned buffer holds the channel's
// buffer lock until released.
func (ch *Channel) WriteBuf() (transport.WriteBuffer, error) {
	for {
		state, err := ch.ctrl.loadState()
		if err != nil {
			return nil, err
		}
		if state == StateClosed {
			return nil, &transport.Error{Code: transport.ErrCodeConnectionClosed, Name: ch.Name()}
		}

		ch.lock.Lock()

		head := loadAcquireUint64(&ch.ctrl.head)
		tail := atomic.LoadUint64(&ch.ctrl.tail)
		used := tail - head

		writable := uint64(ch.Capacity()) - used - 1
		if writable > 0 {
			offset := tail % uint64(ch.Capacity())
			ptr := unsafe.Pointer(uintptr(ch.dataPtr) + uintptr(offset))
			return &writeBuffer{channel: ch, ptr: ptr, len: int(writable)}, nil
		}

		lastValue := atomic.LoadUint32(&ch.ctrl.writable)
		ch.lock.Unlock()

		logging.Debugf("[shmem] %q: waiting writable...", ch.Name())
		ch.ctrl.waitWritable(lastValue)
	}
}

// CloseChannel marks the channel Closed and wakes every waiter on both
// futexes, failing their pending operations. Idempotent.
func (ch *Channel) CloseChannel() {
	ch.ctrl.storeState(StateClosed)
	ch.ctrl.notifyAllReadable()
	ch.ctrl.notifyAllWritable()
	logging.Debugf("[shmem] %q: closed", ch.Name())
}

// Close tears the channel down. The creator closes the channel for both
// sides and unlinks the segment; openers only unmap.
func (ch *Channel) Close() error {
	if ch.IsOwner() {
		ch.CloseChannel()
	}
	return ch.region.Close()
}

// loadAcquireUint64 pairs with the releasing cursor updates in the buffer
// release paths. Go's sync/atomic loads are sequentially consistent, which
// subsumes the acquire ordering required here.
func loadAcquireUint64(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}
