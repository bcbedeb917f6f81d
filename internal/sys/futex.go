package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex syscall helpers over a uint32 in (shared) memory. The non-PRIVATE
// futex ops are used throughout because the words live in memory mapped by
// multiple processes.

// FutexWait blocks until the word at addr no longer holds expected, or a wake
// arrives, or the wait is interrupted. Spurious returns are fine; callers
// always re-check state in a loop.
func FutexWait(addr *uint32, expected uint32) {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), unix.FUTEX_WAIT, uintptr(expected), 0, 0, 0)
	_ = errno // EAGAIN (value changed) and EINTR are both expected here
}

// FutexWake wakes up to count waiters blocked on addr and returns how many
// were woken.
func FutexWake(addr *uint32, count int) int {
	woken, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), unix.FUTEX_WAKE, uintptr(count), 0, 0, 0)
	if errno != 0 {
		return 0
	}
	return int(woken)
}

// FutexWakeAll wakes every waiter blocked on addr.
func FutexWakeAll(addr *uint32) int {
	const maxWaiters = int(^uint32(0) >> 1)
	return FutexWake(addr, maxWaiters)
}
