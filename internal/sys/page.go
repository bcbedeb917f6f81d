// Package sys wraps the Linux primitives the shared-memory transport is built
// on: page arithmetic, named shm object lifecycle, mirrored fixed mappings,
// and futex wait/wake plus a cross-process futex mutex.
package sys

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	pageSizeOnce sync.Once
	pageSize     int
)

// PageSize returns the system page size. The value is queried once and cached.
func PageSize() int {
	pageSizeOnce.Do(func() {
		pageSize = unix.Getpagesize()
	})
	return pageSize
}

// PageAlign rounds value up to the next multiple of the page size.
// Values that would overflow saturate at the largest page multiple.
func PageAlign(value int) int {
	size := PageSize()
	pages := value / size
	if value%size != 0 {
		pages++
	}
	aligned := pages * size
	if aligned < value {
		// Overflowed; clamp to the largest representable page multiple.
		return (int(^uint(0)>>1) / size) * size
	}
	return aligned
}
