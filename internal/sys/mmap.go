package sys

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapRaw issues the mmap syscall directly. The x/sys wrapper tracks mappings
// by slice identity, which does not compose with MAP_FIXED views inside a
// larger reservation, so fixed mappings go through the raw syscall.
func mmapRaw(addr uintptr, length int, prot, flags, fd int, offset int64) (uintptr, error) {
	r0, _, errno := unix.Syscall6(unix.SYS_MMAP,
		addr, uintptr(length), uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return 0, errno
	}
	return r0, nil
}

func munmapRaw(addr uintptr, length int) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(length), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// MirroredMmap is a virtually contiguous view of a shared memory object laid
// out as [ reserved | data | data mirror ]. The mirror maps the same physical
// pages as the data region, so a span that would wrap at the end of data is
// still one contiguous slice of virtual memory.
type MirroredMmap struct {
	base     uintptr
	totalLen int
	resvLen  int
	dataLen  int
}

// MapMirrored maps fileLen bytes of the object (reserved prefix plus data)
// and installs a second view of the data pages directly after the first.
// Both fileLen and resvLen must be page-aligned, and 0 < resvLen < fileLen.
func MapMirrored(fd int, fileLen, resvLen int) (*MirroredMmap, error) {
	page := PageSize()
	if fileLen%page != 0 || resvLen%page != 0 {
		return nil, unix.EINVAL
	}
	if resvLen == 0 || resvLen >= fileLen {
		return nil, unix.EINVAL
	}

	dataLen := fileLen - resvLen
	totalLen := resvLen + dataLen*2

	// Reserve the whole window first so the two fixed mappings cannot land on
	// top of an unrelated mapping.
	base, err := mmapRaw(0, totalLen, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS, -1, 0)
	if err != nil {
		return nil, fmt.Errorf("reserve %d bytes: %w", totalLen, err)
	}

	m := &MirroredMmap{base: base, totalLen: totalLen, resvLen: resvLen, dataLen: dataLen}

	ptr, err := mmapRaw(base, fileLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, fd, 0)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("map object: %w", err)
	}
	if ptr != base {
		m.Close()
		return nil, unix.EADDRNOTAVAIL
	}

	mirrorStart := base + uintptr(fileLen)
	ptr, err = mmapRaw(mirrorStart, dataLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, fd, int64(resvLen))
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("map mirror: %w", err)
	}
	if ptr != mirrorStart {
		m.Close()
		return nil, unix.EADDRNOTAVAIL
	}

	return m, nil
}

// ReservedPtr returns the start of the reserved region.
func (m *MirroredMmap) ReservedPtr() unsafe.Pointer {
	return unsafe.Pointer(m.base)
}

// ReservedLen returns the reserved region length.
func (m *MirroredMmap) ReservedLen() int { return m.resvLen }

// DataPtr returns the start of the data region. The 2*DataLen bytes starting
// here are contiguous in virtual memory.
func (m *MirroredMmap) DataPtr() unsafe.Pointer {
	return unsafe.Pointer(m.base + uintptr(m.resvLen))
}

// DataLen returns the data region length.
func (m *MirroredMmap) DataLen() int { return m.dataLen }

// MirroredPtr returns the start of the second data view.
func (m *MirroredMmap) MirroredPtr() unsafe.Pointer {
	return unsafe.Pointer(m.base + uintptr(m.resvLen+m.dataLen))
}

// TotalLen returns the full reservation length (reserved + 2*data).
func (m *MirroredMmap) TotalLen() int { return m.totalLen }

// Close unmaps the whole reservation, including both data views.
func (m *MirroredMmap) Close() error {
	if m.base == 0 {
		return nil
	}
	err := munmapRaw(m.base, m.totalLen)
	m.base = 0
	return err
}
