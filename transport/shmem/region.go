// Package shmem implements the shared-memory transport: mirrored ring
// channels with a futex-synchronized control block, paired into
// bidirectional endpoints.
package shmem

import (
	"unsafe"

	"github.com/openeuler-mirror/xmig/internal/sys"
)

// Region couples a named shared memory object with its mirrored mapping.
// The object layout is [ reserved | data ], mapped as [ reserved | data |
// data mirror ] so ring spans never split at the wrap point.
type Region struct {
	shm     *sys.Shmem
	mapping *sys.MirroredMmap
}

// CreateRegion creates a region with at least dataLen bytes of ring space
// and reserve bytes of control prefix, both rounded up to the page size.
func CreateRegion(name string, dataLen, reserve int) (*Region, error) {
	dataLen = sys.PageAlign(dataLen)
	resvLen := sys.PageAlign(reserve)
	fileLen := dataLen + resvLen

	shm, err := sys.CreateShmem(name, fileLen)
	if err != nil {
		return nil, err
	}
	mapping, err := sys.MapMirrored(shm.Fd(), fileLen, resvLen)
	if err != nil {
		shm.Close()
		return nil, err
	}
	return &Region{shm: shm, mapping: mapping}, nil
}

// OpenRegion opens an existing region, taking the data length from the
// object's size.
func OpenRegion(name string, reserve int) (*Region, error) {
	resvLen := sys.PageAlign(reserve)

	shm, err := sys.OpenShmem(name)
	if err != nil {
		return nil, err
	}
	mapping, err := sys.MapMirrored(shm.Fd(), shm.Size(), resvLen)
	if err != nil {
		shm.Close()
		return nil, err
	}
	return &Region{shm: shm, mapping: mapping}, nil
}

// Name returns the shared memory object name.
func (r *Region) Name() string { return r.shm.Name() }

// IsOwner reports whether this region created the backing object.
func (r *Region) IsOwner() bool { return r.shm.IsOwner() }

// ReservedPtr returns the control prefix.
func (r *Region) ReservedPtr() unsafe.Pointer { return r.mapping.ReservedPtr() }

// DataPtr returns the ring data region; 2*DataLen() contiguous bytes.
func (r *Region) DataPtr() unsafe.Pointer { return r.mapping.DataPtr() }

// DataLen returns the ring data length.
func (r *Region) DataLen() int { return r.mapping.DataLen() }

// MirroredPtr returns the second view of the data region.
func (r *Region) MirroredPtr() unsafe.Pointer { return r.mapping.MirroredPtr() }

// Close unmaps the region and, for the creator, unlinks the backing object.
func (r *Region) Close() error {
	err := r.mapping.Close()
	if cerr := r.shm.Close(); err == nil {
		err = cerr
	}
	return err
}
