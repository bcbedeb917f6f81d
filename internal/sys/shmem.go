package sys

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where glibc's shm_open places named POSIX shared memory objects.
const shmDir = "/dev/shm"

// NormalizeShmName canonicalizes a shared memory object name: a single leading
// slash, no interior slashes. Matches what shm_open(3) accepts.
func NormalizeShmName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return "/" + name
}

func shmPath(name string) string {
	return shmDir + name
}

// Shmem is a named POSIX shared memory object. The creator owns the name and
// unlinks it on Close; openers never unlink.
type Shmem struct {
	name  string
	fd    int
	size  int
	owned bool
}

// CreateShmem creates a new shared memory object with O_EXCL semantics and
// truncates it to size bytes.
func CreateShmem(name string, size int) (*Shmem, error) {
	if name == "" || size == 0 {
		return nil, unix.EINVAL
	}
	name = NormalizeShmName(name)

	fd, err := unix.Open(shmPath(name), unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o660)
	if err != nil {
		return nil, fmt.Errorf("shm_open %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.Unlink(shmPath(name))
		return nil, fmt.Errorf("ftruncate %q to %d: %w", name, size, err)
	}

	return &Shmem{name: name, fd: fd, size: size, owned: true}, nil
}

// OpenShmem opens an existing shared memory object and queries its length.
func OpenShmem(name string) (*Shmem, error) {
	if name == "" {
		return nil, unix.EINVAL
	}
	name = NormalizeShmName(name)

	fd, err := unix.Open(shmPath(name), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("shm_open %q: %w", name, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fstat %q: %w", name, err)
	}
	if st.Size <= 0 {
		unix.Close(fd)
		return nil, unix.EINVAL
	}

	return &Shmem{name: name, fd: fd, size: int(st.Size), owned: false}, nil
}

// Name returns the normalized object name (with leading slash).
func (s *Shmem) Name() string { return s.name }

// Fd returns the underlying file descriptor.
func (s *Shmem) Fd() int { return s.fd }

// Size returns the object length in bytes.
func (s *Shmem) Size() int { return s.size }

// IsOwner reports whether this handle created (and will unlink) the object.
func (s *Shmem) IsOwner() bool { return s.owned }

// Close releases the descriptor. The creator additionally unlinks the name so
// no further opens can succeed.
func (s *Shmem) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	if s.owned {
		if uerr := unix.Unlink(shmPath(s.name)); err == nil {
			err = uerr
		}
	}
	return err
}
