package xmig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// addrSeq disambiguates addresses generated within the same nanosecond.
var addrSeq uint64

// TestAddress returns a shared-memory address unique to this process and
// call. Tests use it so concurrently running suites never collide in the
// shm namespace.
func TestAddress() string {
	exe := "unknown"
	if path, err := os.Executable(); err == nil {
		exe = filepath.Base(path)
		if ext := filepath.Ext(exe); ext != "" {
			exe = exe[:len(exe)-len(ext)]
		}
	}
	return fmt.Sprintf("%s_%d_%d_%d",
		exe, os.Getpid(), time.Now().UnixNano(), atomic.AddUint64(&addrSeq, 1))
}
