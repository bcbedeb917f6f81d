package xmig

import (
	"github.com/openeuler-mirror/xmig/framer"
	"github.com/openeuler-mirror/xmig/transport/shmem"
)

// Re-export defaults for the public API
const (
	DefaultBufferSize     = shmem.DefaultBufferSize
	DefaultConnectTimeout = shmem.DefaultConnectTimeout
	DefaultFrameLimit     = framer.DefaultMaxFrameLen
)
