// Package framer implements a length-prefixed binary frame codec with magic
// number identification and CRC32 checksum verification. Frames are encoded
// and decoded in place on channel buffers; no payload bytes are copied.
//
// Frame layout:
//
//	offset  size  field
//	0       4     magic     = 0x78464D45, native-endian
//	4       4     length    = payload length in bytes
//	8       4     checksum  = CRC32 over (length_le || payload)
//	12      L     payload
package framer

import (
	"encoding/binary"
	"hash/crc32"
	"unsafe"
)

// MagicNumber identifies the start of a frame ('xFME' in ASCII).
const MagicNumber uint32 = 0x78464D45

// DefaultMaxFrameLen is the default limit on total frame length.
const DefaultMaxFrameLen = 16 * 1024 * 1024

// frameHeader must stay exactly 12 tightly packed bytes; it is overlaid
// directly on channel memory.
type frameHeader struct {
	Magic    uint32
	Length   uint32
	Checksum uint32
}

// HeaderLen is the encoded size of the frame header.
const HeaderLen = 12

// Compile-time layout check.
var _ [HeaderLen]byte = [unsafe.Sizeof(frameHeader{})]byte{}

// checksum computes the frame CRC: the little-endian length bytes followed by
// the payload.
func checksum(length uint32, payload []byte) uint32 {
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], length)
	sum := crc32.ChecksumIEEE(lenBytes[:])
	return crc32.Update(sum, crc32.IEEETable, payload)
}

// Framer encodes and decodes frames within caller-provided buffers.
type Framer struct {
	limit int
}

// New creates a Framer with the given maximum total frame length.
// Panics if limit cannot hold a header or exceeds the u32 length field.
func New(limit int) *Framer {
	if limit < HeaderLen {
		panic("framer: limit smaller than the frame header")
	}
	if uint64(limit) > uint64(^uint32(0)) {
		panic("framer: limit exceeds the maximum encodable u32 length")
	}
	return &Framer{limit: limit}
}

// Default returns a Framer with DefaultMaxFrameLen.
func Default() *Framer {
	return New(DefaultMaxFrameLen)
}

// Limit returns the configured maximum frame length.
func (f *Framer) Limit() int { return f.limit }

// FrameBuffer is an in-progress frame being written into a channel buffer.
// The caller serializes the payload into Payload(), then calls Finalize with
// the number of payload bytes produced.
type FrameBuffer struct {
	buf   []byte
	limit int
}

// EncodeFrame prepares a frame within buf. The buffer must be at least
// HeaderLen bytes; the payload region is everything after the header prefix.
func (f *Framer) EncodeFrame(buf []byte) (*FrameBuffer, error) {
	if len(buf) < HeaderLen {
		return nil, &Error{Code: ErrCodeInsufficientBuffer, Required: HeaderLen, Capacity: len(buf)}
	}
	return &FrameBuffer{buf: buf, limit: f.limit}, nil
}

// Payload returns the writable payload region following the header prefix.
func (b *FrameBuffer) Payload() []byte {
	return b.buf[HeaderLen:]
}

// Finalize fills in the header for a payload of payloadLen bytes and returns
// the total frame length, which is the amount to submit to the channel.
func (b *FrameBuffer) Finalize(payloadLen int) (int, error) {
	frameLen := HeaderLen + payloadLen
	if frameLen > b.limit {
		return 0, &Error{Code: ErrCodeFrameTooLarge, Limit: b.limit, Actual: frameLen}
	}
	if frameLen > len(b.buf) {
		return 0, &Error{Code: ErrCodeInsufficientBuffer, Required: frameLen, Capacity: len(b.buf)}
	}

	header, err := headerAt(b.buf)
	if err != nil {
		return 0, err
	}
	header.Magic = MagicNumber
	header.Length = uint32(payloadLen)
	header.Checksum = checksum(header.Length, b.buf[HeaderLen:frameLen])
	return frameLen, nil
}

// Frame is a decoded, checksum-verified frame whose payload borrows the
// channel's read buffer.
type Frame struct {
	payload  []byte
	frameLen int
}

// Payload returns the payload bytes, borrowed from the read buffer.
func (fr *Frame) Payload() []byte { return fr.payload }

// FrameLen returns the total encoded length, header included. This is the
// amount to consume on the channel after the payload is no longer referenced.
func (fr *Frame) FrameLen() int { return fr.frameLen }

// DecodeFrame parses and verifies a frame at the start of buf. A nil Frame
// with a nil error means the buffer does not yet hold a complete frame.
func (f *Framer) DecodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < HeaderLen {
		return nil, nil
	}

	header, err := headerAt(buf)
	if err != nil {
		return nil, err
	}

	if header.Magic != MagicNumber {
		return nil, &Error{Code: ErrCodeMagicNumberMismatch, Expected: MagicNumber, ActualSum: header.Magic}
	}

	frameLen := HeaderLen + int(header.Length)
	if frameLen > f.limit {
		return nil, &Error{Code: ErrCodeFrameTooLarge, Limit: f.limit, Actual: frameLen}
	}
	if len(buf) < frameLen {
		return nil, nil
	}

	payload := buf[HeaderLen:frameLen]
	if sum := checksum(header.Length, payload); sum != header.Checksum {
		return nil, &Error{Code: ErrCodeChecksumMismatch, Expected: header.Checksum, ActualSum: sum}
	}

	return &Frame{payload: payload, frameLen: frameLen}, nil
}

// headerAt overlays the frame header on the first HeaderLen bytes of buf.
// The buffer must be at least 4-byte aligned; channel buffers are page
// aligned so this only trips on misuse.
func headerAt(buf []byte) (*frameHeader, error) {
	ptr := unsafe.Pointer(unsafe.SliceData(buf))
	if uintptr(ptr)%unsafe.Alignof(frameHeader{}) != 0 {
		return nil, &Error{Code: ErrCodeUnalignedHeader, Align: int(unsafe.Alignof(frameHeader{}))}
	}
	return (*frameHeader)(ptr), nil
}
