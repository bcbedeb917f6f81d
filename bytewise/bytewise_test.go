package bytewise

import (
	"errors"
	"testing"
	"unsafe"
)

func TestWriteReadRoundTrip(t *testing.T) {
	buf := make([]byte, 256)

	type point struct {
		X int32
		Y int32
	}

	w := NewWriter(buf)
	u8 := uint8(0x7F)
	u64 := uint64(0xDEADBEEFCAFEF00D)
	pt := point{X: 10, Y: -20}
	f64 := 3.5

	for _, err := range []error{
		WriteRef(w, &u8),
		WriteRef(w, &u64),
		WriteRef(w, &pt),
		WriteRef(w, &f64),
	} {
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	r := NewReader(buf)
	gotU8, err := ReadRef[uint8](r)
	if err != nil {
		t.Fatalf("read u8: %v", err)
	}
	gotU64, err := ReadRef[uint64](r)
	if err != nil {
		t.Fatalf("read u64: %v", err)
	}
	gotPt, err := ReadRef[point](r)
	if err != nil {
		t.Fatalf("read point: %v", err)
	}
	gotF64, err := ReadRef[float64](r)
	if err != nil {
		t.Fatalf("read f64: %v", err)
	}

	if *gotU8 != u8 || *gotU64 != u64 || *gotPt != pt || *gotF64 != f64 {
		t.Errorf("roundtrip mismatch: %v %#x %v %v", *gotU8, *gotU64, *gotPt, *gotF64)
	}
	if w.Written() != r.Consumed() {
		t.Errorf("writer produced %d bytes, reader consumed %d", w.Written(), r.Consumed())
	}
}

func TestAlignmentPadding(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf)

	b := uint8(1)
	if err := WriteRef(w, &b); err != nil {
		t.Fatal(err)
	}
	after := w.Written()

	v := uint64(2)
	if err := WriteRef(w, &v); err != nil {
		t.Fatal(err)
	}

	// The u64 must land on an 8-byte boundary relative to the buffer start
	// (test buffers from make are at least 8-aligned).
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pos := w.Written() - 8
	if (base+uintptr(pos))%8 != 0 {
		t.Errorf("u64 written at misaligned offset %d", pos)
	}
	if pos < after {
		t.Errorf("u64 overlaps previous value (offset %d, previous end %d)", pos, after)
	}
}

func TestZeroSized(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf)

	z := struct{}{}
	if err := WriteRef(w, &z); err != nil {
		t.Fatalf("zero-sized write failed: %v", err)
	}
	if w.Written() != 0 {
		t.Errorf("zero-sized write consumed %d bytes", w.Written())
	}

	r := NewReader(buf)
	if _, err := ReadRef[struct{}](r); err != nil {
		t.Fatalf("zero-sized read failed: %v", err)
	}
	if r.Consumed() != 0 {
		t.Errorf("zero-sized read consumed %d bytes", r.Consumed())
	}
}

func TestInsufficientBuffer(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf)

	v := uint64(42)
	err := WriteRef(w, &v)
	if !errors.Is(err, &Error{Code: ErrCodeInsufficientBuffer}) {
		t.Errorf("err = %v, want InsufficientBuffer", err)
	}

	r := NewReader(buf)
	if _, err := ReadRef[uint64](r); !errors.Is(err, &Error{Code: ErrCodeInsufficientBuffer}) {
		t.Errorf("read err = %v, want InsufficientBuffer", err)
	}
}

func TestInvalidAlignment(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf)

	v := uint32(1)
	err := w.WriteRaw(unsafe.Pointer(&v), 4, 3)
	if !errors.Is(err, &Error{Code: ErrCodeInvalidAlignment}) {
		t.Errorf("err = %v, want InvalidAlignment", err)
	}

	r := NewReader(buf)
	if _, err := r.ReadRaw(4, 3); !errors.Is(err, &Error{Code: ErrCodeInvalidAlignment}) {
		t.Errorf("read err = %v, want InvalidAlignment", err)
	}
}

func TestOverlappingCopy(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf)

	// Source inside the destination buffer at the write position.
	err := w.WriteRaw(unsafe.Pointer(unsafe.SliceData(buf)), 8, 1)
	if !errors.Is(err, &Error{Code: ErrCodeIllegalOverlap}) {
		t.Errorf("err = %v, want IllegalOverlappingCopy", err)
	}
}

func TestReaderWriterSymmetry(t *testing.T) {
	// The same (size, align) sequence on both sides must land on identical
	// offsets regardless of the mix.
	buf := make([]byte, 128)
	steps := []struct{ size, align int }{
		{1, 1}, {8, 8}, {2, 2}, {4, 4}, {16, 8}, {1, 1}, {8, 8},
	}

	w := NewWriter(buf)
	src := make([]byte, 16)
	for _, s := range steps {
		if err := w.WriteRaw(unsafe.Pointer(unsafe.SliceData(src)), s.size, s.align); err != nil {
			t.Fatalf("write (%d,%d): %v", s.size, s.align, err)
		}
	}

	r := NewReader(buf)
	for _, s := range steps {
		if _, err := r.ReadRaw(s.size, s.align); err != nil {
			t.Fatalf("read (%d,%d): %v", s.size, s.align, err)
		}
	}

	if w.Written() != r.Consumed() {
		t.Errorf("asymmetric cursors: wrote %d, read %d", w.Written(), r.Consumed())
	}
}
