package sys

import (
	"testing"
	"unsafe"
)

func newTestMapping(t *testing.T, fileLen, resvLen int) (*Shmem, *MirroredMmap) {
	t.Helper()

	shm, err := CreateShmem(uniqueShmName(), fileLen)
	if err != nil {
		t.Fatalf("CreateShmem failed: %v", err)
	}
	m, err := MapMirrored(shm.Fd(), fileLen, resvLen)
	if err != nil {
		shm.Close()
		t.Fatalf("MapMirrored failed: %v", err)
	}
	t.Cleanup(func() {
		m.Close()
		shm.Close()
	})
	return shm, m
}

func TestMapMirroredLayout(t *testing.T) {
	page := PageSize()
	fileLen := page * 2
	resvLen := page
	dataLen := fileLen - resvLen

	_, m := newTestMapping(t, fileLen, resvLen)

	if m.ReservedLen() != resvLen {
		t.Errorf("ReservedLen() = %d, want %d", m.ReservedLen(), resvLen)
	}
	if m.DataLen() != dataLen {
		t.Errorf("DataLen() = %d, want %d", m.DataLen(), dataLen)
	}
	if m.TotalLen() != resvLen+dataLen*2 {
		t.Errorf("TotalLen() = %d, want %d", m.TotalLen(), resvLen+dataLen*2)
	}

	dataAddr := uintptr(m.DataPtr())
	if dataAddr != uintptr(m.ReservedPtr())+uintptr(resvLen) {
		t.Error("data region should follow the reserved region")
	}
	if uintptr(m.MirroredPtr()) != dataAddr+uintptr(dataLen) {
		t.Error("mirror should follow the data region")
	}
}

func TestMapMirroredBadArgs(t *testing.T) {
	page := PageSize()
	shm, err := CreateShmem(uniqueShmName(), page*2)
	if err != nil {
		t.Fatalf("CreateShmem failed: %v", err)
	}
	defer shm.Close()

	if _, err := MapMirrored(shm.Fd(), page*2, 0); err == nil {
		t.Error("zero reserve should fail")
	}
	if _, err := MapMirrored(shm.Fd(), page*2, page*2); err == nil {
		t.Error("reserve >= file length should fail")
	}
	if _, err := MapMirrored(shm.Fd(), page+1, page); err == nil {
		t.Error("unaligned file length should fail")
	}
}

func TestMirroring(t *testing.T) {
	page := PageSize()
	_, m := newTestMapping(t, page*2, page)

	dataLen := m.DataLen()
	data := unsafe.Slice((*byte)(m.DataPtr()), dataLen)
	mirror := unsafe.Slice((*byte)(m.MirroredPtr()), dataLen)

	// Writes to data are visible through the mirror at the same offset.
	data[0] = 0x11
	data[100] = 0x22
	data[dataLen-1] = 0x33
	if mirror[0] != 0x11 || mirror[100] != 0x22 || mirror[dataLen-1] != 0x33 {
		t.Error("data writes not visible through mirror")
	}

	// And the other way around.
	mirror[55] = 0x44
	if data[55] != 0x44 {
		t.Error("mirror write not visible through data region")
	}
}

func TestWrapAroundWrite(t *testing.T) {
	page := PageSize()
	_, m := newTestMapping(t, page*2, page)

	dataLen := m.DataLen()
	// The full 2*dataLen window is contiguous, so a write spanning the end
	// of the data region lands at its start.
	window := unsafe.Slice((*byte)(m.DataPtr()), dataLen*2)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	copy(window[dataLen-2:], payload)

	if window[dataLen-2] != 0xDE || window[dataLen-1] != 0xAD {
		t.Error("tail bytes not written")
	}
	if window[0] != 0xBE || window[1] != 0xEF {
		t.Error("wrapped bytes not visible at the start of the data region")
	}
}
