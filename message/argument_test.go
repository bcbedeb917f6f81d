package message

import (
	"testing"

	"github.com/openeuler-mirror/xmig/bytewise"
)

type point struct {
	X int32
	Y int32
}

func TestEmptyArgument(t *testing.T) {
	arg := Empty()

	if !arg.IsEmpty() {
		t.Error("Empty() should report empty")
	}
	if !arg.IsInline() {
		t.Error("Empty() should be inline")
	}
	if arg.Flag() != FlagIn {
		t.Errorf("Flag() = %v, want FlagIn", arg.Flag())
	}
	if _, err := Downcast[struct{}](&arg); err != nil {
		t.Errorf("Downcast[struct{}] failed: %v", err)
	}
}

func TestFromRefDowncast(t *testing.T) {
	value := point{X: 10, Y: 20}
	arg := FromRef(&value, FlagIn)

	ref, err := DowncastRef[point](&arg)
	if err != nil {
		t.Fatalf("DowncastRef failed: %v", err)
	}
	if ref != &value {
		t.Error("DowncastRef should return the original pointer")
	}
	if *ref != value {
		t.Errorf("*ref = %v, want %v", *ref, value)
	}
}

func TestDowncastTypeMismatch(t *testing.T) {
	value := int32(42)
	arg := FromRef(&value, FlagIn)

	// Same size and alignment, different name: the token must catch it.
	if _, err := DowncastRef[uint32](&arg); !IsCode(err, ErrCodeTypeMismatch) {
		t.Errorf("err = %v, want TypeMismatch", err)
	}

	// A differently sized type also has a different name, so the token
	// check fires before the size check; a size mismatch cannot be isolated
	// here, so just check the downcast fails.
	if _, err := DowncastRef[int64](&arg); err == nil {
		t.Error("downcast to differently sized type should fail")
	}
}

func TestInlineDowncast(t *testing.T) {
	arg := FromValue(uint64(7), FlagIn)

	got, err := Downcast[uint64](&arg)
	if err != nil {
		t.Fatalf("Downcast failed: %v", err)
	}
	if got != 7 {
		t.Errorf("Downcast = %d, want 7", got)
	}

	// Inline payloads cannot be borrowed: the record may be a transient
	// copy.
	if _, err := DowncastRef[uint64](&arg); !IsCode(err, ErrCodeIllegalBorrowOfInlined) {
		t.Errorf("DowncastRef err = %v, want IllegalBorrowOfInlined", err)
	}
	if _, err := DowncastMut[uint64](&arg); !IsCode(err, ErrCodeIllegalBorrowOfInlined) {
		t.Errorf("DowncastMut err = %v, want IllegalBorrowOfInlined", err)
	}
}

func TestFromValueTooLargePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FromValue over the inline bound should panic")
		}
	}()
	FromValue([4]uint64{}, FlagIn)
}

func TestMutableDowncast(t *testing.T) {
	value := uint64(0)
	arg := FromMut(&value, FlagIn|FlagOut)

	ref, err := DowncastMut[uint64](&arg)
	if err != nil {
		t.Fatalf("DowncastMut failed: %v", err)
	}
	*ref = 42
	if value != 42 {
		t.Errorf("value = %d after write through downcast, want 42", value)
	}
}

func TestMutableDowncastOfSharedFails(t *testing.T) {
	value := uint64(1)
	arg := FromRef(&value, FlagIn)

	if _, err := DowncastMut[uint64](&arg); !IsCode(err, ErrCodeIllegalMutation) {
		t.Errorf("err = %v, want IllegalMutation", err)
	}
}

func TestSliceDowncast(t *testing.T) {
	values := []uint16{1, 2, 3, 4, 5}
	arg := FromSlice(values, FlagIn)

	got, err := DowncastSlice[uint16](&arg)
	if err != nil {
		t.Fatalf("DowncastSlice failed: %v", err)
	}
	if len(got) != len(values) {
		t.Fatalf("len = %d, want %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], values[i])
		}
	}

	// A scalar downcast of a slice argument must fail, and vice versa.
	if _, err := Downcast[uint16](&arg); !IsCode(err, ErrCodeNotScalar) {
		t.Errorf("scalar downcast err = %v, want ArgumentIsNotScalar", err)
	}
	scalar := FromValue(uint16(9), FlagIn)
	if _, err := DowncastSlice[uint16](&scalar); !IsCode(err, ErrCodeNotSlice) {
		t.Errorf("slice downcast err = %v, want ArgumentIsNotSlice", err)
	}
}

func TestEmptySlice(t *testing.T) {
	arg := FromSlice([]int32{}, FlagIn)
	got, err := DowncastSlice[int32](&arg)
	if err != nil {
		t.Fatalf("DowncastSlice failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestMutSliceDowncast(t *testing.T) {
	values := []int32{1, 2, 3}
	arg := FromMutSlice(values, FlagOut)

	got, err := DowncastMutSlice[int32](&arg)
	if err != nil {
		t.Fatalf("DowncastMutSlice failed: %v", err)
	}
	got[0] = 100
	if values[0] != 100 {
		t.Errorf("values[0] = %d after write, want 100", values[0])
	}

	shared := FromSlice(values, FlagIn)
	if _, err := DowncastMutSlice[int32](&shared); !IsCode(err, ErrCodeIllegalMutation) {
		t.Errorf("err = %v, want IllegalMutation", err)
	}
}

func TestSliceTypeMismatch(t *testing.T) {
	values := []int32{1, 2, 3}
	arg := FromSlice(values, FlagIn)

	if _, err := DowncastSlice[uint8](&arg); err == nil {
		t.Error("slice downcast with wrong element type should fail")
	}
}

func TestUpdateFrom(t *testing.T) {
	dst := uint64(0)
	src := uint64(42)
	dstArg := FromMut(&dst, FlagOut)
	srcArg := FromRef(&src, FlagOut)

	if err := dstArg.UpdateFrom(&srcArg); err != nil {
		t.Fatalf("UpdateFrom failed: %v", err)
	}
	if dst != 42 {
		t.Errorf("dst = %d, want 42", dst)
	}
}

func TestUpdateFromInline(t *testing.T) {
	dstArg := FromValue(uint32(0), FlagOut)
	srcArg := FromValue(uint32(7), FlagOut)

	if err := dstArg.UpdateFrom(&srcArg); err != nil {
		t.Fatalf("UpdateFrom failed: %v", err)
	}
	got, err := Downcast[uint32](&dstArg)
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("inline payload = %d after update, want 7", got)
	}
}

func TestUpdateFromMismatches(t *testing.T) {
	dst := uint64(0)
	dstArg := FromMut(&dst, FlagOut)

	other := uint32(1)
	otherArg := FromRef(&other, FlagOut)
	if err := dstArg.UpdateFrom(&otherArg); !IsCode(err, ErrCodeTypeMismatch) {
		t.Errorf("type err = %v, want TypeMismatch", err)
	}

	empty := Empty()
	if err := dstArg.UpdateFrom(&empty); !IsCode(err, ErrCodeTypeMismatch) {
		t.Errorf("empty source err = %v, want TypeMismatch", err)
	}

	shared := uint64(3)
	sharedArg := FromRef(&shared, FlagOut)
	src := uint64(4)
	srcArg := FromRef(&src, FlagOut)
	if err := sharedArg.UpdateFrom(&srcArg); !IsCode(err, ErrCodeIllegalMutation) {
		t.Errorf("shared dst err = %v, want IllegalMutation", err)
	}

	a := []uint64{1, 2}
	b := []uint64{1, 2, 3}
	aArg := FromMutSlice(a, FlagOut)
	bArg := FromSlice(b, FlagOut)
	if err := aArg.UpdateFrom(&bArg); !IsCode(err, ErrCodeTypeLengthMismatch) {
		t.Errorf("length err = %v, want TypeLengthMismatch", err)
	}
}

func TestArgumentSerializationRoundTrip(t *testing.T) {
	buf := make([]byte, 1024)

	value := point{X: 3, Y: 4}
	slice := []uint16{10, 20, 30}
	inline := FromValue(uint64(99), FlagOut)
	refArg := FromRef(&value, FlagIn)
	sliceArg := FromMutSlice(slice, FlagOut)

	w := bytewise.NewWriter(buf)
	for _, arg := range []*Argument{&inline, &refArg, &sliceArg} {
		if err := arg.WriteTo(w); err != nil {
			t.Fatalf("WriteTo failed: %v", err)
		}
	}

	r := bytewise.NewReader(buf)

	var gotInline Argument
	if err := gotInline.ReadFrom(r); err != nil {
		t.Fatalf("read inline: %v", err)
	}
	n, err := Downcast[uint64](&gotInline)
	if err != nil || n != 99 {
		t.Errorf("inline roundtrip = %d (%v), want 99", n, err)
	}

	var gotRef Argument
	if err := gotRef.ReadFrom(r); err != nil {
		t.Fatalf("read ref: %v", err)
	}
	// Decoded payloads borrow the buffer as exclusive references.
	pt, err := DowncastMut[point](&gotRef)
	if err != nil {
		t.Fatalf("DowncastMut on decoded arg: %v", err)
	}
	if *pt != value {
		t.Errorf("decoded point = %v, want %v", *pt, value)
	}

	var gotSlice Argument
	if err := gotSlice.ReadFrom(r); err != nil {
		t.Fatalf("read slice: %v", err)
	}
	s, err := DowncastMutSlice[uint16](&gotSlice)
	if err != nil {
		t.Fatalf("DowncastMutSlice on decoded arg: %v", err)
	}
	if len(s) != 3 || s[0] != 10 || s[2] != 30 {
		t.Errorf("decoded slice = %v, want %v", s, slice)
	}
}

func TestZeroSizedRefRoundTrip(t *testing.T) {
	type zst struct{}
	z := zst{}
	arg := FromRef(&z, FlagIn)

	buf := make([]byte, 256)
	w := bytewise.NewWriter(buf)
	if err := arg.WriteTo(w); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	var got Argument
	if err := got.ReadFrom(bytewise.NewReader(buf)); err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if !got.IsEmpty() {
		t.Error("zero-sized argument should stay empty through the wire")
	}
}
