// Package message defines the typed RPC messages carried over the fabric:
// Request, Response, and the Argument value carrier that uniformly
// represents inlined scalars, borrowed references, exclusive references, and
// slices.
package message

import (
	"hash/fnv"
	"reflect"
	"unsafe"

	"github.com/openeuler-mirror/xmig/bytewise"
)

// Flag is the argument direction bitset.
type Flag uint32

const (
	// FlagIn marks an input the server only reads.
	FlagIn Flag = 1 << iota
	// FlagOut marks storage the server is expected to write; the client
	// replays the change locally via Request.UpdateFrom.
	FlagOut
	// FlagVirt marks arguments that carry meaning only for the dispatcher
	// and never touch device memory.
	FlagVirt
)

// Has reports whether every bit of other is set in f.
func (f Flag) Has(other Flag) bool { return f&other == other }

// Kind distinguishes scalar arguments from slices.
type Kind uint32

const (
	KindScalar Kind = 0
	KindSlice  Kind = 1
)

// Storage variants for an argument's payload.
const (
	storageInline    uint32 = 0 // payload lives in the metadata record
	storageShared    uint32 = 1 // borrowed reference, read-only
	storageExclusive uint32 = 2 // exclusive reference, writable
)

// Inline storage bounds. Only small copy-types with modest alignment are
// inlined; slices never are.
const (
	inlineMaxSize  = 16
	inlineMaxAlign = 16
)

// argMeta is the wire metadata record of an argument, treated as a POD by
// the bytewise protocol. The inline buffer's contents are significant only
// when Storage == storageInline.
type argMeta struct {
	Kind    uint32
	Storage uint32
	Flags   uint32
	_       uint32
	Token   uint64
	Size    uint64
	Align   uint64
	Count   uint64
	Inline  [inlineMaxSize]byte
}

// Compile-time layout check.
var _ [64]byte = [unsafe.Sizeof(argMeta{})]byte{}

// typeToken derives the type-identity token: a 64-bit FNV-1a hash of the
// reflected type name. Tokens compare equal only for name-identical types;
// size and alignment are verified separately on downcast.
func typeToken[T any]() uint64 {
	var zero *T
	h := fnv.New64a()
	h.Write([]byte(reflect.TypeOf(zero).Elem().String()))
	return h.Sum64()
}

func sizeAlignOf[T any]() (uint64, uint64) {
	var zero T
	return uint64(unsafe.Sizeof(zero)), uint64(unsafe.Alignof(zero))
}

// Argument is a single positional parameter or return value. It never owns
// heap memory: the payload lives either in the argument's own inline bytes
// or behind a borrowed pointer whose lifetime the caller manages.
type Argument struct {
	meta argMeta
	ptr  unsafe.Pointer // payload location when not inline
}

// Empty returns the empty argument: an inlined zero-sized input. Responses
// use it to hole out non-OUT positions while preserving positional index.
func Empty() Argument {
	return FromValue(struct{}{}, FlagIn)
}

// FromValue builds an inline argument holding a copy of v. Panics if T does
// not fit the inline bounds; types that large must be passed by reference.
func FromValue[T any](v T, flag Flag) Argument {
	size, align := sizeAlignOf[T]()
	if size > inlineMaxSize || align > inlineMaxAlign {
		panic("message: value too large for inline argument storage")
	}

	a := Argument{meta: argMeta{
		Kind:    uint32(KindScalar),
		Storage: storageInline,
		Flags:   uint32(flag),
		Token:   typeToken[T](),
		Size:    size,
		Align:   align,
		Count:   1,
	}}
	if size > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
		copy(a.meta.Inline[:], src)
	}
	return a
}

// FromRef builds a shared-reference argument borrowing v. The value must
// stay alive and unmodified for as long as the argument is in use.
func FromRef[T any](v *T, flag Flag) Argument {
	size, align := sizeAlignOf[T]()
	return Argument{
		meta: argMeta{
			Kind:    uint32(KindScalar),
			Storage: storageShared,
			Flags:   uint32(flag),
			Token:   typeToken[T](),
			Size:    size,
			Align:   align,
			Count:   1,
		},
		ptr: unsafe.Pointer(v),
	}
}

// FromMut builds an exclusive-reference argument borrowing v. The caller
// grants the fabric exclusive access to the value until the argument is
// done.
func FromMut[T any](v *T, flag Flag) Argument {
	a := FromRef(v, flag)
	a.meta.Storage = storageExclusive
	return a
}

// FromSlice builds a shared slice argument borrowing s.
func FromSlice[T any](s []T, flag Flag) Argument {
	size, align := sizeAlignOf[T]()
	return Argument{
		meta: argMeta{
			Kind:    uint32(KindSlice),
			Storage: storageShared,
			Flags:   uint32(flag),
			Token:   typeToken[T](),
			Size:    size,
			Align:   align,
			Count:   uint64(len(s)),
		},
		ptr: unsafe.Pointer(unsafe.SliceData(s)),
	}
}

// FromMutSlice builds an exclusive slice argument borrowing s.
func FromMutSlice[T any](s []T, flag Flag) Argument {
	a := FromSlice(s, flag)
	a.meta.Storage = storageExclusive
	return a
}

// FromPtr builds a shared-reference argument from a raw pointer.
//
// The caller must guarantee p points at a live, initialized T that stays
// valid and unmutated for the argument's lifetime.
func FromPtr[T any](p unsafe.Pointer, flag Flag) Argument {
	return FromRef((*T)(p), flag)
}

// FromMutPtr builds an exclusive-reference argument from a raw pointer.
//
// The caller must guarantee p points at a live T with no other readers or
// writers for the argument's lifetime.
func FromMutPtr[T any](p unsafe.Pointer, flag Flag) Argument {
	return FromMut((*T)(p), flag)
}

// Flag returns the direction bitset.
func (a *Argument) Flag() Flag { return Flag(a.meta.Flags) }

// Kind returns whether the argument is a scalar or a slice.
func (a *Argument) Kind() Kind { return Kind(a.meta.Kind) }

// Size returns the element size in bytes.
func (a *Argument) Size() int { return int(a.meta.Size) }

// Align returns the element alignment in bytes.
func (a *Argument) Align() int { return int(a.meta.Align) }

// Count returns the element count (1 for scalars, the length for slices).
func (a *Argument) Count() int { return int(a.meta.Count) }

// IsEmpty reports whether the argument carries no payload bytes.
func (a *Argument) IsEmpty() bool { return a.meta.Size == 0 }

// IsInline reports whether the payload lives in the argument record itself.
func (a *Argument) IsInline() bool { return a.meta.Storage == storageInline }

// IsExclusive reports whether the payload is held by exclusive reference.
func (a *Argument) IsExclusive() bool { return a.meta.Storage == storageExclusive }

// payloadBytes returns the total payload length.
func (a *Argument) payloadBytes() int { return int(a.meta.Size * a.meta.Count) }

// payloadPtr returns the payload location for inline or external storage.
func (a *Argument) payloadPtr() unsafe.Pointer {
	if a.meta.Storage == storageInline {
		return unsafe.Pointer(&a.meta.Inline[0])
	}
	return a.ptr
}

// checkType validates the type-identity token, element size, and element
// alignment of a downcast to T.
func checkType[T any](a *Argument) error {
	size, align := sizeAlignOf[T]()
	if a.meta.Token != typeToken[T]() {
		return &Error{Code: ErrCodeTypeMismatch}
	}
	if a.meta.Size != size {
		return &Error{Code: ErrCodeTypeSizeMismatch, Expect: size, Actual: a.meta.Size}
	}
	if a.meta.Align != align {
		return &Error{Code: ErrCodeTypeAlignMismatch, Expect: align, Actual: a.meta.Align}
	}
	return nil
}

// checkScalar validates a scalar downcast to T, including pointer alignment.
func checkScalar[T any](a *Argument) error {
	if a.Kind() != KindScalar {
		return &Error{Code: ErrCodeNotScalar}
	}
	if err := checkType[T](a); err != nil {
		return err
	}
	if a.meta.Size > 0 && a.meta.Align > 0 {
		if uintptr(a.payloadPtr())%uintptr(a.meta.Align) != 0 {
			return &Error{Code: ErrCodeUnalignedAccess}
		}
	}
	return nil
}

// Downcast returns a copy of the scalar payload as T. Works for every
// storage variant.
func Downcast[T any](a *Argument) (T, error) {
	var zero T
	if err := checkScalar[T](a); err != nil {
		return zero, err
	}
	if a.meta.Size == 0 {
		return zero, nil
	}
	return *(*T)(a.payloadPtr()), nil
}

// DowncastRef returns a shared view of the scalar payload. Inline storage
// cannot be borrowed: the argument record may be a short-lived copy.
func DowncastRef[T any](a *Argument) (*T, error) {
	if err := checkScalar[T](a); err != nil {
		return nil, err
	}
	if a.meta.Storage == storageInline {
		return nil, &Error{Code: ErrCodeIllegalBorrowOfInlined}
	}
	return (*T)(a.ptr), nil
}

// DowncastMut returns an exclusive view of the scalar payload. Fails on
// inline storage and on shared references.
func DowncastMut[T any](a *Argument) (*T, error) {
	if err := checkScalar[T](a); err != nil {
		return nil, err
	}
	switch a.meta.Storage {
	case storageInline:
		return nil, &Error{Code: ErrCodeIllegalBorrowOfInlined}
	case storageShared:
		return nil, &Error{Code: ErrCodeIllegalMutation}
	}
	return (*T)(a.ptr), nil
}

// DowncastSlice returns a shared view of the slice payload.
func DowncastSlice[T any](a *Argument) ([]T, error) {
	if a.Kind() != KindSlice {
		return nil, &Error{Code: ErrCodeNotSlice}
	}
	if err := checkType[T](a); err != nil {
		return nil, err
	}
	if a.meta.Count == 0 {
		return []T{}, nil
	}
	if a.meta.Size > 0 && uintptr(a.ptr)%uintptr(a.meta.Align) != 0 {
		return nil, &Error{Code: ErrCodeUnalignedAccess}
	}
	return unsafe.Slice((*T)(a.ptr), a.meta.Count), nil
}

// DowncastMutSlice returns an exclusive view of the slice payload. Fails on
// shared references.
func DowncastMutSlice[T any](a *Argument) ([]T, error) {
	if a.Kind() != KindSlice {
		return nil, &Error{Code: ErrCodeNotSlice}
	}
	if err := checkType[T](a); err != nil {
		return nil, err
	}
	if a.meta.Storage != storageExclusive {
		return nil, &Error{Code: ErrCodeIllegalMutation}
	}
	if a.meta.Count == 0 {
		return []T{}, nil
	}
	if a.meta.Size > 0 && uintptr(a.ptr)%uintptr(a.meta.Align) != 0 {
		return nil, &Error{Code: ErrCodeUnalignedAccess}
	}
	return unsafe.Slice((*T)(a.ptr), a.meta.Count), nil
}

// UpdateFrom copies src's payload bytes into a's payload location. Type
// identity, size, alignment, and count must all match; a must not be a
// shared reference. This is how OUT arguments are spliced from a Response
// back into the caller's Request.
func (a *Argument) UpdateFrom(src *Argument) error {
	if a.meta.Token != src.meta.Token {
		return &Error{Code: ErrCodeTypeMismatch}
	}
	if a.meta.Size != src.meta.Size {
		return &Error{Code: ErrCodeTypeSizeMismatch, Expect: a.meta.Size, Actual: src.meta.Size}
	}
	if a.meta.Align != src.meta.Align {
		return &Error{Code: ErrCodeTypeAlignMismatch, Expect: a.meta.Align, Actual: src.meta.Align}
	}
	if a.meta.Count != src.meta.Count {
		return &Error{Code: ErrCodeTypeLengthMismatch, Expect: a.meta.Count, Actual: src.meta.Count}
	}
	if a.meta.Storage == storageShared {
		return &Error{Code: ErrCodeIllegalMutation}
	}

	total := a.payloadBytes()
	if total == 0 {
		return nil
	}
	dst := unsafe.Slice((*byte)(a.payloadPtr()), total)
	copy(dst, unsafe.Slice((*byte)(src.payloadPtr()), total))
	return nil
}

// WriteTo serializes the argument: the metadata record first, then, for
// external storage, the payload bytes at their natural alignment. Inline
// payloads travel inside the metadata record.
func (a *Argument) WriteTo(w *bytewise.Writer) error {
	if err := bytewise.WriteRef(w, &a.meta); err != nil {
		return err
	}
	if a.meta.Storage == storageInline {
		return nil
	}
	if total := a.payloadBytes(); total > 0 {
		return w.WriteRaw(a.ptr, total, int(a.meta.Align))
	}
	return nil
}

// readArgument decodes one argument. Non-inline payloads become exclusive
// references into the read buffer, so handlers can write OUT arguments in
// place.
func readArgument(r *bytewise.Reader) (Argument, error) {
	metaRef, err := bytewise.ReadRef[argMeta](r)
	if err != nil {
		return Argument{}, err
	}

	a := Argument{meta: *metaRef}
	if a.meta.Storage == storageInline {
		return a, nil
	}

	a.meta.Storage = storageExclusive
	ptr, err := r.ReadRaw(a.payloadBytes(), int(a.meta.Align))
	if err != nil {
		return Argument{}, err
	}
	a.ptr = ptr
	return a, nil
}

// ReadFrom decodes an argument in place; see readArgument.
func (a *Argument) ReadFrom(r *bytewise.Reader) error {
	decoded, err := readArgument(r)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// In wraps FromValue with the IN flag, for compact call sites.
func In[T any](v T) Argument { return FromValue(v, FlagIn) }

// Out wraps FromMut with the OUT flag.
func Out[T any](v *T) Argument { return FromMut(v, FlagOut) }

// InOut wraps FromMut with IN|OUT.
func InOut[T any](v *T) Argument { return FromMut(v, FlagIn|FlagOut) }

// OutSlice wraps FromMutSlice with the OUT flag.
func OutSlice[T any](s []T) Argument { return FromMutSlice(s, FlagOut) }
