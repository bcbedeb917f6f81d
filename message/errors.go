package message

import (
	"errors"
	"fmt"
)

// ErrorCode classifies message and argument failures.
type ErrorCode string

const (
	ErrCodeRequestIDMismatch      ErrorCode = "request id mismatch"
	ErrCodeArgumentCountMismatch  ErrorCode = "argument count mismatch"
	ErrCodeStorageMismatch        ErrorCode = "argument storage mismatch"
	ErrCodeTypeMismatch           ErrorCode = "argument type mismatch"
	ErrCodeTypeSizeMismatch       ErrorCode = "argument type size mismatch"
	ErrCodeTypeAlignMismatch      ErrorCode = "argument type alignment mismatch"
	ErrCodeTypeLengthMismatch     ErrorCode = "argument type length mismatch"
	ErrCodeNotScalar              ErrorCode = "attempted to downcast non-scalar argument to scalar"
	ErrCodeNotSlice               ErrorCode = "attempted to downcast non-slice argument to slice"
	ErrCodeUnalignedAccess        ErrorCode = "attempted to access unaligned data"
	ErrCodeIllegalMutation        ErrorCode = "attempted to access non mutable data as mutable"
	ErrCodeIllegalBorrowOfInlined ErrorCode = "attempted to reference inlined data"
)

// Error is a structured message error. Expect/Actual carry the mismatched
// quantities for the *Mismatch codes.
type Error struct {
	Code   ErrorCode
	Expect uint64
	Actual uint64
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeRequestIDMismatch, ErrCodeArgumentCountMismatch,
		ErrCodeTypeSizeMismatch, ErrCodeTypeAlignMismatch, ErrCodeTypeLengthMismatch:
		return fmt.Sprintf("message: %s (expect: %d, actual: %d)", e.Code, e.Expect, e.Actual)
	default:
		return fmt.Sprintf("message: %s", e.Code)
	}
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsCode reports whether err is a message Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var me *Error
	return errors.As(err, &me) && me.Code == code
}
