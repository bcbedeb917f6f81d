package bytewise

import "fmt"

// ErrorCode classifies bytewise cursor failures.
type ErrorCode string

const (
	ErrCodeInsufficientBuffer    ErrorCode = "insufficient buffer capacity"
	ErrCodeInvalidAlignment      ErrorCode = "alignment must be power of two"
	ErrCodeIntrinsicMisalignment ErrorCode = "address cannot satisfy alignment"
	ErrCodeIllegalOverlap        ErrorCode = "illegal overlapping copy"
)

// Error is a structured bytewise error carrying the sizes involved.
type Error struct {
	Code     ErrorCode
	Required int
	Capacity int
	Align    int
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeInsufficientBuffer:
		return fmt.Sprintf("bytewise: %s (required: %d, capacity: %d)", e.Code, e.Required, e.Capacity)
	case ErrCodeInvalidAlignment, ErrCodeIntrinsicMisalignment:
		return fmt.Sprintf("bytewise: %s (align: %d)", e.Code, e.Align)
	default:
		return fmt.Sprintf("bytewise: %s", e.Code)
	}
}

// Is matches errors by code so callers can use errors.Is with a bare code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func errInsufficient(required, capacity int) *Error {
	return &Error{Code: ErrCodeInsufficientBuffer, Required: required, Capacity: capacity}
}

func errBadAlign(align int) *Error {
	return &Error{Code: ErrCodeInvalidAlignment, Align: align}
}

func errMisaligned(align int) *Error {
	return &Error{Code: ErrCodeIntrinsicMisalignment, Align: align}
}

func errOverlap() *Error {
	return &Error{Code: ErrCodeIllegalOverlap}
}
