package message

import (
	"github.com/openeuler-mirror/xmig/bytewise"
)

// Response answers exactly one Request: the echoed argument list (non-OUT
// positions replaced by the empty argument to save wire bytes while keeping
// positional index) plus a return value.
type Response struct {
	requestID uint64
	methodID  uint64
	args      []Argument
	retValue  Argument
}

// EmptyResponse builds a response with no arguments and an empty return
// value, for handlers that produce nothing.
func EmptyResponse(requestID, methodID uint64) *Response {
	return &Response{
		requestID: requestID,
		methodID:  methodID,
		retValue:  Empty(),
	}
}

// NewResponse builds the response for a request. Every OUT argument is
// carried through so the client can replay it; the rest collapse to Empty()
// at the same index.
func NewResponse(req *Request, retValue Argument) *Response {
	args := make([]Argument, len(req.args))
	for i := range req.args {
		if req.args[i].Flag().Has(FlagOut) {
			args[i] = req.args[i]
		} else {
			args[i] = Empty()
		}
	}

	return &Response{
		requestID: req.requestID,
		methodID:  req.methodID,
		args:      args,
		retValue:  retValue,
	}
}

// RequestID returns the id of the request this response answers.
func (r *Response) RequestID() uint64 { return r.requestID }

// MethodID returns the method identifier.
func (r *Response) MethodID() uint64 { return r.methodID }

// Argc returns the number of arguments.
func (r *Response) Argc() int { return len(r.args) }

// Args returns the argument list.
func (r *Response) Args() []Argument { return r.args }

// Arg returns a pointer to argument i.
func (r *Response) Arg(i int) *Argument { return &r.args[i] }

// ReturnValue returns the call's return value argument.
func (r *Response) ReturnValue() *Argument { return &r.retValue }

// WriteTo serializes metadata, each argument in order, then the return
// value.
func (r *Response) WriteTo(w *bytewise.Writer) error {
	meta := msgMeta{
		RequestID: r.requestID,
		MethodID:  r.methodID,
		ArgCount:  uint64(len(r.args)),
	}
	if err := bytewise.WriteRef(w, &meta); err != nil {
		return err
	}
	for i := range r.args {
		if err := r.args[i].WriteTo(w); err != nil {
			return err
		}
	}
	return r.retValue.WriteTo(w)
}

// ReadFrom reconstructs a response whose argument payloads borrow the
// reader's buffer.
func (r *Response) ReadFrom(reader *bytewise.Reader) error {
	meta, err := bytewise.ReadRef[msgMeta](reader)
	if err != nil {
		return err
	}

	args := make([]Argument, 0, meta.ArgCount)
	for i := uint64(0); i < meta.ArgCount; i++ {
		arg, err := readArgument(reader)
		if err != nil {
			return err
		}
		args = append(args, arg)
	}

	retValue, err := readArgument(reader)
	if err != nil {
		return err
	}

	r.requestID = meta.RequestID
	r.methodID = meta.MethodID
	r.args = args
	r.retValue = retValue
	return nil
}
