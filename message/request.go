package message

import (
	"sync/atomic"
	"unsafe"

	"github.com/openeuler-mirror/xmig/bytewise"
)

// requestID is the process-local request id counter. Ids start at 1 and are
// never reused within a process lifetime.
var requestID uint64

func nextRequestID() uint64 {
	return atomic.AddUint64(&requestID, 1)
}

// msgMeta is the shared wire metadata prefix of requests and responses.
type msgMeta struct {
	RequestID uint64
	MethodID  uint64
	ArgCount  uint64
}

var _ [24]byte = [unsafe.Sizeof(msgMeta{})]byte{}

// Request is an RPC call: a method identifier plus an ordered argument list.
type Request struct {
	requestID uint64
	methodID  uint64
	args      []Argument
}

// NewRequest builds a request for methodID, drawing a fresh request id.
func NewRequest(methodID uint64, args ...Argument) *Request {
	return &Request{
		requestID: nextRequestID(),
		methodID:  methodID,
		args:      args,
	}
}

// RequestID returns the process-locally unique request id.
func (r *Request) RequestID() uint64 { return r.requestID }

// MethodID returns the method identifier.
func (r *Request) MethodID() uint64 { return r.methodID }

// Argc returns the number of arguments.
func (r *Request) Argc() int { return len(r.args) }

// Args returns the argument list. The slice aliases the request's storage,
// so downcasts through it see the live arguments.
func (r *Request) Args() []Argument { return r.args }

// Arg returns a pointer to argument i.
func (r *Request) Arg(i int) *Argument { return &r.args[i] }

// WriteTo serializes metadata followed by each argument in order.
func (r *Request) WriteTo(w *bytewise.Writer) error {
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
	return nil
}

// ReadFrom reconstructs a request whose argument payloads borrow the
// reader's buffer.
func (r *Request) ReadFrom(reader *bytewise.Reader) error {
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

	r.requestID = meta.RequestID
	r.methodID = meta.MethodID
	r.args = args
	return nil
}

// UpdateFrom replays the response's OUT arguments into this request's
// argument storage. The response must answer this exact request and carry
// the same argument count; the server must echo payload bytes for every OUT
// position, even unchanged ones. Non-OUT positions are left untouched.
func (r *Request) UpdateFrom(resp *Response) error {
	if r.requestID != resp.requestID {
		return &Error{Code: ErrCodeRequestIDMismatch, Expect: r.requestID, Actual: resp.requestID}
	}
	if len(r.args) != len(resp.args) {
		return &Error{
			Code:   ErrCodeArgumentCountMismatch,
			Expect: uint64(len(r.args)),
			Actual: uint64(len(resp.args)),
		}
	}

	for i := range r.args {
		if !r.args[i].Flag().Has(FlagOut) {
			continue
		}
		if err := r.args[i].UpdateFrom(&resp.args[i]); err != nil {
			return err
		}
	}
	return nil
}
