package wire

import (
	"errors"

	"github.com/google/uuid"

	rerrors "github.com/caffeineduck/reabind/errors"
)

// Request asks the host to run one remote function.
type Request struct {
	ID   string  `json:"id"`
	Fn   string  `json:"fn"`
	Args []Value `json:"args"`
}

// Response carries the output tuple, or an error with its kind code.
type Response struct {
	ID    string  `json:"id"`
	Data  []Value `json:"data,omitempty"`
	Error string  `json:"error,omitempty"`
	Code  string  `json:"code,omitempty"`
}

// NewRequest returns a request with a fresh correlation ID.
func NewRequest(fn string, args []Value) Request {
	return Request{ID: uuid.NewString(), Fn: fn, Args: args}
}

// ErrorResponse builds the response for a failed call. The error kind
// travels as Code so the caller sees the same kind.
func ErrorResponse(id string, err error) Response {
	kind := rerrors.KindOf(err)
	if kind == "" {
		kind = rerrors.KindRemoteCall
	}
	detail := err.Error()
	var re *rerrors.Error
	if errors.As(err, &re) && re.Detail != "" && re.Cause == nil {
		detail = re.Detail
	}
	return Response{ID: id, Error: detail, Code: string(kind)}
}

// Err reconstructs the host-side error, or nil on success.
func (r Response) Err(fn string) error {
	if r.Error == "" && r.Code == "" {
		return nil
	}
	return &rerrors.Error{Kind: rerrors.ParseKind(r.Code), Op: fn, Detail: r.Error}
}
