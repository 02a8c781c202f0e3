package hostfunc

import (
	"fmt"
	"math"
	"strings"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Kind is the declared type of one argument or output.
type Kind int

const (
	KindVoid Kind = iota // only valid as a return kind
	KindInt
	KindFloat
	KindBool
	KindString
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindHandle:
		return "handle"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Param declares one positional argument.
type Param struct {
	Name string
	Kind Kind
	// Tag restricts a KindHandle param to one pointer type. Empty accepts any.
	Tag string
	// InOut marks an output parameter the host mutates in place.
	InOut bool
}

// Signature is the statically declared shape of one remote function.
//
// Output tuples follow the host convention: a function without in/out
// params returns just its value (or nothing when Returns is KindVoid); a
// function with any in/out param returns its value followed by every
// argument, with in/out ones replaced by what the host wrote.
type Signature struct {
	Name    string
	Params  []Param
	Returns Kind
}

// HasOutParams reports whether any param is in/out.
func (s Signature) HasOutParams() bool {
	for _, p := range s.Params {
		if p.InOut {
			return true
		}
	}
	return false
}

// Arity is the number of values in the output tuple.
func (s Signature) Arity() int {
	n := 0
	if s.Returns != KindVoid {
		n = 1
	}
	if s.HasOutParams() {
		n += len(s.Params)
	}
	return n
}

// OutputKinds lists the declared kind of each output position.
func (s Signature) OutputKinds() []Kind {
	kinds := make([]Kind, 0, s.Arity())
	if s.Returns != KindVoid {
		kinds = append(kinds, s.Returns)
	}
	if s.HasOutParams() {
		for _, p := range s.Params {
			kinds = append(kinds, p.Kind)
		}
	}
	return kinds
}

// Validate checks the signature is well formed.
func (s Signature) Validate() error {
	if s.Name == "" || strings.ContainsAny(s.Name, " \t\n") {
		return rerrors.Registration(s.Name, "invalid function name")
	}
	if s.Returns < KindVoid || s.Returns > KindHandle {
		return rerrors.Registration(s.Name, "invalid return kind "+s.Returns.String())
	}
	for i, p := range s.Params {
		if p.Kind <= KindVoid || p.Kind > KindHandle {
			return rerrors.Registration(s.Name, fmt.Sprintf("param %d has invalid kind %s", i, p.Kind))
		}
		if p.Tag != "" && p.Kind != KindHandle {
			return rerrors.Registration(s.Name, fmt.Sprintf("param %d has a tag but is not a handle", i))
		}
	}
	return nil
}

// Equal reports whether two signatures declare the same shape.
func (s Signature) Equal(o Signature) bool {
	if s.Name != o.Name || s.Returns != o.Returns || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		a, b := s.Params[i], o.Params[i]
		if a.Kind != b.Kind || a.Tag != b.Tag || a.InOut != b.InOut {
			return false
		}
	}
	return true
}

// CoerceArgs checks arity and converts each argument to its declared kind.
// Identifiers are unwrapped to their handle.
func (s Signature) CoerceArgs(args []any) ([]any, error) {
	if len(args) != len(s.Params) {
		return nil, rerrors.RemoteCall(s.Name, fmt.Sprintf("expected %d arguments, got %d", len(s.Params), len(args)))
	}
	out := make([]any, len(args))
	for i, p := range s.Params {
		v, err := coerce(args[i], p.Kind, p.Tag)
		if err != nil {
			return nil, rerrors.RemoteCall(s.Name, fmt.Sprintf("argument %d (%s): %v", i, p.Name, err))
		}
		out[i] = v
	}
	return out, nil
}

// CoerceOutputs checks an output tuple against the declared shape.
func (s Signature) CoerceOutputs(outs []any) ([]any, error) {
	kinds := s.OutputKinds()
	if len(outs) != len(kinds) {
		return nil, rerrors.RemoteCall(s.Name, fmt.Sprintf("expected %d outputs, got %d", len(kinds), len(outs)))
	}
	res := make([]any, len(outs))
	for i, k := range kinds {
		v, err := coerce(outs[i], k, "")
		if err != nil {
			return nil, rerrors.RemoteCall(s.Name, fmt.Sprintf("output %d: %v", i, err))
		}
		res[i] = v
	}
	return res, nil
}

// Coerce converts v to the Go representation of kind: int64, float64,
// bool, string or handle.Handle.
func Coerce(v any, kind Kind) (any, error) {
	return coerce(v, kind, "")
}

func coerce(v any, kind Kind, tag string) (any, error) {
	switch kind {
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		case bool:
			if n {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindHandle:
		var h handle.Handle
		switch x := v.(type) {
		case handle.Handle:
			h = x
		case handle.Identifier:
			h = x.Handle()
		case string:
			d, err := handle.Decode(x)
			if err != nil {
				return nil, err
			}
			h = d
		default:
			return nil, fmt.Errorf("cannot use %T as handle", v)
		}
		if tag != "" && h.Tag != tag {
			return nil, fmt.Errorf("expected %s*, got %s", tag, h.TypeName())
		}
		return h, nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, kind)
}
