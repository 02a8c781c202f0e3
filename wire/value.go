package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Value type tags.
const (
	TypeNil    = "nil"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeString = "str"
	TypeHandle = "handle"
	TypeObject = "obj"
	TypeList   = "list"
)

// Value is one tagged value on the wire. The tag keeps integers and floats
// apart, which plain JSON numbers do not.
type Value struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

// Object is the serialized form of a typed wrapper: its kind and the
// primitive tuple it was constructed from.
type Object struct {
	Kind string `json:"kind"`
	Args []any  `json:"-"`
}

// Serializable is implemented by wrappers that can cross the boundary as
// plain data and be rebuilt on the other side.
type Serializable interface {
	WireObject() Object
}

type objectJSON struct {
	Kind string  `json:"kind"`
	Args []Value `json:"args"`
}

// Codec converts between Go values and wire values. Registered tag and kind
// constructors rehydrate handles and objects into typed wrappers; a codec
// without registrations yields raw handle.Handle and Object values.
type Codec struct {
	mu    sync.RWMutex
	tags  map[string]func(handle.Handle) any
	kinds map[string]func(args []any) (any, error)
}

func NewCodec() *Codec {
	return &Codec{
		tags:  make(map[string]func(handle.Handle) any),
		kinds: make(map[string]func(args []any) (any, error)),
	}
}

// RegisterTag makes decoded handles with the given tag rehydrate through fn.
func (c *Codec) RegisterTag(tag string, fn func(handle.Handle) any) {
	c.mu.Lock()
	c.tags[tag] = fn
	c.mu.Unlock()
}

// RegisterKind makes decoded objects of the given kind rehydrate through fn.
func (c *Codec) RegisterKind(kind string, fn func(args []any) (any, error)) {
	c.mu.Lock()
	c.kinds[kind] = fn
	c.mu.Unlock()
}

// Encode converts a Go value to its wire form.
func (c *Codec) Encode(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{T: TypeNil}, nil
	case bool:
		return raw(TypeBool, x)
	case int:
		return raw(TypeInt, int64(x))
	case int8:
		return raw(TypeInt, int64(x))
	case int16:
		return raw(TypeInt, int64(x))
	case int32:
		return raw(TypeInt, int64(x))
	case int64:
		return raw(TypeInt, x)
	case uint:
		return c.encodeUint(uint64(x))
	case uint8:
		return raw(TypeInt, int64(x))
	case uint16:
		return raw(TypeInt, int64(x))
	case uint32:
		return raw(TypeInt, int64(x))
	case uint64:
		return c.encodeUint(x)
	case float32:
		return raw(TypeFloat, float64(x))
	case float64:
		return raw(TypeFloat, x)
	case string:
		return raw(TypeString, x)
	case handle.Handle:
		return raw(TypeHandle, x.String())
	case Serializable:
		return c.encodeObject(x.WireObject())
	case Object:
		return c.encodeObject(x)
	case handle.Identifier:
		return raw(TypeHandle, x.Handle().String())
	case []any:
		items, err := c.EncodeAll(x)
		if err != nil {
			return Value{}, err
		}
		return raw(TypeList, items)
	}
	return Value{}, rerrors.Value("wire.Encode", fmt.Sprintf("unsupported type %T", v), nil)
}

// encodeUint rejects values an int64 cannot hold.
func (c *Codec) encodeUint(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, rerrors.Value("wire.Encode", fmt.Sprintf("integer %d overflows int64", x), nil)
	}
	return raw(TypeInt, int64(x))
}

func (c *Codec) encodeObject(o Object) (Value, error) {
	args, err := c.EncodeAll(o.Args)
	if err != nil {
		return Value{}, err
	}
	return raw(TypeObject, objectJSON{Kind: o.Kind, Args: args})
}

// EncodeAll encodes a tuple.
func (c *Codec) EncodeAll(vs []any) ([]Value, error) {
	out := make([]Value, len(vs))
	for i, v := range vs {
		e, err := c.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Decode converts a wire value back to Go, rehydrating registered handle
// tags and object kinds.
func (c *Codec) Decode(v Value) (any, error) {
	switch v.T {
	case TypeNil:
		return nil, nil
	case TypeBool:
		return decodeAs[bool](v)
	case TypeInt:
		return decodeAs[int64](v)
	case TypeFloat:
		return decodeAs[float64](v)
	case TypeString:
		return decodeAs[string](v)
	case TypeHandle:
		var s string
		if err := unraw(v, &s); err != nil {
			return nil, err
		}
		h, err := handle.Decode(s)
		if err != nil {
			return nil, err
		}
		return c.Rehydrate(h)
	case TypeObject:
		var o objectJSON
		if err := unraw(v, &o); err != nil {
			return nil, err
		}
		args, err := c.DecodeAll(o.Args)
		if err != nil {
			return nil, err
		}
		return c.Rehydrate(Object{Kind: o.Kind, Args: args})
	case TypeList:
		var items []Value
		if err := unraw(v, &items); err != nil {
			return nil, err
		}
		return c.DecodeAll(items)
	}
	return nil, rerrors.Value("wire.Decode", "unknown value type "+v.T, nil)
}

// DecodeAll decodes a tuple.
func (c *Codec) DecodeAll(vs []Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		d, err := c.Decode(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// Rehydrate turns a raw handle or Object into its registered wrapper.
// Other values and unregistered tags or kinds pass through unchanged.
func (c *Codec) Rehydrate(v any) (any, error) {
	switch x := v.(type) {
	case handle.Handle:
		c.mu.RLock()
		fn, ok := c.tags[x.Tag]
		c.mu.RUnlock()
		if ok {
			return fn(x), nil
		}
	case Object:
		c.mu.RLock()
		fn, ok := c.kinds[x.Kind]
		c.mu.RUnlock()
		if ok {
			return fn(x.Args)
		}
	}
	return v, nil
}

// RehydrateAll applies Rehydrate to every element of a tuple.
func (c *Codec) RehydrateAll(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		r, err := c.Rehydrate(v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func raw(t string, v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return Value{T: t, V: data}, nil
}

func decodeAs[T any](v Value) (any, error) {
	var x T
	if err := unraw(v, &x); err != nil {
		return nil, err
	}
	return x, nil
}

func unraw(v Value, dst any) error {
	if err := json.Unmarshal(v.V, dst); err != nil {
		return rerrors.Value("wire.Decode", fmt.Sprintf("bad %s value: %v", v.T, err), string(v.V))
	}
	return nil
}
