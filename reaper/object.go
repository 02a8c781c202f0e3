package reaper

import (
	"context"
	"slices"

	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/wire"
)

// Wrapper kinds, as they appear in serialized objects.
const (
	KindProject  = "Project"
	KindTrack    = "Track"
	KindEnvelope = "Envelope"
	KindItem     = "Item"
	KindSend     = "Send"
)

// Object is a typed wrapper around a host object.
type Object interface {
	Kind() string
	// Args is the primitive tuple the wrapper is constructed from.
	Args() []any
	// IsValid reports whether the host object still exists. It never
	// fails: an unresolvable owner or a failed call reads as false.
	IsValid(ctx context.Context) bool
}

// Equal reports whether a and b name the same host object.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	ia, okA := a.(handle.Identifier)
	ib, okB := b.(handle.Identifier)
	if okA && okB {
		return ia.Handle() == ib.Handle()
	}
	return slices.Equal(a.Args(), b.Args())
}

// Serialize returns the plain-data form of o.
func Serialize(o Object) wire.Object {
	return wire.Object{Kind: o.Kind(), Args: o.Args()}
}
