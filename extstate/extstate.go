// Package extstate persists project extended state: string values scoped by
// project, section and key.
package extstate

import (
	"context"

	rerrors "github.com/caffeineduck/reabind/errors"
)

// Store holds extended-state values. scope identifies the project.
type Store interface {
	// Get returns the value and whether it exists.
	Get(ctx context.Context, scope, section, key string) (string, bool, error)
	Set(ctx context.Context, scope, section, key, value string) error
	Delete(ctx context.Context, scope, section, key string) error
	// Keys lists the keys of a section in sorted order.
	Keys(ctx context.Context, scope, section string) ([]string, error)
	Close() error
}

// Limits bound what a store accepts. Zero means unlimited.
type Limits struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

// DefaultLimits mirrors the host: values up to 2^31-2 bytes.
func DefaultLimits() Limits {
	return Limits{
		MaxKeySize:   4096,
		MaxValueSize: 1<<31 - 2,
		MaxEntries:   100000,
	}
}

func (l Limits) check(section, key, value string) error {
	if section == "" || key == "" {
		return rerrors.Value("extstate.Set", "section and key required", nil)
	}
	if l.MaxKeySize > 0 && (len(key) > l.MaxKeySize || len(section) > l.MaxKeySize) {
		return rerrors.Value("extstate.Set", "key too large", len(key))
	}
	if l.MaxValueSize > 0 && len(value) > l.MaxValueSize {
		return rerrors.Value("extstate.Set", "value too large", len(value))
	}
	return nil
}
