package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	rerrors "github.com/caffeineduck/reabind/errors"
)

// Func implements one remote function. args arrive coerced to the declared
// kinds; the returned tuple must match the signature's output shape.
type Func func(ctx context.Context, args []any) ([]any, error)

type entry struct {
	sig Signature
	fn  Func
}

// Registry is the remote API table: remote function name to implementation.
type Registry struct {
	mu      sync.RWMutex
	catalog *Catalog
	funcs   map[string]entry
}

// NewRegistry returns an empty registry. When catalog is non-nil every
// registration must match the signature declared there.
func NewRegistry(catalog *Catalog) *Registry {
	return &Registry{catalog: catalog, funcs: make(map[string]entry)}
}

// Register adds or replaces the implementation for sig.Name.
func (r *Registry) Register(sig Signature, fn Func) error {
	if fn == nil {
		return rerrors.Registration(sig.Name, "nil function")
	}
	if err := sig.Validate(); err != nil {
		return err
	}
	if r.catalog != nil {
		declared, ok := r.catalog.Lookup(sig.Name)
		if !ok {
			return rerrors.Registration(sig.Name, "not declared in catalog")
		}
		if !declared.Equal(sig) {
			return rerrors.Registration(sig.Name, "signature does not match catalog")
		}
	}

	r.mu.Lock()
	r.funcs[sig.Name] = entry{sig: sig, fn: fn}
	r.mu.Unlock()
	return nil
}

// RegisterDeclared registers fn under the catalog's signature for name.
func (r *Registry) RegisterDeclared(name string, fn Func) error {
	if r.catalog == nil {
		return rerrors.Registration(name, "registry has no catalog")
	}
	sig, ok := r.catalog.Lookup(name)
	if !ok {
		return rerrors.Registration(name, "not declared in catalog")
	}
	return r.Register(sig, fn)
}

func (r *Registry) Get(name string) (Signature, Func, bool) {
	r.mu.RLock()
	e, ok := r.funcs[name]
	r.mu.RUnlock()
	return e.sig, e.fn, ok
}

// List returns registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named function. Unknown names and argument mismatches fail
// with a RemoteCallError; errors from the implementation keep their kind
// when they already carry one.
func (r *Registry) Call(ctx context.Context, name string, args []any) ([]any, error) {
	sig, fn, ok := r.Get(name)
	if !ok {
		return nil, rerrors.UnknownFunction(name)
	}

	in, err := sig.CoerceArgs(args)
	if err != nil {
		return nil, err
	}

	out, err := fn(ctx, in)
	if err != nil {
		var re *rerrors.Error
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, rerrors.Wrap(rerrors.KindRemoteCall, name, err)
	}

	if !sig.HasOutParams() && sig.Returns == KindVoid && out == nil {
		return []any{}, nil
	}
	return sig.CoerceOutputs(out)
}

// Catalog is a fixed set of declared signatures.
type Catalog struct {
	sigs map[string]Signature
}

// NewCatalog validates and indexes sigs. Duplicate names are an error.
func NewCatalog(sigs ...Signature) (*Catalog, error) {
	c := &Catalog{sigs: make(map[string]Signature, len(sigs))}
	for _, s := range sigs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.sigs[s.Name]; dup {
			return nil, rerrors.Registration(s.Name, "declared twice")
		}
		c.sigs[s.Name] = s
	}
	return c, nil
}

func (c *Catalog) Lookup(name string) (Signature, bool) {
	s, ok := c.sigs[name]
	return s, ok
}

// Must returns the signature for name and panics if it is not declared.
// Resolving operations at package init turns a misspelt name into a
// startup failure.
func (c *Catalog) Must(name string) Signature {
	s, ok := c.sigs[name]
	if !ok {
		panic(fmt.Sprintf("hostfunc: %q is not declared", name))
	}
	return s
}

// Names returns declared names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sigs))
	for name := range c.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
