// Package hostctx tracks whether the current call path already runs inside
// the host's execution context.
//
// A [Marker] has a base location fixed at construction and a stack of
// entered scopes. Scopes nest; each release restores exactly the depth that
// was current when its scope was entered, so an inner scope that fails or
// panics cannot leak "inside" state into its caller.
//
//	release := m.Enter()
//	defer release()
package hostctx

import "sync"

// Marker is the execution context marker. The zero value is a usable
// marker whose base location is outside the host.
type Marker struct {
	mu     sync.Mutex
	base   bool
	depth  int
	epochs []uint64
	next   uint64
}

// New returns a marker whose base location is outside the host.
func New() *Marker {
	return &Marker{}
}

// NewInside returns a marker for code that runs on the host thread itself.
func NewInside() *Marker {
	return &Marker{base: true}
}

// Inside reports whether calls should run directly against the host.
func (m *Marker) Inside() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base || m.depth > 0
}

// Depth is the number of currently entered scopes.
func (m *Marker) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// Enter pushes an "inside" scope and returns its release func. Release is
// idempotent and pops this scope together with any scope entered after it
// that was not released.
func (m *Marker) Enter() (release func()) {
	m.mu.Lock()
	m.next++
	id := m.next
	entry := m.depth
	m.epochs = append(m.epochs, id)
	m.depth++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// A scope released out of order must not pop a newer scope that
			// reused its depth slot.
			if entry < len(m.epochs) && m.epochs[entry] == id {
				m.epochs = m.epochs[:entry]
				m.depth = entry
			}
		})
	}
}

// Run executes fn inside a scope, releasing it on every exit path,
// including panics.
func Run(m *Marker, fn func() error) error {
	release := m.Enter()
	defer release()
	return fn()
}
