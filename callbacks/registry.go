package callbacks

import (
	"strings"

	"go.uber.org/atomic"

	"github.com/markdingo/netresolv/log"
)

// Registry publishes the active Set. Readers never see a partially replaced Set as each
// Initialize stores a pointer to a fresh private copy.
type Registry struct {
	active     *atomic.Pointer[Set]
	generation atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{active: atomic.NewPointer(&Set{})}
}

// Initialize replaces the active Set unconditionally.
func (t *Registry) Initialize(s Set) {
	cp := s
	t.active.Store(&cp)
	g := t.generation.Inc()
	if log.IfMinor() {
		names := s.Names()
		if len(names) == 0 {
			names = []string{"none"}
		}
		log.Minorf("callbacks: generation %d: %s", g, strings.Join(names, ","))
	}
}

// Reset clears every slot.
func (t *Registry) Reset() {
	t.Initialize(Set{})
}

// Active returns the current Set. The returned value is a copy so callers cannot affect
// the published Set.
func (t *Registry) Active() Set {
	return *t.active.Load()
}

// Generation returns the number of Initialize or Reset calls so far.
func (t *Registry) Generation() uint64 {
	return t.generation.Load()
}
