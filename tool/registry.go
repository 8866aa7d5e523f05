package tool

import (
	"fmt"

	"github.com/colloquyhq/colloquy/core"
)

// Registry holds named tool definitions in registration order. It is built
// once at process start and read-only afterward; concurrent reads after
// initialization are safe without locking because no mutation occurs.
type Registry struct {
	byID  map[string]*Definition
	order []*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Definition)}
}

// Register adds a definition. It fails with core.ErrDuplicateToolID when the
// id is already taken and rejects definitions without an id or handler.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("tool definition requires an id")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s: %w", def.ID, fmt.Errorf("definition requires a handler"))
	}
	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("tool %s: %w", def.ID, core.ErrDuplicateToolID)
	}
	r.byID[def.ID] = def
	r.order = append(r.order, def)
	return nil
}

// MustRegister registers defs and panics on error. Intended for process
// startup where a broken tool set is unrecoverable.
func (r *Registry) MustRegister(defs ...*Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Get returns the definition for id or core.ErrUnknownTool.
func (r *Registry) Get(id string) (*Definition, error) {
	def, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", id, core.ErrUnknownTool)
	}
	return def, nil
}

// List returns a snapshot of all definitions in registration order.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
