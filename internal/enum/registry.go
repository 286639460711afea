// Package enum maintains the dynamic enumerations fetched from the
// enum service. Lookups resolve codes to display literals; the schema
// registry consumes the code lists when materialising enumRef nodes.
package enum

import (
	"sync/atomic"
)

// Enum is one named enumeration. Codes keeps the service's order;
// literals maps each code to its display value.
type Enum struct {
	Name     string
	Codes    []string
	literals map[string]string
}

// NewEnum builds an Enum from ordered codes and their literals.
func NewEnum(name string, codes []string, literals map[string]string) Enum {
	return Enum{Name: name, Codes: codes, literals: literals}
}

// Literal resolves a code within this enum.
func (e Enum) Literal(code string) (string, bool) {
	literal, ok := e.literals[code]
	return literal, ok
}

// Registry holds the current enum snapshot. Replace swaps the whole
// set atomically; readers never see a partial refresh.
type Registry struct {
	snapshot atomic.Value // map[string]Enum
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snapshot.Store(map[string]Enum{})
	return r
}

// Replace publishes a new enum set.
func (r *Registry) Replace(enums []Enum) {
	next := make(map[string]Enum, len(enums))
	for _, e := range enums {
		next[e.Name] = e
	}
	r.snapshot.Store(next)
}

// Get returns the named enum.
func (r *Registry) Get(name string) (Enum, bool) {
	e, ok := r.snapshot.Load().(map[string]Enum)[name]
	return e, ok
}

// Codes returns the ordered code list of the named enum.
func (r *Registry) Codes(name string) ([]string, bool) {
	e, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return e.Codes, true
}

// Literal resolves a code of the named enum to its literal.
func (r *Registry) Literal(name, code string) (string, bool) {
	e, ok := r.Get(name)
	if !ok {
		return "", false
	}
	return e.Literal(code)
}

// Len returns the number of loaded enums.
func (r *Registry) Len() int {
	return len(r.snapshot.Load().(map[string]Enum))
}
