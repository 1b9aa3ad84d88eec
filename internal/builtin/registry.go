package builtin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/colelawrence/derive-codegen/internal/schema"
)

// Registry deduplicates synthesized containers within one conversion
// session. It is the only shared mutable state of a session; synthesis and
// insertion happen under one lock.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	syntheses int
	requests  int
}

type entry struct {
	decl schema.InputDeclaration
	key  string
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Obtain returns the declaration stored under name, calling build only on
// the first request. key describes the structure being requested; a later
// request for the same name with a different key means two distinct shapes
// projected to one synthesized name, which is reported as a CollisionError.
func (r *Registry) Obtain(name, key string, build func() schema.InputDeclaration) (schema.InputDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
	if e, ok := r.entries[name]; ok {
		if e.key != key {
			return schema.InputDeclaration{}, &CollisionError{Name: name, Existing: e.key, Requested: key}
		}
		return e.decl, nil
	}
	d := build()
	if d.ID == "" {
		d.ID = name
	}
	r.entries[name] = &entry{decl: d, key: key}
	r.syntheses++
	return d, nil
}

// Lookup returns a stored declaration without building anything.
func (r *Registry) Lookup(name string) (schema.InputDeclaration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return schema.InputDeclaration{}, false
	}
	return e.decl, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Syntheses counts how many times a build function actually ran.
func (r *Registry) Syntheses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syntheses
}

// Requests counts every Obtain call, hits included.
func (r *Registry) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

// Declarations returns every stored declaration ordered by name.
func (r *Registry) Declarations() []schema.InputDeclaration {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]schema.InputDeclaration, len(names))
	for i, name := range names {
		out[i] = r.entries[name].decl
	}
	r.mu.Unlock()
	return out
}

// CollisionError reports two different shapes synthesized under one name.
type CollisionError struct {
	Name      string
	Existing  string
	Requested string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("built-in %q already synthesized as %s, refusing to alias %s", e.Name, e.Existing, e.Requested)
}
