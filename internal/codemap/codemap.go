// Package codemap stores compiled function bodies behind the opaque, dense
// handles the embedder-facing API exposes (spec.md §6's FuncBody handle).
package codemap

import "github.com/regbytecode/rvm/internal/exec"

// Handle is an opaque index into a CodeMap.
type Handle uint32

// CodeMap assigns dense handles to compiled function bodies. Entries are
// never removed within a compilation; a Handle stays valid for the map's
// lifetime.
type CodeMap struct {
	bodies []*exec.FuncBody
}

// New returns an empty code map.
func New() *CodeMap { return &CodeMap{} }

// Store appends body and returns the handle it was assigned.
func (m *CodeMap) Store(body *exec.FuncBody) Handle {
	h := Handle(len(m.bodies))
	m.bodies = append(m.bodies, body)
	return h
}

// Resolve returns the function body a handle was assigned.
func (m *CodeMap) Resolve(h Handle) *exec.FuncBody { return m.bodies[h] }

// Len reports how many bodies are stored.
func (m *CodeMap) Len() int { return len(m.bodies) }
