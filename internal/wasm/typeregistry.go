package wasm

import "strconv"

// TypeRegistry interns FunctionType signatures across every module an engine
// has compiled, handing out a DedupFuncType so call_indirect can compare two
// signatures declared in different modules (or at different type-section
// indices of the same module) by identity instead of deep equality.
type TypeRegistry struct {
	types []FunctionType
	dedup map[string]DedupFuncType
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{dedup: map[string]DedupFuncType{}}
}

// Intern returns t's DedupFuncType, allocating a fresh one the first time an
// equal signature is seen.
func (r *TypeRegistry) Intern(t *FunctionType) DedupFuncType {
	key := typeKey(t)
	if d, ok := r.dedup[key]; ok {
		return d
	}
	d := DedupFuncType(len(r.types))
	r.types = append(r.types, *t)
	r.dedup[key] = d
	return d
}

// Resolve returns the signature a DedupFuncType was interned with.
func (r *TypeRegistry) Resolve(d DedupFuncType) *FunctionType { return &r.types[d] }

func typeKey(t *FunctionType) string {
	b := make([]byte, 0, len(t.Params)+len(t.Results)+2)
	b = append(b, t.Params...)
	b = append(b, '|')
	b = append(b, t.Results...)
	return strconv.Itoa(len(t.Params)) + ":" + string(b)
}
