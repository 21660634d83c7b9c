package ir

// ConstRef is an opaque reference into a ConstantPool.
type ConstRef uint32

// ConstantPool is an append-only intern table for untyped 64-bit values. It
// deduplicates by value: allocating the same value twice within one
// compilation yields the same ConstRef. Entries are never removed, so a
// ConstRef remains valid for the lifetime of the pool.
type ConstantPool struct {
	values []uint64
	dedup  map[uint64]ConstRef
}

// NewConstantPool returns an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{dedup: map[uint64]ConstRef{}}
}

// Alloc interns value, returning a stable reference to it.
func (p *ConstantPool) Alloc(value uint64) ConstRef {
	if ref, ok := p.dedup[value]; ok {
		return ref
	}
	ref := ConstRef(len(p.values))
	p.values = append(p.values, value)
	p.dedup[value] = ref
	return ref
}

// Resolve returns the value a ConstRef was allocated with.
func (p *ConstantPool) Resolve(ref ConstRef) uint64 {
	return p.values[ref]
}

// Len returns the number of distinct interned values.
func (p *ConstantPool) Len() int { return len(p.values) }
