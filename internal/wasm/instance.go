package wasm

import "github.com/regbytecode/rvm/internal/codemap"

// pageSize is the Wasm linear memory page size in bytes.
const pageSize = 65536

// MemoryInstance is a module instance's linear memory. Buffer always has
// length Pages*pageSize; Grow reallocates it.
type MemoryInstance struct {
	Buffer   []byte
	Pages    uint32
	MaxPages uint32 // 0 means "no declared maximum": capped only by the engine's address space
}

// NewMemoryInstance allocates a zeroed memory of the given initial size.
func NewMemoryInstance(minPages, maxPages uint32) *MemoryInstance {
	return &MemoryInstance{
		Buffer:   make([]byte, uint64(minPages)*pageSize),
		Pages:    minPages,
		MaxPages: maxPages,
	}
}

// Grow adds deltaPages pages, returning the previous page count, or false if
// the growth would exceed MaxPages (when declared).
func (m *MemoryInstance) Grow(deltaPages uint32) (previous uint32, ok bool) {
	next := m.Pages + deltaPages
	if next < m.Pages { // overflow
		return m.Pages, false
	}
	if m.MaxPages != 0 && next > m.MaxPages {
		return m.Pages, false
	}
	grown := make([]byte, uint64(next)*pageSize)
	copy(grown, m.Buffer)
	m.Buffer = grown
	previous = m.Pages
	m.Pages = next
	return previous, true
}

// InBounds reports whether [offset, offset+length) lies within the current
// buffer, without overflowing the uint64 addition.
func (m *MemoryInstance) InBounds(offset uint64, length uint64) bool {
	end := offset + length
	return end >= offset && end <= uint64(len(m.Buffer))
}

// TableInstance holds a module instance's table of (today, only function)
// references. A nil entry is the Wasm null reference.
type TableInstance struct {
	References []*FunctionInstance
}

// GlobalInstance is a module instance's mutable storage cell for one global.
// Every global's value, regardless of declared ValueType, is a raw 64-bit
// cell; interpreting the bits is the dispatcher's job.
type GlobalInstance struct {
	Type GlobalType
	Val  uint64
}

// FunctionInstance is a function in a module instance's function index
// space: the metadata the dispatcher needs to validate and perform a call.
// Exactly one of Body/Host is meaningful, selected by IsHost: a Wasm-defined
// function resolves through the engine's CodeMap via Body, a host-bound
// import is invoked directly through Host.
type FunctionInstance struct {
	Module    *Module
	Instance  *Instance // runtime instance this function executes against; nil for a freestanding host function
	TypeIndex Index
	Type      *FunctionType
	Name      string

	IsHost bool
	Body   codemap.Handle
	Host   HostFunction
}

// Instance is a module instance: the bindings the dispatcher resolves
// through a running frame. Any of Memory/Tables/Globals/Functions may be
// absent depending on what the module declared/imported.
type Instance struct {
	Memory    *MemoryInstance
	Tables    []*TableInstance
	Globals   []*GlobalInstance
	Functions []*FunctionInstance
}

// DefaultMemory returns the instance's sole memory, or nil if it declared
// none. Wasm 1.0 permits at most one memory per instance.
func (i *Instance) DefaultMemory() *MemoryInstance { return i.Memory }

// DefaultTable returns the instance's first table, or nil if it has none.
// The dispatcher's `call_indirect` indexes Tables by its own TableIndex
// instead of calling this.
func (i *Instance) DefaultTable() *TableInstance {
	if len(i.Tables) == 0 {
		return nil
	}
	return i.Tables[0]
}
