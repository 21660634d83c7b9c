package ir

// ValueType mirrors the Wasm numeric type tag. Defined here (rather than
// imported from the module package) so the IR package has no dependency on
// module ingestion; wasm.ValueType is the same underlying byte encoding.
type ValueType = byte

// BlockType describes the param/result arity of a block/loop/if body. Unlike
// a function signature, a BlockType's params are taken from (and its results
// pushed back onto) the enclosing operand stack rather than a call boundary.
type BlockType struct {
	Params  []ValueType
	Results []ValueType
}

// ParamNum is the number of operand-stack values a block of this type
// consumes on entry.
func (b *BlockType) ParamNum() int { return len(b.Params) }

// ResultNum is the number of operand-stack values a block of this type
// produces on a normal (non-branching) exit.
func (b *BlockType) ResultNum() int { return len(b.Results) }

// MemoryArg is the static alignment/offset pair attached to a load or store
// operator.
type MemoryArg struct {
	Alignment uint32
	Offset    uint32
}
