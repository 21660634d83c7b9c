package wasm

import "github.com/regbytecode/rvm/internal/ir"

// OpKind discriminates the concrete Go type behind an Operator.
type OpKind uint8

const (
	OpKindUnreachable OpKind = iota
	OpKindNop
	OpKindBlock
	OpKindLoop
	OpKindIf
	OpKindElse
	OpKindEnd
	OpKindBr
	OpKindBrIf
	OpKindBrTable
	OpKindReturn
	OpKindCall
	OpKindCallIndirect
	OpKindDrop
	OpKindSelect
	OpKindLocalGet
	OpKindLocalSet
	OpKindLocalTee
	OpKindGlobalGet
	OpKindGlobalSet
	OpKindConstI32
	OpKindConstI64
	OpKindConstF32
	OpKindConstF64
	OpKindNumeric
	OpKindLoad
	OpKindStore
	OpKindMemorySize
	OpKindMemoryGrow
)

// Operator is one decoded Wasm instruction from a function's operand-stream.
// Decoding the module's binary encoding into this form, and validating it, is
// the job of an upstream loader (see the package doc); the translator only
// ever walks an already-decoded []Operator.
type Operator interface {
	OpKind() OpKind
}

type OpUnreachable struct{}

func (OpUnreachable) OpKind() OpKind { return OpKindUnreachable }

type OpNop struct{}

func (OpNop) OpKind() OpKind { return OpKindNop }

type OpBlock struct{ Type ir.BlockType }

func (OpBlock) OpKind() OpKind { return OpKindBlock }

type OpLoop struct{ Type ir.BlockType }

func (OpLoop) OpKind() OpKind { return OpKindLoop }

type OpIf struct{ Type ir.BlockType }

func (OpIf) OpKind() OpKind { return OpKindIf }

type OpElse struct{}

func (OpElse) OpKind() OpKind { return OpKindElse }

type OpEnd struct{}

func (OpEnd) OpKind() OpKind { return OpKindEnd }

// OpBr/OpBrIf name the enclosing control frame by relative depth: 0 is the
// innermost active block/loop/if, matching the Wasm `br`/`br_if` encoding.
type OpBr struct{ Depth uint32 }

func (OpBr) OpKind() OpKind { return OpKindBr }

type OpBrIf struct{ Depth uint32 }

func (OpBrIf) OpKind() OpKind { return OpKindBrIf }

type OpBrTable struct {
	Depths  []uint32
	Default uint32
}

func (OpBrTable) OpKind() OpKind { return OpKindBrTable }

type OpReturn struct{}

func (OpReturn) OpKind() OpKind { return OpKindReturn }

type OpCall struct{ FuncIndex Index }

func (OpCall) OpKind() OpKind { return OpKindCall }

type OpCallIndirect struct {
	TypeIndex  Index
	TableIndex Index
}

func (OpCallIndirect) OpKind() OpKind { return OpKindCallIndirect }

type OpDrop struct{}

func (OpDrop) OpKind() OpKind { return OpKindDrop }

type OpSelect struct{}

func (OpSelect) OpKind() OpKind { return OpKindSelect }

type OpLocalGet struct{ Index Index }

func (OpLocalGet) OpKind() OpKind { return OpKindLocalGet }

type OpLocalSet struct{ Index Index }

func (OpLocalSet) OpKind() OpKind { return OpKindLocalSet }

type OpLocalTee struct{ Index Index }

func (OpLocalTee) OpKind() OpKind { return OpKindLocalTee }

type OpGlobalGet struct{ Index Index }

func (OpGlobalGet) OpKind() OpKind { return OpKindGlobalGet }

type OpGlobalSet struct{ Index Index }

func (OpGlobalSet) OpKind() OpKind { return OpKindGlobalSet }

type OpConstI32 struct{ Value int32 }

func (OpConstI32) OpKind() OpKind { return OpKindConstI32 }

type OpConstI64 struct{ Value int64 }

func (OpConstI64) OpKind() OpKind { return OpKindConstI64 }

type OpConstF32 struct{ Value float32 }

func (OpConstF32) OpKind() OpKind { return OpKindConstF32 }

type OpConstF64 struct{ Value float64 }

func (OpConstF64) OpKind() OpKind { return OpKindConstF64 }

// OpNumeric covers every arithmetic/compare/convert opcode; Op selects the
// concrete operation and implies its arity via ir.NumericOp.IsUnary.
type OpNumeric struct{ Op ir.NumericOp }

func (OpNumeric) OpKind() OpKind { return OpKindNumeric }

type OpLoad struct {
	Type ir.MemType
	Arg  ir.MemoryArg
}

func (OpLoad) OpKind() OpKind { return OpKindLoad }

type OpStore struct {
	Type ir.MemType
	Arg  ir.MemoryArg
}

func (OpStore) OpKind() OpKind { return OpKindStore }

type OpMemorySize struct{}

func (OpMemorySize) OpKind() OpKind { return OpKindMemorySize }

type OpMemoryGrow struct{}

func (OpMemoryGrow) OpKind() OpKind { return OpKindMemoryGrow }
