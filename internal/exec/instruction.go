// Package exec defines the executable instruction set produced by
// internal/compiler: the same instruction shapes internal/ir emits, except
// every label use has been resolved to a signed pc-relative branch offset.
// Providers, provider slices, registers and register slices need no
// re-encoding at this stage — they already name entries in the module-scoped
// ir.ConstantPool and ir.ProviderSliceArena the dispatcher reads from
// directly, so this package imports ir for those value types rather than
// redefining them.
package exec

import (
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/trap"
)

// Kind discriminates the concrete Go type behind an Instruction. Numbered
// independently of ir.Kind: the two enumerations describe different stages
// and needn't stay in lockstep (KindBrTable here, for instance, is only the
// header — the per-case follow-ups compile down to ordinary Br*/Return
// instructions instead of getting their own Kind).
type Kind uint8

const (
	KindUnreachable Kind = iota
	KindTrap
	KindBinary
	KindUnary
	KindCopy
	KindCopyImm
	KindCopyMany
	KindBr
	KindBrEqz
	KindBrNez
	KindBrNezSingle
	KindBrNezMulti
	KindBrSingle
	KindBrMulti
	KindBrTable
	KindReturn
	KindReturnNez
	KindCall
	KindCallIndirect
	KindSelect
	KindLoad
	KindStore
	KindGlobalGet
	KindGlobalSet
	KindMemorySize
	KindMemoryGrow
)

// Instruction is an executable instruction: same shape as its ir counterpart,
// but with every ir.Label replaced by a signed branch offset relative to the
// instruction's own index in the function's instruction table.
type Instruction interface {
	Kind() Kind
}

type InstrUnreachable struct{}

func (InstrUnreachable) Kind() Kind { return KindUnreachable }

type InstrTrap struct{ Code trap.Code }

func (InstrTrap) Kind() Kind { return KindTrap }

type InstrBinary struct {
	Op     ir.NumericOp
	Result ir.Register
	X, Y   ir.Provider
}

func (InstrBinary) Kind() Kind { return KindBinary }

type InstrUnary struct {
	Op     ir.NumericOp
	Result ir.Register
	X      ir.Provider
}

func (InstrUnary) Kind() Kind { return KindUnary }

type InstrCopy struct{ Dst, Src ir.Register }

func (InstrCopy) Kind() Kind { return KindCopy }

type InstrCopyImm struct {
	Dst   ir.Register
	Input ir.ConstRef
}

func (InstrCopyImm) Kind() Kind { return KindCopyImm }

type InstrCopyMany struct {
	Results ir.RegisterSlice
	Inputs  ir.ProviderSlice
}

func (InstrCopyMany) Kind() Kind { return KindCopyMany }

// InstrBr branches unconditionally. Offset is added to the pc of this
// instruction to obtain the target pc.
type InstrBr struct{ Offset int32 }

func (InstrBr) Kind() Kind { return KindBr }

type InstrBrEqz struct {
	Condition ir.Register
	Offset    int32
}

func (InstrBrEqz) Kind() Kind { return KindBrEqz }

type InstrBrNez struct {
	Condition ir.Register
	Offset    int32
}

func (InstrBrNez) Kind() Kind { return KindBrNez }

type InstrBrNezSingle struct {
	Condition ir.Register
	Offset    int32
	Result    ir.Register
	Input     ir.Provider
}

func (InstrBrNezSingle) Kind() Kind { return KindBrNezSingle }

type InstrBrNezMulti struct {
	Condition ir.Register
	Offset    int32
	Results   ir.RegisterSlice
	Inputs    ir.ProviderSlice
}

func (InstrBrNezMulti) Kind() Kind { return KindBrNezMulti }

type InstrBrSingle struct {
	Offset int32
	Result ir.Register
	Input  ir.Provider
}

func (InstrBrSingle) Kind() Kind { return KindBrSingle }

// InstrBrMulti branches after copying Inputs into Results. Used both for a
// coalesced multi-register branch and, unconditionally, for every non-return
// br_table follow-up (those never run through copy coalescing, so Results and
// Inputs may be empty or contain positions that happen to be self-moves).
type InstrBrMulti struct {
	Offset  int32
	Results ir.RegisterSlice
	Inputs  ir.ProviderSlice
}

func (InstrBrMulti) Kind() Kind { return KindBrMulti }

// InstrBrTable is the header of a compiled br_table: it reads Index, clamps
// it to [0, NumTargets-1], and jumps to the (1+clamped index)'th instruction
// following it — that instruction is always an InstrBrMulti or an
// InstrReturn, compiled directly from the corresponding
// ir.BrTableTarget. NumTargets always includes the default case, so the
// follow-up table has exactly NumTargets entries.
type InstrBrTable struct {
	Index      ir.Register
	NumTargets uint32
}

func (InstrBrTable) Kind() Kind { return KindBrTable }

type InstrReturn struct{ Results ir.ProviderSlice }

func (InstrReturn) Kind() Kind { return KindReturn }

type InstrReturnNez struct {
	Condition ir.Register
	Results   ir.ProviderSlice
}

func (InstrReturnNez) Kind() Kind { return KindReturnNez }

type InstrCall struct {
	FunctionIndex ir.Index
	Params        ir.ProviderSlice
	Results       ir.RegisterSlice
}

func (InstrCall) Kind() Kind { return KindCall }

type InstrCallIndirect struct {
	TypeIndex  ir.Index
	TableIndex ir.Index
	TableSlot  ir.Provider
	Params     ir.ProviderSlice
	Results    ir.RegisterSlice
}

func (InstrCallIndirect) Kind() Kind { return KindCallIndirect }

type InstrSelect struct {
	Result    ir.Register
	X, Y      ir.Provider
	Condition ir.Provider
}

func (InstrSelect) Kind() Kind { return KindSelect }

type InstrLoad struct {
	Type    ir.MemType
	Result  ir.Register
	Pointer ir.Provider
	Offset  uint32
}

func (InstrLoad) Kind() Kind { return KindLoad }

type InstrStore struct {
	Type    ir.MemType
	Pointer ir.Provider
	Value   ir.Provider
	Offset  uint32
}

func (InstrStore) Kind() Kind { return KindStore }

type InstrGlobalGet struct {
	GlobalIndex ir.Index
	Result      ir.Register
}

func (InstrGlobalGet) Kind() Kind { return KindGlobalGet }

type InstrGlobalSet struct {
	GlobalIndex ir.Index
	Value       ir.Provider
}

func (InstrGlobalSet) Kind() Kind { return KindGlobalSet }

type InstrMemorySize struct{ Result ir.Register }

func (InstrMemorySize) Kind() Kind { return KindMemorySize }

type InstrMemoryGrow struct {
	Result ir.Register
	Delta  ir.Provider
}

func (InstrMemoryGrow) Kind() Kind { return KindMemoryGrow }

// FuncBody is the IR→Exec compiler's output for one function: its resolved
// instruction table plus the number of registers its frame window must
// reserve. The code map assigns the dense handle an embedder sees.
type FuncBody struct {
	Instructions []Instruction
	NumRegisters int
	NumParams    int
	NumResults   int
}
