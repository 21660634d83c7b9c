package ir

import "github.com/regbytecode/rvm/internal/trap"

// Kind discriminates the concrete Go type behind an Instruction.
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

	kindEnd
)

var kindNames = [...]string{
	KindUnreachable:  "Unreachable",
	KindTrap:         "Trap",
	KindBinary:       "Binary",
	KindUnary:        "Unary",
	KindCopy:         "Copy",
	KindCopyImm:      "CopyImm",
	KindCopyMany:     "CopyMany",
	KindBr:           "Br",
	KindBrEqz:        "BrEqz",
	KindBrNez:        "BrNez",
	KindBrNezSingle:  "BrNezSingle",
	KindBrNezMulti:   "BrNezMulti",
	KindBrSingle:     "BrSingle",
	KindBrMulti:      "BrMulti",
	KindBrTable:      "BrTable",
	KindReturn:       "Return",
	KindReturnNez:    "ReturnNez",
	KindCall:         "Call",
	KindCallIndirect: "CallIndirect",
	KindSelect:       "Select",
	KindLoad:         "Load",
	KindStore:        "Store",
	KindGlobalGet:    "GlobalGet",
	KindGlobalSet:    "GlobalSet",
	KindMemorySize:   "MemorySize",
	KindMemoryGrow:   "MemoryGrow",
}

// String implements fmt.Stringer so every Kind has a well-defined name; a
// value outside the enumeration reports "unknown".
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Instruction is an IR instruction: a symbolic register-machine op whose
// branch targets are still unresolved Labels and whose operands are IR-level
// Registers/Providers, not yet interned through an executable arena.
type Instruction interface {
	Kind() Kind
}

// MemType selects the width and sign-extension behavior of a memory access.
type MemType uint8

const (
	MemI32 MemType = iota
	MemI64
	MemF32
	MemF64
	MemI32Load8S
	MemI32Load8U
	MemI32Load16S
	MemI32Load16U
	MemI64Load8S
	MemI64Load8U
	MemI64Load16S
	MemI64Load16U
	MemI64Load32S
	MemI64Load32U
	MemI32Store8
	MemI32Store16
	MemI64Store8
	MemI64Store16
	MemI64Store32
)

// InstrUnreachable models a Wasm `unreachable`: always traps.
type InstrUnreachable struct{}

func (InstrUnreachable) Kind() Kind { return KindUnreachable }

// InstrTrap is emitted in place of a constant-folded expression that would
// have trapped (e.g. `i32.const 1 / i32.const 0`); it preserves dynamic trap
// semantics instead of silently discarding the code.
type InstrTrap struct {
	Code trap.Code
}

func (InstrTrap) Kind() Kind { return KindTrap }

// InstrBinary computes Op(X, Y) into Result.
type InstrBinary struct {
	Op     NumericOp
	Result Register
	X, Y   Provider
}

func (InstrBinary) Kind() Kind { return KindBinary }

// InstrUnary computes Op(X) into Result.
type InstrUnary struct {
	Op     NumericOp
	Result Register
	X      Provider
}

func (InstrUnary) Kind() Kind { return KindUnary }

// InstrCopy moves a single register.
type InstrCopy struct {
	Dst Register
	Src Register
}

func (InstrCopy) Kind() Kind { return KindCopy }

// InstrCopyImm moves a constant into a register.
type InstrCopyImm struct {
	Dst   Register
	Input ConstRef
}

func (InstrCopyImm) Kind() Kind { return KindCopyImm }

// InstrCopyMany moves a contiguous range of providers into a contiguous range
// of result registers. Produced only by the copy analyzer, which guarantees
// Results and Inputs have equal, non-zero length and that both ends contain a
// true copy.
type InstrCopyMany struct {
	Results RegisterSlice
	Inputs  ProviderSlice
}

func (InstrCopyMany) Kind() Kind { return KindCopyMany }

// InstrBr is an unconditional branch to Target.
type InstrBr struct {
	Target Label
}

func (InstrBr) Kind() Kind { return KindBr }

// InstrBrEqz branches to Target when Condition == 0.
type InstrBrEqz struct {
	Condition Register
	Target    Label
}

func (InstrBrEqz) Kind() Kind { return KindBrEqz }

// InstrBrNez branches to Target when Condition != 0.
type InstrBrNez struct {
	Condition Register
	Target    Label
}

func (InstrBrNez) Kind() Kind { return KindBrNez }

// InstrBrNezSingle is InstrBrNez fused with a single-register copy performed
// before the branch is taken.
type InstrBrNezSingle struct {
	Condition Register
	Target    Label
	Result    Register
	Input     Provider
}

func (InstrBrNezSingle) Kind() Kind { return KindBrNezSingle }

// InstrBrNezMulti is InstrBrNez fused with a CopyMany-shaped range copy
// performed before the branch is taken.
type InstrBrNezMulti struct {
	Condition Register
	Target    Label
	Results   RegisterSlice
	Inputs    ProviderSlice
}

func (InstrBrNezMulti) Kind() Kind { return KindBrNezMulti }

// InstrBrSingle is InstrBr fused with a single-register copy performed before
// the (always-taken) branch.
type InstrBrSingle struct {
	Target Label
	Result Register
	Input  Provider
}

func (InstrBrSingle) Kind() Kind { return KindBrSingle }

// InstrBrMulti is InstrBr fused with a CopyMany-shaped range copy performed
// before the (always-taken) branch.
type InstrBrMulti struct {
	Target  Label
	Results RegisterSlice
	Inputs  ProviderSlice
}

func (InstrBrMulti) Kind() Kind { return KindBrMulti }

// BrTableTarget is one case of a BrTable: either a branch to Target (copying
// Results into Dest first) or, when IsReturn is set, a return of Results from
// the function itself (Dest unused). Every case shares the same Results
// arity, since a br_table's targets are all branched to with the same set of
// operand-stack values.
type BrTableTarget struct {
	IsReturn bool
	Target   Label
	Dest     RegisterSlice
	Results  ProviderSlice
}

// InstrBrTable selects a case by Index, clamping out-of-range indices to the
// default (last) target.
type InstrBrTable struct {
	Index   Register
	Targets []BrTableTarget // last entry is the default case
}

func (InstrBrTable) Kind() Kind { return KindBrTable }

// InstrReturn returns Results from the current function.
type InstrReturn struct {
	Results ProviderSlice
}

func (InstrReturn) Kind() Kind { return KindReturn }

// InstrReturnNez is InstrReturn guarded by Condition != 0; used when a
// branch's target is the function body itself (an unconditional branch
// degenerates straight to InstrReturn instead).
type InstrReturnNez struct {
	Condition Register
	Results   ProviderSlice
}

func (InstrReturnNez) Kind() Kind { return KindReturnNez }

// InstrCall invokes FunctionIndex with Params, writing results into Results.
type InstrCall struct {
	FunctionIndex Index
	Params        ProviderSlice
	Results       RegisterSlice
}

func (InstrCall) Kind() Kind { return KindCall }

// InstrCallIndirect invokes the function referenced by table TableIndex at
// dynamic index TableSlot, checked against TypeIndex's signature.
type InstrCallIndirect struct {
	TypeIndex  Index
	TableIndex Index
	TableSlot  Provider
	Params     ProviderSlice
	Results    RegisterSlice
}

func (InstrCallIndirect) Kind() Kind { return KindCallIndirect }

// InstrSelect picks X or Y based on whether Condition != 0.
type InstrSelect struct {
	Result    Register
	X, Y      Provider
	Condition Provider
}

func (InstrSelect) Kind() Kind { return KindSelect }

// InstrLoad loads Type from the default memory at Pointer+Offset into Result.
type InstrLoad struct {
	Type    MemType
	Result  Register
	Pointer Provider
	Offset  uint32
}

func (InstrLoad) Kind() Kind { return KindLoad }

// InstrStore stores Value (Type-narrowed) into the default memory at
// Pointer+Offset.
type InstrStore struct {
	Type    MemType
	Pointer Provider
	Value   Provider
	Offset  uint32
}

func (InstrStore) Kind() Kind { return KindStore }

// InstrGlobalGet reads GlobalIndex into Result.
type InstrGlobalGet struct {
	GlobalIndex Index
	Result      Register
}

func (InstrGlobalGet) Kind() Kind { return KindGlobalGet }

// InstrGlobalSet writes Value into GlobalIndex.
type InstrGlobalSet struct {
	GlobalIndex Index
	Value       Provider
}

func (InstrGlobalSet) Kind() Kind { return KindGlobalSet }

// InstrMemorySize writes the default memory's size, in pages, into Result.
type InstrMemorySize struct {
	Result Register
}

func (InstrMemorySize) Kind() Kind { return KindMemorySize }

// InstrMemoryGrow grows the default memory by Delta pages, writing the
// previous size (in pages), or -1 on failure, into Result.
type InstrMemoryGrow struct {
	Result Register
	Delta  Provider
}

func (InstrMemoryGrow) Kind() Kind { return KindMemoryGrow }
