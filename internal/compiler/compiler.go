// Package compiler lowers a translated function body's []ir.Instruction into
// an exec.FuncBody: it resolves every ir.Label use to a signed, pc-relative
// branch offset and expands each ir.InstrBrTable into its header plus exactly
// one follow-up instruction per case, as spec.md §4.4/§4.6 describe. Registers,
// providers and provider slices carry over unchanged — the translator already
// finalized register allocation and interned every constant/provider slice
// into the module-scoped pools the dispatcher reads at run time, so there is
// nothing left for this stage to remap.
package compiler

import (
	"fmt"

	"github.com/regbytecode/rvm/internal/exec"
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/translator"
)

// Compile lowers one translated function body into its executable form.
// labels must be the same registry the translator used to allocate/pin the
// instructions' labels.
//
// A label is pinned to a position in the IR instruction stream, but
// ir.InstrBrTable expands into NumTargets+1 executable instructions for the
// one IR slot it occupies — so IR index and executable pc diverge as soon as
// a br_table precedes a branch. irExecPC maps every IR index (plus one
// past-the-end entry, for labels pinned to the function's implicit fallout)
// to the executable pc its first compiled instruction occupies, computed in
// a pre-pass before any offset is resolved.
func Compile(result *translator.Result, labels *ir.LabelRegistry, numParams, numResults int) (*exec.FuncBody, error) {
	irExecPC := make([]uint32, len(result.Instructions)+1)
	pc := uint32(0)
	for idx, instr := range result.Instructions {
		irExecPC[idx] = pc
		pc += execSize(instr)
	}
	irExecPC[len(result.Instructions)] = pc

	c := &compilerState{labels: labels, irExecPC: irExecPC}
	for _, instr := range result.Instructions {
		if err := c.lower(instr); err != nil {
			return nil, err
		}
	}
	return &exec.FuncBody{
		Instructions: c.out,
		NumRegisters: result.NumRegisters,
		NumParams:    numParams,
		NumResults:   numResults,
	}, nil
}

// execSize reports how many executable instructions an IR instruction lowers
// to: 1, except InstrBrTable which expands to its header plus one follow-up
// per target.
func execSize(instr ir.Instruction) uint32 {
	if bt, ok := instr.(ir.InstrBrTable); ok {
		return uint32(1 + len(bt.Targets))
	}
	return 1
}

type compilerState struct {
	labels   *ir.LabelRegistry
	irExecPC []uint32
	out      []exec.Instruction
}

func (c *compilerState) pc() uint32 { return uint32(len(c.out)) }

func (c *compilerState) emit(i exec.Instruction) { c.out = append(c.out, i) }

// offset computes the signed branch offset from the instruction about to be
// emitted at index c.pc() to l's pinned target, translated from the target's
// IR index to its executable pc via irExecPC. Every label reachable from
// finished IR must already be pinned — see ir.LabelRegistry.Pin's invariant.
func (c *compilerState) offset(l ir.Label) int32 {
	target := int64(c.irExecPC[c.labels.Target(l)])
	return int32(target - int64(c.pc()))
}

func (c *compilerState) lower(instr ir.Instruction) error {
	switch i := instr.(type) {
	case ir.InstrUnreachable:
		c.emit(exec.InstrUnreachable{})
	case ir.InstrTrap:
		c.emit(exec.InstrTrap{Code: i.Code})
	case ir.InstrBinary:
		c.emit(exec.InstrBinary{Op: i.Op, Result: i.Result, X: i.X, Y: i.Y})
	case ir.InstrUnary:
		c.emit(exec.InstrUnary{Op: i.Op, Result: i.Result, X: i.X})
	case ir.InstrCopy:
		c.emit(exec.InstrCopy{Dst: i.Dst, Src: i.Src})
	case ir.InstrCopyImm:
		c.emit(exec.InstrCopyImm{Dst: i.Dst, Input: i.Input})
	case ir.InstrCopyMany:
		c.emit(exec.InstrCopyMany{Results: i.Results, Inputs: i.Inputs})
	case ir.InstrBr:
		c.emit(exec.InstrBr{Offset: c.offset(i.Target)})
	case ir.InstrBrEqz:
		c.emit(exec.InstrBrEqz{Condition: i.Condition, Offset: c.offset(i.Target)})
	case ir.InstrBrNez:
		c.emit(exec.InstrBrNez{Condition: i.Condition, Offset: c.offset(i.Target)})
	case ir.InstrBrNezSingle:
		c.emit(exec.InstrBrNezSingle{Condition: i.Condition, Offset: c.offset(i.Target), Result: i.Result, Input: i.Input})
	case ir.InstrBrNezMulti:
		c.emit(exec.InstrBrNezMulti{Condition: i.Condition, Offset: c.offset(i.Target), Results: i.Results, Inputs: i.Inputs})
	case ir.InstrBrSingle:
		c.emit(exec.InstrBrSingle{Offset: c.offset(i.Target), Result: i.Result, Input: i.Input})
	case ir.InstrBrMulti:
		c.emit(exec.InstrBrMulti{Offset: c.offset(i.Target), Results: i.Results, Inputs: i.Inputs})
	case ir.InstrBrTable:
		c.lowerBrTable(i)
	case ir.InstrReturn:
		c.emit(exec.InstrReturn{Results: i.Results})
	case ir.InstrReturnNez:
		c.emit(exec.InstrReturnNez{Condition: i.Condition, Results: i.Results})
	case ir.InstrCall:
		c.emit(exec.InstrCall{FunctionIndex: i.FunctionIndex, Params: i.Params, Results: i.Results})
	case ir.InstrCallIndirect:
		c.emit(exec.InstrCallIndirect{
			TypeIndex: i.TypeIndex, TableIndex: i.TableIndex, TableSlot: i.TableSlot,
			Params: i.Params, Results: i.Results,
		})
	case ir.InstrSelect:
		c.emit(exec.InstrSelect{Result: i.Result, X: i.X, Y: i.Y, Condition: i.Condition})
	case ir.InstrLoad:
		c.emit(exec.InstrLoad{Type: i.Type, Result: i.Result, Pointer: i.Pointer, Offset: i.Offset})
	case ir.InstrStore:
		c.emit(exec.InstrStore{Type: i.Type, Pointer: i.Pointer, Value: i.Value, Offset: i.Offset})
	case ir.InstrGlobalGet:
		c.emit(exec.InstrGlobalGet{GlobalIndex: i.GlobalIndex, Result: i.Result})
	case ir.InstrGlobalSet:
		c.emit(exec.InstrGlobalSet{GlobalIndex: i.GlobalIndex, Value: i.Value})
	case ir.InstrMemorySize:
		c.emit(exec.InstrMemorySize{Result: i.Result})
	case ir.InstrMemoryGrow:
		c.emit(exec.InstrMemoryGrow{Result: i.Result, Delta: i.Delta})
	default:
		return fmt.Errorf("compiler: unhandled ir instruction %T", instr)
	}
	return nil
}

// lowerBrTable emits the BrTable header followed by exactly len(i.Targets)
// follow-up instructions, one per case (including the trailing default), each
// an InstrBrMulti or InstrReturn compiled straight from its ir.BrTableTarget.
// The header's own pc is fixed before any follow-up is emitted, so the
// dispatcher's "jump to header_pc + 1 + case" arithmetic lines up with where
// this loop places them.
func (c *compilerState) lowerBrTable(i ir.InstrBrTable) {
	c.emit(exec.InstrBrTable{Index: i.Index, NumTargets: uint32(len(i.Targets))})
	for _, t := range i.Targets {
		if t.IsReturn {
			c.emit(exec.InstrReturn{Results: t.Results})
			continue
		}
		c.emit(exec.InstrBrMulti{Offset: c.offset(t.Target), Results: t.Dest, Inputs: t.Results})
	}
}
