package compiler

import (
	"testing"

	"github.com/regbytecode/rvm/internal/exec"
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/translator"
	"github.com/stretchr/testify/require"
)

func TestCompileResolvesForwardBranchOffset(t *testing.T) {
	labels := ir.NewLabelRegistry()
	l := labels.New()

	result := &translator.Result{
		Instructions: []ir.Instruction{
			ir.InstrBrEqz{Condition: 0, Target: l},
			ir.InstrReturn{},
			ir.InstrReturn{},
		},
		NumRegisters: 1,
	}
	labels.Pin(l, 2)

	fb, err := Compile(result, labels, 1, 0)
	require.NoError(t, err)
	require.Len(t, fb.Instructions, 3)

	brEqz := fb.Instructions[0].(exec.InstrBrEqz)
	require.Equal(t, int32(2), brEqz.Offset, "target index 2 minus own index 0")
}

func TestCompileResolvesBackwardBranchOffset(t *testing.T) {
	labels := ir.NewLabelRegistry()
	l := labels.New()
	labels.Pin(l, 0)

	result := &translator.Result{
		Instructions: []ir.Instruction{
			ir.InstrReturn{},
			ir.InstrBr{Target: l},
		},
		NumRegisters: 0,
	}

	fb, err := Compile(result, labels, 0, 0)
	require.NoError(t, err)

	br := fb.Instructions[1].(exec.InstrBr)
	require.Equal(t, int32(-1), br.Offset, "target index 0 minus own index 1")
}

func TestCompileExpandsBrTableIntoHeaderPlusOneFollowupPerTarget(t *testing.T) {
	labels := ir.NewLabelRegistry()
	branchTarget := labels.New()

	result := &translator.Result{
		Instructions: []ir.Instruction{
			ir.InstrBrTable{
				Index: 0,
				Targets: []ir.BrTableTarget{
					{IsReturn: false, Target: branchTarget, Dest: ir.RegisterSlice{}, Results: ir.ProviderSlice{}},
					{IsReturn: true, Results: ir.ProviderSlice{}},
				},
			},
			ir.InstrReturn{}, // index 1
		},
		NumRegisters: 1,
	}
	labels.Pin(branchTarget, 1)

	fb, err := Compile(result, labels, 1, 0)
	require.NoError(t, err)

	// header (index 0) + 2 targets (indices 1, 2) + the trailing InstrReturn
	// from the original IR (index 3).
	require.Len(t, fb.Instructions, 4)

	header := fb.Instructions[0].(exec.InstrBrTable)
	require.Equal(t, uint32(2), header.NumTargets)

	branchFollowup := fb.Instructions[1].(exec.InstrBrMulti)
	require.Equal(t, int32(2), branchFollowup.Offset, "own exec index 1 plus offset 2 lands on exec index 3, the original IR's trailing InstrReturn")

	_ = fb.Instructions[2].(exec.InstrReturn) // default case, compiled straight to Return
}
