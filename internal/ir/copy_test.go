package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeNoneWhenEveryPositionIsASelfMove(t *testing.T) {
	results := RegisterSlice{First: 0, Length: 3}
	inputs := []Provider{RegisterProvider(0), RegisterProvider(1), RegisterProvider(2)}

	copies := Analyze(results, inputs)

	require.Equal(t, CopyNone, copies.Form)
}

func TestAnalyzeSingleWhenExactlyOnePositionDiffers(t *testing.T) {
	results := RegisterSlice{First: 0, Length: 3}
	inputs := []Provider{RegisterProvider(0), RegisterProvider(9), RegisterProvider(2)}

	copies := Analyze(results, inputs)

	require.Equal(t, CopySingle, copies.Form)
	require.Equal(t, Register(1), copies.SingleResult)
	require.Equal(t, RegisterProvider(9), copies.SingleInput)
}

func TestAnalyzeSingleForAConstantInput(t *testing.T) {
	results := RegisterSlice{First: 0, Length: 1}
	inputs := []Provider{ConstProvider(5)}

	copies := Analyze(results, inputs)

	require.Equal(t, CopySingle, copies.Form)
	require.Equal(t, Register(0), copies.SingleResult)
	require.True(t, copies.SingleInput.IsConst())
}

// 6. Copy-many coalescing. With results = (R0,R1,R2,R3) and
// inputs = (R0,R3,R3,R3), the analyzer MUST emit
// CopyMany{results: (R1,R2), inputs: (R3,R3)} — the leading R0<-R0 and the
// trailing R3<-R3 self-moves are both stripped.
func TestAnalyzeManyTrimsLeadingAndTrailingSelfMovesButKeepsInteriorOnes(t *testing.T) {
	results := RegisterSlice{First: 0, Length: 4} // R0,R1,R2,R3
	inputs := []Provider{
		RegisterProvider(0), // self-move, stripped
		RegisterProvider(3),
		RegisterProvider(3),
		RegisterProvider(3), // self-move, stripped
	}

	copies := Analyze(results, inputs)

	require.Equal(t, CopyMany, copies.Form)
	require.Equal(t, RegisterSlice{First: 1, Length: 2}, copies.ManyResults)
	require.Equal(t, []Provider{RegisterProvider(3), RegisterProvider(3)}, copies.ManyInputs)
}

func TestAnalyzeManyPreservesInteriorSelfMoveBetweenTwoTrueCopies(t *testing.T) {
	// results = (R0,R1,R2), inputs = (R9, R1, R9): R1 is a self-move in the
	// middle, but it sits between two true copies, so it cannot be trimmed —
	// RegisterSlice can only represent one contiguous span.
	results := RegisterSlice{First: 0, Length: 3}
	inputs := []Provider{RegisterProvider(9), RegisterProvider(1), RegisterProvider(9)}

	copies := Analyze(results, inputs)

	require.Equal(t, CopyMany, copies.Form)
	require.Equal(t, RegisterSlice{First: 0, Length: 3}, copies.ManyResults)
	require.Equal(t, inputs, copies.ManyInputs)
}

func TestAnalyzePanicsOnLengthMismatch(t *testing.T) {
	results := RegisterSlice{First: 0, Length: 2}
	inputs := []Provider{RegisterProvider(0)}

	require.Panics(t, func() { Analyze(results, inputs) })
}
