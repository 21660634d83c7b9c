package interpreter

import (
	"context"
	"testing"

	"github.com/regbytecode/rvm/api"
	"github.com/regbytecode/rvm/internal/exec"
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/trap"
	"github.com/regbytecode/rvm/internal/wasm"
	"github.com/stretchr/testify/require"
)

// testEngine returns an Engine whose pools are visible to the test so it can
// hand-assemble exec.FuncBody values without going through the
// translator/compiler pipeline.
func testEngine() *Engine {
	e := NewEngine(Limits{InitialLen: 64, MaximumLen: 4096, MaximumRecursionDepth: 16})
	return e
}

func funcType(params, results int) *wasm.FunctionType {
	return &wasm.FunctionType{
		Params:  make([]api.ValueType, params),
		Results: make([]api.ValueType, results),
	}
}

func TestCallReturnsInternedConstant(t *testing.T) {
	e := testEngine()
	ref := e.consts.Alloc(42)
	results := e.arena.Alloc([]ir.Provider{ir.ConstProvider(ref)})

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{exec.InstrReturn{Results: results}},
		NumResults:   1,
	}
	h := e.code.Store(body)

	fn := &wasm.FunctionInstance{Type: funcType(0, 1), IsHost: false, Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	out, err := e.Call(context.Background(), instance, fn, nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, out)
}

func TestCallBinaryAddOnParams(t *testing.T) {
	e := testEngine()
	results := e.arena.Alloc([]ir.Provider{ir.RegisterProvider(2)})

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrBinary{Op: ir.OpI32Add, Result: 2, X: ir.RegisterProvider(0), Y: ir.RegisterProvider(1)},
			exec.InstrReturn{Results: results},
		},
		NumRegisters: 3,
		NumParams:    2,
		NumResults:   1,
	}
	h := e.code.Store(body)

	fn := &wasm.FunctionInstance{Type: funcType(2, 1), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	out, err := e.Call(context.Background(), instance, fn, []uint64{3, 4})
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, out)
}

func TestUnconditionalBranchSkipsDeadCode(t *testing.T) {
	e := testEngine()
	ref := e.consts.Alloc(9)
	results := e.arena.Alloc([]ir.Provider{ir.ConstProvider(ref)})

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrBr{Offset: 2},          // index 0: jump to index 2
			exec.InstrTrap{Code: trap.Unreachable}, // index 1: dead
			exec.InstrReturn{Results: results},     // index 2
		},
		NumResults: 1,
	}
	h := e.code.Store(body)

	fn := &wasm.FunctionInstance{Type: funcType(0, 1), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	out, err := e.Call(context.Background(), instance, fn, nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{9}, out)
}

func TestConditionalBranchWithFusedSingleCopy(t *testing.T) {
	e := testEngine()
	trueRef := e.consts.Alloc(111)
	falseResults := e.arena.Alloc([]ir.Provider{ir.ConstProvider(e.consts.Alloc(222))})

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			// if reg0 != 0: copy trueRef into reg1, branch to index 3.
			exec.InstrBrNezSingle{Condition: 0, Offset: 3, Result: 1, Input: ir.ConstProvider(trueRef)},
			exec.InstrReturn{Results: falseResults}, // index 1: condition false path
			exec.InstrTrap{Code: trap.Unreachable},  // index 2: dead, never reached on the true path
			exec.InstrReturn{Results: e.arena.Alloc([]ir.Provider{ir.RegisterProvider(1)})}, // index 3
		},
		NumRegisters: 2,
		NumParams:    1,
		NumResults:   1,
	}
	h := e.code.Store(body)

	fn := &wasm.FunctionInstance{Type: funcType(1, 1), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	out, err := e.Call(context.Background(), instance, fn, []uint64{1})
	require.NoError(t, err)
	require.Equal(t, []uint64{111}, out)

	out, err = e.Call(context.Background(), instance, fn, []uint64{0})
	require.NoError(t, err)
	require.Equal(t, []uint64{222}, out)
}

func TestNestedCallWritesIntoCallerWindow(t *testing.T) {
	e := testEngine()

	// fn1(x) = x + 1
	incResults := e.arena.Alloc([]ir.Provider{ir.RegisterProvider(1)})
	fn1Body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrBinary{Op: ir.OpI32Add, Result: 1, X: ir.RegisterProvider(0), Y: ir.ConstProvider(e.consts.Alloc(1))},
			exec.InstrReturn{Results: incResults},
		},
		NumRegisters: 2, NumParams: 1, NumResults: 1,
	}
	h1 := e.code.Store(fn1Body)

	// fn0() = fn1(41)
	callParams := e.arena.Alloc([]ir.Provider{ir.ConstProvider(e.consts.Alloc(41))})
	fn0Results := e.arena.Alloc([]ir.Provider{ir.RegisterProvider(0)})
	fn0Body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrCall{FunctionIndex: 1, Params: callParams, Results: ir.RegisterSlice{First: 0, Length: 1}},
			exec.InstrReturn{Results: fn0Results},
		},
		NumRegisters: 1, NumResults: 1,
	}
	h0 := e.code.Store(fn0Body)

	fn0 := &wasm.FunctionInstance{Type: funcType(0, 1), Body: h0}
	fn1 := &wasm.FunctionInstance{Type: funcType(1, 1), Body: h1}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn0, fn1}}
	fn0.Instance, fn1.Instance = instance, instance

	out, err := e.Call(context.Background(), instance, fn0, nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, out)
}

func TestCallIndirectTypeMismatchTraps(t *testing.T) {
	e := testEngine()

	calleeType := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	callee := &wasm.FunctionInstance{Type: &calleeType, Body: e.code.Store(&exec.FuncBody{
		Instructions: []exec.Instruction{exec.InstrReturn{}},
	})}

	module := &wasm.Module{TypeSection: []wasm.FunctionType{
		{Params: nil, Results: []api.ValueType{api.ValueTypeI32}}, // index 0: the (mismatching) declared call_indirect signature
	}}
	e.types.Intern(&module.TypeSection[0])
	e.types.Intern(callee.Type)

	table := &wasm.TableInstance{References: []*wasm.FunctionInstance{callee}}
	instance := &wasm.Instance{Tables: []*wasm.TableInstance{table}}
	callee.Instance = instance

	callerBody := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrCallIndirect{
				TypeIndex: 0, TableIndex: 0,
				TableSlot: ir.ConstProvider(e.consts.Alloc(0)),
				Results:   ir.RegisterSlice{},
			},
			exec.InstrReturn{},
		},
	}
	caller := &wasm.FunctionInstance{Module: module, Type: funcType(0, 0), Body: e.code.Store(callerBody), Instance: instance}

	_, err := e.Call(context.Background(), instance, caller, nil)
	require.Error(t, err)
	te, ok := err.(*trap.Error)
	require.True(t, ok)
	require.Equal(t, trap.BadSignature, te.Code)
}

func TestIntegerDivisionByZeroTraps(t *testing.T) {
	e := testEngine()
	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrBinary{Op: ir.OpI32DivS, Result: 0, X: ir.RegisterProvider(0), Y: ir.RegisterProvider(1)},
			exec.InstrReturn{Results: e.arena.Alloc([]ir.Provider{ir.RegisterProvider(0)})},
		},
		NumRegisters: 2, NumParams: 2, NumResults: 1,
	}
	h := e.code.Store(body)
	fn := &wasm.FunctionInstance{Type: funcType(2, 1), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	_, err := e.Call(context.Background(), instance, fn, []uint64{7, 0})
	require.Error(t, err)
	te, ok := err.(*trap.Error)
	require.True(t, ok)
	require.Equal(t, trap.IntegerDivisionByZero, te.Code)
}

func TestDeepRecursionTrapsStackOverflow(t *testing.T) {
	e := NewEngine(Limits{InitialLen: 64, MaximumLen: 1 << 16, MaximumRecursionDepth: 8})

	// fn0() = fn0(): infinite recursion, bounded by FrameStack.maxDepth.
	var fn0 wasm.FunctionInstance
	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrCall{FunctionIndex: 0, Results: ir.RegisterSlice{}},
			exec.InstrReturn{},
		},
	}
	fn0.Type = funcType(0, 0)
	fn0.Body = e.code.Store(body)
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{&fn0}}
	fn0.Instance = instance

	_, err := e.Call(context.Background(), instance, &fn0, nil)
	require.Error(t, err)
	te, ok := err.(*trap.Error)
	require.True(t, ok)
	require.Equal(t, trap.StackOverflow, te.Code)
}

func TestMemoryLoadStoreRoundTrip(t *testing.T) {
	e := testEngine()
	mem := wasm.NewMemoryInstance(1, 1)
	instance := &wasm.Instance{Memory: mem}

	storeVal := ir.ConstProvider(e.consts.Alloc(0xdeadbeef))
	addr := ir.ConstProvider(e.consts.Alloc(8))

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrStore{Type: ir.MemI32, Pointer: addr, Value: storeVal},
			exec.InstrLoad{Type: ir.MemI32, Result: 0, Pointer: addr},
			exec.InstrReturn{Results: e.arena.Alloc([]ir.Provider{ir.RegisterProvider(0)})},
		},
		NumRegisters: 1, NumResults: 1,
	}
	fn := &wasm.FunctionInstance{Type: funcType(0, 1), Body: e.code.Store(body), Instance: instance}
	instance.Functions = []*wasm.FunctionInstance{fn}

	out, err := e.Call(context.Background(), instance, fn, nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xdeadbeef}, out)
}

func TestMemoryOutOfBoundsTraps(t *testing.T) {
	e := testEngine()
	mem := wasm.NewMemoryInstance(1, 1)
	instance := &wasm.Instance{Memory: mem}

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrLoad{Type: ir.MemI32, Result: 0, Pointer: ir.ConstProvider(e.consts.Alloc(1 << 20))},
			exec.InstrReturn{},
		},
	}
	fn := &wasm.FunctionInstance{Type: funcType(0, 0), Body: e.code.Store(body), Instance: instance}
	instance.Functions = []*wasm.FunctionInstance{fn}

	_, err := e.Call(context.Background(), instance, fn, nil)
	require.Error(t, err)
	te, ok := err.(*trap.Error)
	require.True(t, ok)
	require.Equal(t, trap.MemoryOutOfBounds, te.Code)
}

func TestGlobalGetSetRoundTrip(t *testing.T) {
	e := testEngine()
	g := &wasm.GlobalInstance{Type: wasm.GlobalType{ValType: api.ValueTypeI32, Mutable: true}}
	instance := &wasm.Instance{Globals: []*wasm.GlobalInstance{g}}

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrGlobalSet{GlobalIndex: 0, Value: ir.ConstProvider(e.consts.Alloc(77))},
			exec.InstrGlobalGet{GlobalIndex: 0, Result: 0},
			exec.InstrReturn{Results: e.arena.Alloc([]ir.Provider{ir.RegisterProvider(0)})},
		},
		NumRegisters: 1, NumResults: 1,
	}
	fn := &wasm.FunctionInstance{Type: funcType(0, 1), Body: e.code.Store(body), Instance: instance}
	instance.Functions = []*wasm.FunctionInstance{fn}

	out, err := e.Call(context.Background(), instance, fn, nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{77}, out)
	require.Equal(t, uint64(77), g.Val)
}

func TestBrTableDispatchesByIndexAndClampsOutOfRange(t *testing.T) {
	e := testEngine()

	results := func(v uint64) ir.ProviderSlice {
		return e.arena.Alloc([]ir.Provider{ir.ConstProvider(e.consts.Alloc(v))})
	}

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrBrTable{Index: 0, NumTargets: 3}, // index 0: header
			exec.InstrReturn{Results: results(100)},    // index 1: case 0
			exec.InstrReturn{Results: results(200)},    // index 2: case 1
			exec.InstrReturn{Results: results(300)},    // index 3: case 2 (default)
		},
		NumRegisters: 1, NumParams: 1, NumResults: 1,
	}
	h := e.code.Store(body)
	fn := &wasm.FunctionInstance{Type: funcType(1, 1), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	for _, tc := range []struct {
		index uint64
		want  uint64
	}{
		{0, 100},
		{1, 200},
		{2, 300},
		{99, 300}, // out of range clamps to the default (last) case
	} {
		out, err := e.Call(context.Background(), instance, fn, []uint64{tc.index})
		require.NoError(t, err)
		require.Equal(t, []uint64{tc.want}, out, "index %d", tc.index)
	}
}

func TestCopyManyMovesContiguousRange(t *testing.T) {
	e := testEngine()
	inputs := e.arena.Alloc([]ir.Provider{ir.RegisterProvider(0), ir.RegisterProvider(1)})
	results := e.arena.Alloc([]ir.Provider{ir.RegisterProvider(2), ir.RegisterProvider(3)})

	body := &exec.FuncBody{
		Instructions: []exec.Instruction{
			exec.InstrCopyMany{Results: ir.RegisterSlice{First: 2, Length: 2}, Inputs: inputs},
			exec.InstrReturn{Results: results},
		},
		NumRegisters: 4, NumParams: 2, NumResults: 2,
	}
	h := e.code.Store(body)
	fn := &wasm.FunctionInstance{Type: funcType(2, 2), Body: h}
	instance := &wasm.Instance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Instance = instance

	out, err := e.Call(context.Background(), instance, fn, []uint64{5, 6})
	require.NoError(t, err)
	require.Equal(t, []uint64{5, 6}, out)
}

func TestHostFunctionCallRoundTrip(t *testing.T) {
	e := testEngine()
	host := wasm.HostFunctionFunc(func(_ context.Context, _ *wasm.Instance, stack []uint64) {
		stack[0] = stack[0] * 2
	})
	fn := &wasm.FunctionInstance{Type: funcType(1, 1), IsHost: true, Host: host}
	instance := &wasm.Instance{}

	out, err := e.Call(context.Background(), instance, fn, []uint64{21})
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, out)
}
