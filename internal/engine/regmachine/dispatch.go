package interpreter

import (
	"context"
	"fmt"

	"github.com/regbytecode/rvm/internal/exec"
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/numeric"
	"github.com/regbytecode/rvm/internal/trap"
	"github.com/regbytecode/rvm/internal/wasm"
)

// noCallerDest marks a Frame whose results are delivered to the top-level
// Call's own result buffer rather than into a caller's register window.
const noCallerDest = -1

// callEngine is the mutable state of one embedder-facing Call. It is never
// shared across concurrent calls; Engine itself only guards the pools every
// callEngine reads from (constants, provider slices, types, compiled code).
type callEngine struct {
	engine     *Engine
	values     *ValueStack
	frames     *FrameStack
	topResults []uint64
}

func (ce *callEngine) callTop(ctx context.Context, instance *wasm.Instance, fn *wasm.FunctionInstance, params []uint64, results []uint64) {
	ce.topResults = results
	ce.call(ctx, fn, params, noCallerDest, len(results))
}

// call invokes fn with params, writing its results either into the caller's
// register window at resultsDest (when dest >= 0) or into ce.topResults
// (when dest == noCallerDest).
func (ce *callEngine) call(ctx context.Context, fn *wasm.FunctionInstance, params []uint64, resultsDest int, numResults int) {
	if fn.IsHost {
		ce.callHost(ctx, fn, params, resultsDest, numResults)
		return
	}

	body := ce.engine.code.Resolve(fn.Body)
	region, trapErr := ce.values.ExtendBy(body.NumRegisters)
	if trapErr != nil {
		panic(trapErr)
	}
	window := ce.values.Window(region)
	copy(window[:len(params)], params)

	frame := &Frame{
		Region:      region,
		ResultsDest: resultsDest,
		NumResults:  numResults,
		Instance:    fn.Instance,
		Module:      fn.Module,
		Body:        body,
	}
	if trapErr := ce.frames.Push(frame); trapErr != nil {
		ce.values.Shrink(region.Start)
		panic(trapErr)
	}

	ce.run(ctx, frame)

	ce.frames.Pop()
	ce.values.Shrink(region.Start)
}

// callHost invokes a host-bound function through a scratch buffer sized to
// the larger of its param/result count, per spec.md §4.7.
func (ce *callEngine) callHost(ctx context.Context, fn *wasm.FunctionInstance, params []uint64, resultsDest int, numResults int) {
	scratchLen := len(params)
	if numResults > scratchLen {
		scratchLen = numResults
	}
	scratch := make([]uint64, scratchLen)
	copy(scratch, params)
	fn.Host.Call(ctx, fn.Instance, scratch)
	ce.deliverValues(resultsDest, scratch[:numResults])
}

// run executes frame's instructions until it returns or traps. A trap is
// raised as a panic(*trap.Error) and unwinds straight through every nested
// run/call frame to the single recover in Engine.Call.
func (ce *callEngine) run(ctx context.Context, frame *Frame) {
	body := frame.Body
	consts := ce.engine.consts
	arena := ce.engine.arena

	readProvider := func(window []uint64, p ir.Provider) uint64 {
		if p.IsConst() {
			return consts.Resolve(p.ConstRef())
		}
		return window[p.Register()]
	}
	readSlice := func(window []uint64, s ir.ProviderSlice) []uint64 {
		providers := arena.Resolve(s)
		out := make([]uint64, len(providers))
		for i, p := range providers {
			out[i] = readProvider(window, p)
		}
		return out
	}

	for {
		window := ce.values.Window(frame.Region)
		pc := frame.PC
		instr := body.Instructions[pc]

		switch i := instr.(type) {
		case exec.InstrUnreachable:
			panic(trap.New(trap.Unreachable))
		case exec.InstrTrap:
			panic(trap.New(i.Code))

		case exec.InstrBinary:
			v, trapErr := numeric.EvalBinary(i.Op, readProvider(window, i.X), readProvider(window, i.Y))
			if trapErr != nil {
				panic(trapErr)
			}
			window[i.Result] = v
			frame.PC = pc + 1

		case exec.InstrUnary:
			v, trapErr := numeric.EvalUnary(i.Op, readProvider(window, i.X))
			if trapErr != nil {
				panic(trapErr)
			}
			window[i.Result] = v
			frame.PC = pc + 1

		case exec.InstrCopy:
			window[i.Dst] = window[i.Src]
			frame.PC = pc + 1

		case exec.InstrCopyImm:
			window[i.Dst] = consts.Resolve(i.Input)
			frame.PC = pc + 1

		case exec.InstrCopyMany:
			vals := readSlice(window, i.Inputs)
			for idx, v := range vals {
				window[i.Results.At(idx)] = v
			}
			frame.PC = pc + 1

		case exec.InstrBr:
			frame.PC = pc + int(i.Offset)

		case exec.InstrBrEqz:
			if window[i.Condition] == 0 {
				frame.PC = pc + int(i.Offset)
			} else {
				frame.PC = pc + 1
			}

		case exec.InstrBrNez:
			if window[i.Condition] != 0 {
				frame.PC = pc + int(i.Offset)
			} else {
				frame.PC = pc + 1
			}

		case exec.InstrBrNezSingle:
			if window[i.Condition] != 0 {
				v := readProvider(window, i.Input)
				window[i.Result] = v
				frame.PC = pc + int(i.Offset)
			} else {
				frame.PC = pc + 1
			}

		case exec.InstrBrNezMulti:
			if window[i.Condition] != 0 {
				vals := readSlice(window, i.Inputs)
				for idx, v := range vals {
					window[i.Results.At(idx)] = v
				}
				frame.PC = pc + int(i.Offset)
			} else {
				frame.PC = pc + 1
			}

		case exec.InstrBrSingle:
			v := readProvider(window, i.Input)
			window[i.Result] = v
			frame.PC = pc + int(i.Offset)

		case exec.InstrBrMulti:
			vals := readSlice(window, i.Inputs)
			for idx, v := range vals {
				window[i.Results.At(idx)] = v
			}
			frame.PC = pc + int(i.Offset)

		case exec.InstrBrTable:
			idx := uint32(window[i.Index])
			if idx >= i.NumTargets {
				idx = i.NumTargets - 1
			}
			frame.PC = pc + 1 + int(idx)

		case exec.InstrReturn:
			ce.deliverValues(frame.ResultsDest, readSlice(window, i.Results))
			return

		case exec.InstrReturnNez:
			if window[i.Condition] != 0 {
				ce.deliverValues(frame.ResultsDest, readSlice(window, i.Results))
				return
			}
			frame.PC = pc + 1

		case exec.InstrCall:
			callee := frame.Instance.Functions[i.FunctionIndex]
			params := readSlice(window, i.Params)
			dest := frame.Region.Start + int(i.Results.First)
			ce.call(ctx, callee, params, dest, int(i.Results.Length))
			frame.PC = pc + 1

		case exec.InstrCallIndirect:
			ce.execCallIndirect(ctx, frame, window, i, readProvider, readSlice)
			frame.PC = pc + 1

		case exec.InstrSelect:
			cond := readProvider(window, i.Condition)
			x := readProvider(window, i.X)
			y := readProvider(window, i.Y)
			if cond != 0 {
				window[i.Result] = x
			} else {
				window[i.Result] = y
			}
			frame.PC = pc + 1

		case exec.InstrLoad:
			mem := frame.Instance.DefaultMemory()
			addr := uint64(uint32(readProvider(window, i.Pointer))) + uint64(i.Offset)
			v, trapErr := loadValue(mem, i.Type, addr)
			if trapErr != nil {
				panic(trapErr)
			}
			window[i.Result] = v
			frame.PC = pc + 1

		case exec.InstrStore:
			mem := frame.Instance.DefaultMemory()
			addr := uint64(uint32(readProvider(window, i.Pointer))) + uint64(i.Offset)
			val := readProvider(window, i.Value)
			if trapErr := storeValue(mem, i.Type, addr, val); trapErr != nil {
				panic(trapErr)
			}
			frame.PC = pc + 1

		case exec.InstrGlobalGet:
			window[i.Result] = frame.Instance.Globals[i.GlobalIndex].Val
			frame.PC = pc + 1

		case exec.InstrGlobalSet:
			frame.Instance.Globals[i.GlobalIndex].Val = readProvider(window, i.Value)
			frame.PC = pc + 1

		case exec.InstrMemorySize:
			window[i.Result] = uint64(frame.Instance.DefaultMemory().Pages)
			frame.PC = pc + 1

		case exec.InstrMemoryGrow:
			mem := frame.Instance.DefaultMemory()
			delta := uint32(readProvider(window, i.Delta))
			prev, ok := mem.Grow(delta)
			if ok {
				window[i.Result] = uint64(prev)
			} else {
				window[i.Result] = uint64(uint32(0xFFFFFFFF))
			}
			frame.PC = pc + 1

		default:
			panic(fmt.Sprintf("interpreter: unhandled exec instruction %T", instr))
		}
	}
}

func (ce *callEngine) execCallIndirect(ctx context.Context, frame *Frame, window []uint64, i exec.InstrCallIndirect, readProvider func([]uint64, ir.Provider) uint64, readSlice func([]uint64, ir.ProviderSlice) []uint64) {
	table := frame.Instance.Tables[i.TableIndex]
	slot := uint32(readProvider(window, i.TableSlot))
	if int(slot) >= len(table.References) {
		panic(trap.New(trap.TableOutOfBounds))
	}
	callee := table.References[slot]
	if callee == nil {
		panic(trap.New(trap.IndirectCallToNull))
	}

	declared := &frame.Module.TypeSection[i.TypeIndex]
	if ce.engine.types.Intern(declared) != ce.engine.types.Intern(callee.Type) {
		panic(trap.New(trap.BadSignature))
	}

	params := readSlice(window, i.Params)
	dest := frame.Region.Start + int(i.Results.First)
	ce.call(ctx, callee, params, dest, int(i.Results.Length))
}

// deliverValues writes vals either into the caller's register window (dest
// >= 0, at absolute cell dest) or into the top-level result buffer (dest ==
// noCallerDest).
func (ce *callEngine) deliverValues(dest int, vals []uint64) {
	if dest == noCallerDest {
		copy(ce.topResults, vals)
		return
	}
	for i, v := range vals {
		ce.values.Set(dest+i, v)
	}
}

// recoverTrap converts a dispatcher panic into the error Engine.Call returns.
// Only *trap.Error is an expected panic value; anything else is a defect in
// this package and is re-raised instead of being silently swallowed.
func recoverTrap(r interface{}) error {
	if te, ok := r.(*trap.Error); ok {
		return te
	}
	panic(r)
}
