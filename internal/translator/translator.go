// Package translator lowers a validated Wasm function body's stack-machine
// operand stream into the register-machine ir.Instruction sequence the
// compiler and engine operate on. It is a single pass over body.Operators: it
// maintains a translation-time operand stack of ir.Provider (register or
// interned constant), a stack of in-progress control frames, and emits
// instructions as it goes, materializing copies only where a branch's source
// registers don't already align with its target's fixed register window.
package translator

import (
	"fmt"
	"math"

	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/numeric"
	"github.com/regbytecode/rvm/internal/trap"
	"github.com/regbytecode/rvm/internal/wasm"
)

// Result is a function body's translated form: its instruction sequence and
// the number of registers (locals plus the deepest dynamic allocation) its
// frame window must reserve.
type Result struct {
	Instructions []ir.Instruction
	NumRegisters int
}

// Translate lowers one function body. consts/arena are shared with the rest
// of the module's functions (and, ultimately, the engine), matching the
// convention that the constant pool and provider-slice arena are owned at
// module-compilation scope rather than per function. labels is this one
// function's registry, which the caller then hands to the compiler.
func Translate(module *wasm.Module, body *wasm.FunctionBody, labels *ir.LabelRegistry, consts *ir.ConstantPool, arena *ir.ProviderSliceArena) (*Result, error) {
	b := &builder{
		module: module,
		body:   body,
		labels: labels,
		consts: consts,
		arena:  arena,
	}
	b.numLocals = len(body.Type.Params) + len(body.LocalTypes)
	b.maxRegs = b.numLocals

	for i := 0; i < len(body.Operators); i++ {
		op := body.Operators[i]
		if _, ok := op.(wasm.OpEnd); ok && b.frames.Len() == 0 {
			if !b.dead {
				b.translateReturn(nil)
			}
			return &Result{Instructions: b.instrs, NumRegisters: b.maxRegs}, nil
		}
		if err := b.translateOp(op); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("translator: function body missing terminating end")
}

type builder struct {
	module *wasm.Module
	body   *wasm.FunctionBody

	labels *ir.LabelRegistry
	consts *ir.ConstantPool
	arena  *ir.ProviderSliceArena

	instrs []ir.Instruction
	stack  ir.ProviderStack
	frames ir.ControlFrameStack

	numLocals int
	maxRegs   int

	// dead is true while the code currently being translated cannot execute
	// at run time (after an unconditional terminator, or inside the arm of a
	// constant-folded `if` that was never taken). Instructions are still
	// built structurally (so register/stack bookkeeping and control frame
	// matching stay consistent) but emit is a no-op while dead is set.
	// deadSaved mirrors the frame stack: deadSaved[i] is the value dead held
	// when frame i was pushed, restored when it pops so a dead inner frame
	// never makes outer, live code look dead.
	dead      bool
	deadSaved []bool
}

func (b *builder) pc() uint32 { return uint32(len(b.instrs)) }

func (b *builder) emit(i ir.Instruction) {
	if b.dead {
		return
	}
	b.instrs = append(b.instrs, i)
}

// reg returns the register backing operand-stack depth d (0 = bottom of the
// dynamic region, directly above the locals).
func (b *builder) reg(depth int) ir.Register {
	r := ir.Register(b.numLocals + depth)
	if n := b.numLocals + depth + 1; n > b.maxRegs {
		b.maxRegs = n
	}
	return r
}

func (b *builder) push(p ir.Provider) { b.stack.Push(p) }

func (b *builder) pushReg(r ir.Register) { b.stack.PushRegister(r) }

// pushNewReg allocates the register at the current stack depth and pushes it,
// returning the register so the caller can use it as an instruction result.
func (b *builder) pushNewReg() ir.Register {
	r := b.reg(b.stack.Len())
	b.pushReg(r)
	return r
}

func (b *builder) pop() ir.Provider {
	if b.stack.Len() == 0 {
		// Dead code's operand stack is polymorphic: Wasm validation allows it
		// to pop types it never really pushed. The value is never read by any
		// emitted instruction since emit() is suppressed, so an arbitrary
		// register reference is harmless.
		return ir.RegisterProvider(0)
	}
	return b.stack.Pop()
}

func (b *builder) popN(n int) []ir.Provider {
	have := b.stack.Len()
	if n <= have {
		return b.stack.PopN(n)
	}
	out := make([]ir.Provider, n-have, n)
	for i := range out {
		out[i] = ir.RegisterProvider(0)
	}
	return append(out, b.stack.PopN(have)...)
}

// materialize returns a register holding p's value, copying a constant into a
// fresh register first if necessary. Used where an instruction field is fixed
// to Register rather than Provider (branch conditions, the br_table index).
func (b *builder) materialize(p ir.Provider) ir.Register {
	if !p.IsConst() {
		return p.Register()
	}
	r := b.reg(b.stack.Len())
	b.emit(ir.InstrCopyImm{Dst: r, Input: p.ConstRef()})
	return r
}

func (b *builder) translateOp(op wasm.Operator) error {
	switch o := op.(type) {
	case wasm.OpUnreachable:
		b.emit(ir.InstrUnreachable{})
		b.dead = true
	case wasm.OpNop:
		// no-op
	case wasm.OpBlock:
		b.pushBlock(o.Type)
	case wasm.OpLoop:
		b.pushLoop(o.Type)
	case wasm.OpIf:
		b.pushIf(o.Type)
	case wasm.OpElse:
		b.handleElse()
	case wasm.OpEnd:
		b.handleEnd()
	case wasm.OpBr:
		b.translateBranch(o.Depth, nil)
		b.dead = true
	case wasm.OpBrIf:
		cond := b.materialize(b.pop())
		b.translateBranch(o.Depth, &cond)
	case wasm.OpBrTable:
		b.translateBrTable(o.Depths, o.Default)
		b.dead = true
	case wasm.OpReturn:
		b.translateReturn(nil)
		b.dead = true
	case wasm.OpCall:
		b.translateCall(o.FuncIndex)
	case wasm.OpCallIndirect:
		b.translateCallIndirect(o.TypeIndex, o.TableIndex)
	case wasm.OpDrop:
		b.pop()
	case wasm.OpSelect:
		b.translateSelect()
	case wasm.OpLocalGet:
		b.translateLocalGet(o.Index)
	case wasm.OpLocalSet:
		b.translateLocalSet(o.Index)
	case wasm.OpLocalTee:
		b.translateLocalTee(o.Index)
	case wasm.OpGlobalGet:
		r := b.pushNewReg()
		b.emit(ir.InstrGlobalGet{GlobalIndex: o.Index, Result: r})
	case wasm.OpGlobalSet:
		v := b.pop()
		b.emit(ir.InstrGlobalSet{GlobalIndex: o.Index, Value: v})
	case wasm.OpConstI32:
		b.push(ir.ConstProvider(b.consts.Alloc(uint64(uint32(o.Value)))))
	case wasm.OpConstI64:
		b.push(ir.ConstProvider(b.consts.Alloc(uint64(o.Value))))
	case wasm.OpConstF32:
		b.push(ir.ConstProvider(b.consts.Alloc(uint64(math.Float32bits(o.Value)))))
	case wasm.OpConstF64:
		b.push(ir.ConstProvider(b.consts.Alloc(math.Float64bits(o.Value))))
	case wasm.OpNumeric:
		b.translateNumeric(o.Op)
	case wasm.OpLoad:
		b.translateLoad(o.Type, o.Arg)
	case wasm.OpStore:
		b.translateStore(o.Type, o.Arg)
	case wasm.OpMemorySize:
		r := b.pushNewReg()
		b.emit(ir.InstrMemorySize{Result: r})
	case wasm.OpMemoryGrow:
		delta := b.pop()
		r := b.pushNewReg()
		b.emit(ir.InstrMemoryGrow{Result: r, Delta: delta})
	default:
		return fmt.Errorf("translator: unhandled operator %T", op)
	}
	return nil
}

func (b *builder) translateLocalGet(index wasm.Index) {
	// Copied into a fresh register rather than aliasing the local directly:
	// a later local.set on the same local must not retroactively change a
	// value already pushed from an earlier local.get.
	dst := b.pushNewReg()
	b.emit(ir.InstrCopy{Dst: dst, Src: ir.Register(index)})
}

func (b *builder) translateLocalSet(index wasm.Index) {
	v := b.pop()
	b.emitCopyToLocal(ir.Register(index), v)
}

func (b *builder) translateLocalTee(index wasm.Index) {
	v := b.pop()
	b.emitCopyToLocal(ir.Register(index), v)
	b.push(v)
}

func (b *builder) emitCopyToLocal(dst ir.Register, v ir.Provider) { b.emitCopyProvider(dst, v) }

func (b *builder) emitCopyProvider(dst ir.Register, v ir.Provider) {
	if v.IsConst() {
		b.emit(ir.InstrCopyImm{Dst: dst, Input: v.ConstRef()})
		return
	}
	b.emit(ir.InstrCopy{Dst: dst, Src: v.Register()})
}

func (b *builder) translateSelect() {
	cond := b.pop()
	y := b.pop()
	x := b.pop()
	r := b.pushNewReg()
	b.emit(ir.InstrSelect{Result: r, X: x, Y: y, Condition: cond})
}

// translateNumeric lowers one arithmetic/compare/convert operator. Per
// spec.md §4.4/§9, an op whose operands are all constants is folded at
// translation time into a new pooled constant rather than emitted as a
// run-time instruction; a fold that would trap (e.g. a constant division by
// zero) is instead emitted as an explicit InstrTrap, preserving the op's
// dynamic trap semantics rather than silently discarding the dead code — like
// InstrUnreachable, InstrTrap always halts, so everything in this frame after
// it is unreachable. A fold never consumes a dynamic register, matching the
// provider stack's rule that pushing a constant doesn't allocate one.
func (b *builder) translateNumeric(op ir.NumericOp) {
	if op.IsUnary() {
		x := b.pop()
		if x.IsConst() {
			v, trapErr := numeric.EvalUnary(op, b.consts.Resolve(x.ConstRef()))
			b.foldResult(trapErr, v)
			return
		}
		r := b.pushNewReg()
		b.emit(ir.InstrUnary{Op: op, Result: r, X: x})
		return
	}

	y := b.pop()
	x := b.pop()
	if x.IsConst() && y.IsConst() {
		v, trapErr := numeric.EvalBinary(op, b.consts.Resolve(x.ConstRef()), b.consts.Resolve(y.ConstRef()))
		b.foldResult(trapErr, v)
		return
	}
	r := b.pushNewReg()
	b.emit(ir.InstrBinary{Op: op, Result: r, X: x, Y: y})
}

// foldResult settles a constant-folded evaluation: a trapping result emits an
// InstrTrap and marks the rest of the current frame dead, otherwise v is
// interned and pushed as a fresh constant provider.
func (b *builder) foldResult(trapErr *trap.Error, v uint64) {
	if trapErr != nil {
		b.emit(ir.InstrTrap{Code: trapErr.Code})
		b.dead = true
		return
	}
	b.push(ir.ConstProvider(b.consts.Alloc(v)))
}

func (b *builder) translateLoad(t ir.MemType, arg ir.MemoryArg) {
	ptr := b.pop()
	r := b.pushNewReg()
	b.emit(ir.InstrLoad{Type: t, Result: r, Pointer: ptr, Offset: arg.Offset})
}

func (b *builder) translateStore(t ir.MemType, arg ir.MemoryArg) {
	value := b.pop()
	ptr := b.pop()
	b.emit(ir.InstrStore{Type: t, Pointer: ptr, Value: value, Offset: arg.Offset})
}

func (b *builder) translateCall(funcIndex wasm.Index) {
	sig := b.module.TypeOf(funcIndex)
	params := b.popN(len(sig.Params))
	results := b.allocResults(len(sig.Results))
	b.emit(ir.InstrCall{FunctionIndex: funcIndex, Params: b.arena.Alloc(params), Results: results})
}

func (b *builder) translateCallIndirect(typeIndex, tableIndex wasm.Index) {
	slot := b.pop()
	sig := &b.module.TypeSection[typeIndex]
	params := b.popN(len(sig.Params))
	results := b.allocResults(len(sig.Results))
	b.emit(ir.InstrCallIndirect{
		TypeIndex:  typeIndex,
		TableIndex: tableIndex,
		TableSlot:  slot,
		Params:     b.arena.Alloc(params),
		Results:    results,
	})
}

// allocResults pushes n freshly allocated, contiguous registers and returns
// the slice naming them, for instructions (call, call_indirect) whose results
// land in a fixed register window rather than arbitrary providers.
func (b *builder) allocResults(n int) ir.RegisterSlice {
	first := b.reg(b.stack.Len())
	for i := 0; i < n; i++ {
		b.pushReg(b.reg(b.stack.Len()))
	}
	return ir.RegisterSlice{First: first, Length: uint16(n)}
}

func (b *builder) translateReturn(condition *ir.Register) {
	n := len(b.body.Type.Results)
	providers := b.peekOrPad(n)
	results := b.arena.Alloc(providers)
	if condition == nil {
		b.emit(ir.InstrReturn{Results: results})
		return
	}
	b.emit(ir.InstrReturnNez{Condition: *condition, Results: results})
}

// peekOrPad behaves like the provider stack's PeekN but tolerates a shallower
// stack than n, for the same polymorphic-dead-code reason popN does.
func (b *builder) peekOrPad(n int) []ir.Provider {
	have := b.stack.Len()
	if n <= have {
		return b.stack.PeekN(n)
	}
	out := make([]ir.Provider, n-have, n)
	for i := range out {
		out[i] = ir.RegisterProvider(0)
	}
	return append(out, b.stack.PeekN(have)...)
}

// pushBlock, pushLoop and pushIf record the control frame's own Height as the
// stack depth *below* its declared parameters: entering a frame does not pop
// its parameters off the operand stack (unlike a function call), since the
// parameters remain the frame's initial operand-stack contents.
func (b *builder) pushBlock(t ir.BlockType) {
	height := b.stack.Len() - t.ParamNum()
	results := ir.RegisterSlice{First: b.reg(height), Length: uint16(t.ResultNum())}
	end := b.labels.New()
	b.deadSaved = append(b.deadSaved, b.dead)
	b.frames.Push(&ir.BlockFrame{ResultSlice: results, Type: t, EndLabel: end, Height: height})
}

func (b *builder) pushLoop(t ir.BlockType) {
	height := b.stack.Len() - t.ParamNum()
	head := b.labels.New()
	b.labels.Pin(head, b.pc())
	branchResults := ir.RegisterSlice{First: b.reg(height), Length: uint16(t.ParamNum())}
	endResults := ir.RegisterSlice{First: b.reg(height), Length: uint16(t.ResultNum())}
	b.deadSaved = append(b.deadSaved, b.dead)
	b.frames.Push(&ir.LoopFrame{
		BranchResultSlice: branchResults,
		EndResultSlice:    endResults,
		Type:              t,
		HeadLabel:         head,
		Height:            height,
	})
}

func (b *builder) pushIf(t ir.BlockType) {
	cond := b.pop()
	height := b.stack.Len() - t.ParamNum()
	results := ir.RegisterSlice{First: b.reg(height), Length: uint16(t.ResultNum())}
	end := b.labels.New()
	checkpoint := b.stack.Checkpoint()
	inherited := b.dead

	var reach ir.IfReachability
	if cond.IsConst() {
		if b.consts.Resolve(cond.ConstRef()) != 0 {
			reach = ir.IfOnlyThen{}
		} else {
			reach = ir.IfOnlyElse{}
		}
	} else {
		reach = ir.IfBoth{ElseLabel: b.labels.New(), ThenEndReachable: ir.Unset}
	}

	frame := &ir.IfFrame{ResultSlice: results, Type: t, EndLabel: end, Height: height, Checkpoint: checkpoint, Reachability: reach}
	b.frames.Push(frame)
	b.deadSaved = append(b.deadSaved, inherited)

	switch r := reach.(type) {
	case ir.IfBoth:
		b.emit(ir.InstrBrEqz{Condition: cond.Register(), Target: r.ElseLabel})
		b.dead = inherited
	case ir.IfOnlyThen:
		b.dead = inherited
	case ir.IfOnlyElse:
		b.dead = true
	}
}

func (b *builder) handleElse() {
	top, ok := b.frames.Top().(*ir.IfFrame)
	if !ok {
		panic("translator: else outside if")
	}
	top.ElseSeen = true
	inherited := b.deadSaved[len(b.deadSaved)-1]
	b.closeThenArm(top)

	switch top.Reachability.(type) {
	case ir.IfOnlyThen:
		b.dead = true
	default: // IfBoth, IfOnlyElse
		b.dead = inherited
	}
}

// closeThenArm ends the `then` arm of an if: if it fell through live, its
// current top-of-stack is branched into the if's result registers and
// control jumps to EndLabel, skipping over `else`'s code; IfBoth's
// ElseLabel/EndLabel guard is pinned to the instruction right after that
// jump (or to here directly, if `then` never fell through). Shared between
// an explicit `else` token and a synthesized implicit one, since both need
// the same then-arm closing sequence before the next arm's code (real or
// synthesized) starts from the if's entry checkpoint.
//
// An IfOnlyThen whose `else` arm is dead code still needs its (genuinely
// live) then-arm result materialized into the if's declared result
// registers here, exactly as a live IfBoth's then-arm would be: the else
// arm the translator is about to enter emits nothing (emit() is suppressed
// the whole time b.dead is set), so this is the only point that ever
// settles those registers before `end`'s unconditional (but, for this case,
// no-op) settleFrame call. IfOnlyElse needs no such step: its then arm was
// never live, so there is nothing real on the stack to materialize.
func (b *builder) closeThenArm(top *ir.IfFrame) {
	r, ok := top.Reachability.(ir.IfBoth)
	if !ok {
		if _, onlyThen := top.Reachability.(ir.IfOnlyThen); onlyThen {
			b.settleFrame(top.Height, top.ResultSlice)
		}
		b.stack.Restore(top.Checkpoint)
		return
	}
	thenWasLive := !b.dead
	if thenWasLive {
		b.branchTo(top.ResultSlice, top.EndLabel, nil)
	}
	b.labels.Pin(r.ElseLabel, b.pc())
	tri := ir.False
	if thenWasLive {
		tri = ir.True
	}
	top.Reachability = ir.IfBoth{ElseLabel: r.ElseLabel, ThenEndReachable: tri}
	b.stack.Restore(top.Checkpoint)
}

func (b *builder) handleEnd() {
	top := b.frames.Pop()
	parentDead := b.deadSaved[len(b.deadSaved)-1]
	b.deadSaved = b.deadSaved[:len(b.deadSaved)-1]

	switch f := top.(type) {
	case *ir.BlockFrame:
		b.labels.Pin(f.EndLabel, b.pc())
		b.settleFrame(f.Height, f.ResultSlice)
	case *ir.LoopFrame:
		b.settleFrame(f.Height, f.EndResultSlice)
	case *ir.IfFrame:
		// then always has real code (translated from the operator stream);
		// only IfBoth and IfOnlyElse ever need a synthesized implicit else,
		// since IfOnlyThen's then arm is the only one that ever really runs.
		if !f.ElseSeen {
			switch f.Reachability.(type) {
			case ir.IfBoth, ir.IfOnlyElse:
				b.closeThenArm(f)
				b.dead = parentDead
			}
		}
		b.labels.Pin(f.EndLabel, b.pc())
		b.settleFrame(f.Height, f.ResultSlice)
	default:
		panic(fmt.Sprintf("translator: unknown control frame %T", top))
	}
	b.dead = parentDead
}

// settleFrame normalizes the frame's live exit values into its declared
// result registers and leaves those registers pushed on the operand stack.
// Stack-relative allocation means the top results.Len() entries are already
// in place whenever the body's last push was itself a register (the common
// case), but a value that reached the merge point as a bare constant (e.g.
// `block (result i32) i32.const 0 end`) still needs materializing, so this
// goes through the same copy analysis a branch to this frame would use,
// just emitting plain copies instead of a branch-fused instruction. In dead
// code the peeked providers are meaningless padding, but the emit is
// suppressed anyway.
func (b *builder) settleFrame(height int, results ir.RegisterSlice) {
	n := results.Len()
	providers := b.peekOrPad(n)
	copies := ir.Analyze(results, providers)
	switch copies.Form {
	case ir.CopySingle:
		b.emitCopyProvider(copies.SingleResult, copies.SingleInput)
	case ir.CopyMany:
		b.emit(ir.InstrCopyMany{Results: copies.ManyResults, Inputs: b.arena.Alloc(copies.ManyInputs)})
	}
	b.stack.Truncate(height)
	for i := 0; i < n; i++ {
		b.pushReg(results.At(i))
	}
}

// translateBranch resolves a relative control depth to its target frame (or,
// when depth names the function's own implicit outer scope, to a return) and
// emits the branch.
func (b *builder) translateBranch(depth uint32, condition *ir.Register) {
	if int(depth) == b.frames.Len() {
		b.translateReturn(condition)
		return
	}
	target := b.frames.Depth(int(depth))
	b.branchTo(target.BranchResults(), target.BranchTarget(), condition)
}

// branchTo materializes target's result registers from the current top of
// stack (via copy-analysis, to avoid redundant self-moves) and emits the
// appropriate branch instruction variant.
func (b *builder) branchTo(target ir.RegisterSlice, label ir.Label, condition *ir.Register) {
	n := target.Len()
	providers := b.peekOrPad(n)
	copies := ir.Analyze(target, providers)

	if condition == nil {
		switch copies.Form {
		case ir.CopyNone:
			b.emit(ir.InstrBr{Target: label})
		case ir.CopySingle:
			b.emit(ir.InstrBrSingle{Target: label, Result: copies.SingleResult, Input: copies.SingleInput})
		case ir.CopyMany:
			b.emit(ir.InstrBrMulti{Target: label, Results: copies.ManyResults, Inputs: b.arena.Alloc(copies.ManyInputs)})
		}
		return
	}

	switch copies.Form {
	case ir.CopyNone:
		b.emit(ir.InstrBrNez{Condition: *condition, Target: label})
	case ir.CopySingle:
		b.emit(ir.InstrBrNezSingle{Condition: *condition, Target: label, Result: copies.SingleResult, Input: copies.SingleInput})
	case ir.CopyMany:
		b.emit(ir.InstrBrNezMulti{Condition: *condition, Target: label, Results: copies.ManyResults, Inputs: b.arena.Alloc(copies.ManyInputs)})
	}
}

func (b *builder) translateBrTable(depths []uint32, def uint32) {
	all := make([]uint32, 0, len(depths)+1)
	all = append(all, depths...)
	all = append(all, def)

	index := b.materialize(b.pop())

	// Every case shares one arity, so the representative (the default) fixes
	// how many operand-stack values this br_table carries.
	repLabel, repDest, repReturn := b.resolveBranchTarget(def)
	n := repDest.Len()
	if repReturn {
		n = len(b.body.Type.Results)
	}
	providers := b.peekOrPad(n)
	results := b.arena.Alloc(providers)

	targets := make([]ir.BrTableTarget, 0, len(all))
	for i, d := range all {
		if i == len(all)-1 {
			targets = append(targets, ir.BrTableTarget{IsReturn: repReturn, Target: repLabel, Dest: repDest, Results: results})
			continue
		}
		label, dest, isReturn := b.resolveBranchTarget(d)
		targets = append(targets, ir.BrTableTarget{IsReturn: isReturn, Target: label, Dest: dest, Results: results})
	}
	b.emit(ir.InstrBrTable{Index: index, Targets: targets})
}

func (b *builder) resolveBranchTarget(depth uint32) (label ir.Label, dest ir.RegisterSlice, isReturn bool) {
	if int(depth) == b.frames.Len() {
		return 0, ir.RegisterSlice{}, true
	}
	f := b.frames.Depth(int(depth))
	return f.BranchTarget(), f.BranchResults(), false
}
