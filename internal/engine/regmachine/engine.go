// Package interpreter implements the register-machine dispatcher: it
// compiles a validated wasm.Module into executable code and runs it, one
// callEngine per embedder-facing invocation. The calling convention, trap
// boundary and concurrency shape are adapted from a stack-machine dispatcher
// that proves out the idiom at retrieval time; the register windows,
// provider-based operands and the rest of the execution semantics are this
// core's own (spec.md §4 and §5).
package interpreter

import (
	"context"
	"fmt"
	"sync"

	"github.com/regbytecode/rvm/internal/codemap"
	"github.com/regbytecode/rvm/internal/compiler"
	"github.com/regbytecode/rvm/internal/ir"
	"github.com/regbytecode/rvm/internal/translator"
	"github.com/regbytecode/rvm/internal/wasm"
)

// Limits bounds the resources one Engine's calls may consume.
type Limits struct {
	// InitialLen is the value stack's starting capacity, in 64-bit cells.
	InitialLen int
	// MaximumLen is the value stack's hard ceiling; exceeding it traps
	// StackOverflow.
	MaximumLen int
	// MaximumRecursionDepth bounds nested Wasm calls; exceeding it traps
	// StackOverflow independent of the value stack's own headroom.
	MaximumRecursionDepth int
}

// DefaultLimits mirrors typical embedder defaults: generous enough for real
// programs, bounded enough that runaway recursion fails fast.
func DefaultLimits() Limits {
	return Limits{InitialLen: 1024, MaximumLen: 1 << 20, MaximumRecursionDepth: 2048}
}

// Engine owns every module-scoped pool an embedder's compiled code shares:
// the constant pool, the provider-slice arena, the function-type registry and
// the code map. A single mutex guards all of them and is held for the whole
// of both CompileModule and Call, so compilation and calls never overlap;
// callEngine state (value stack, frame stack) is never shared across calls —
// see spec.md §5.
type Engine struct {
	mu     sync.Mutex
	consts *ir.ConstantPool
	arena  *ir.ProviderSliceArena
	types  *wasm.TypeRegistry
	code   *codemap.CodeMap
	limits Limits
}

// NewEngine returns an Engine with fresh, empty pools.
func NewEngine(limits Limits) *Engine {
	return &Engine{
		consts: ir.NewConstantPool(),
		arena:  ir.NewProviderSliceArena(),
		types:  wasm.NewTypeRegistry(),
		code:   codemap.New(),
		limits: limits,
	}
}

// CompileModule translates and compiles every function body module declares,
// returning the codemap.Handle assigned to each, in declaration order. It
// also interns every declared type signature into the engine's TypeRegistry
// so later CallIndirect checks can compare by DedupFuncType.
func (e *Engine) CompileModule(module *wasm.Module) ([]codemap.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range module.TypeSection {
		e.types.Intern(&module.TypeSection[i])
	}

	handles := make([]codemap.Handle, len(module.CodeSection))
	for i, body := range module.CodeSection {
		labels := ir.NewLabelRegistry()
		result, err := translator.Translate(module, &body, labels, e.consts, e.arena)
		if err != nil {
			return nil, fmt.Errorf("interpreter: translating function %d: %w", i, err)
		}
		fb, err := compiler.Compile(result, labels, len(body.Type.Params), len(body.Type.Results))
		if err != nil {
			return nil, fmt.Errorf("interpreter: compiling function %d: %w", i, err)
		}
		handles[i] = e.code.Store(fb)
	}
	return handles, nil
}

// Call invokes fn with params, returning its results or the trap that
// terminated it. Per-call mutable state (value stack, frame stack) is
// allocated fresh here and never shared, but the dispatch loop reads the
// engine's pools (constant pool, provider-slice arena, type registry, code
// map) throughout execution, and those same pools can grow under a
// concurrent CompileModule — so Call holds e.mu for its whole duration,
// matching spec.md §5's "single process-wide mutex" rather than only
// guarding the brief Store/Intern calls CompileModule makes.
func (e *Engine) Call(ctx context.Context, instance *wasm.Instance, fn *wasm.FunctionInstance, params []uint64) (results []uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ce := &callEngine{
		engine: e,
		values: NewValueStack(e.limits.MaximumLen),
		frames: NewFrameStack(e.limits.MaximumRecursionDepth),
	}
	if _, trapErr := ce.values.ExtendBy(e.limits.InitialLen); trapErr != nil {
		return nil, trapErr
	}
	ce.values.Shrink(0)

	numResults := len(fn.Type.Results)
	results = make([]uint64, numResults)

	defer func() {
		if r := recover(); r != nil {
			err = recoverTrap(r)
		}
	}()

	ce.callTop(ctx, instance, fn, params, results)
	return results, nil
}
