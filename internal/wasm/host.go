package wasm

import "context"

// HostFunction is the contract the dispatcher invokes through for an
// embedder-supplied (non-Wasm) callee. Parameters arrive in stack[:paramCount]
// and results must be written back into stack[:resultCount]; a panic with a
// *trap.Error terminates execution exactly as a Wasm trap would.
type HostFunction interface {
	Call(ctx context.Context, callerInstance *Instance, stack []uint64)
}

// HostFunctionFunc adapts a plain function to HostFunction.
type HostFunctionFunc func(ctx context.Context, callerInstance *Instance, stack []uint64)

func (f HostFunctionFunc) Call(ctx context.Context, callerInstance *Instance, stack []uint64) {
	f(ctx, callerInstance, stack)
}
