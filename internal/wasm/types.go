// Package wasm defines the module-level types the translator, compiler and
// execution engine consume. Decoding a binary into these types and validating
// them is the responsibility of an upstream module loader; this package only
// describes the shape that loader must hand the core.
package wasm

import "github.com/regbytecode/rvm/api"

// ValueType is a numeric type used by locals, parameters and results.
type ValueType = api.ValueType

const (
	ValueTypeI32 = api.ValueTypeI32
	ValueTypeI64 = api.ValueTypeI64
	ValueTypeF32 = api.ValueTypeF32
	ValueTypeF64 = api.ValueTypeF64
)

// Index identifies an entry in one of a module's index spaces (types,
// functions, tables, memories, globals).
type Index = uint32

// FunctionType is a function signature. ParamNumInUint64 and ResultNumInUint64
// hold the number of uint64 stack slots consumed/produced; nothing in this
// core sets or reads them, since every ValueType here occupies exactly one
// 64-bit slot (the external loader already rejected any type this core
// doesn't support, e.g. v128).
type FunctionType struct {
	Params            []ValueType
	Results           []ValueType
	ParamNumInUint64  int
	ResultNumInUint64 int
}

// DedupFuncType is an interned reference to a FunctionType, assigned by the
// engine's function-type registry. Two equal signatures always resolve to the
// same DedupFuncType within one engine.
type DedupFuncType uint32
