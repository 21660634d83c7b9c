package wasm

// FunctionBody is one function's already-decoded, already-validated code: its
// signature, its declared locals, and the operand-stream the translator
// walks in order.
type FunctionBody struct {
	Type       FunctionType
	LocalTypes []ValueType
	Operators  []Operator

	// ReferencedFunctions lists every function index this body names via
	// `call`, in appearance order; an upstream loader supplies it so the
	// translator doesn't need to pre-scan the operand stream to learn which
	// callees exist. Unused by the translator itself today; kept so an
	// engine building an eager call graph has it without a second pass.
	ReferencedFunctions []Index
}

// Module is a validated Wasm module: everything the translator and compiler
// need to compile every function body it declares. Binary decoding and
// semantic validation happen upstream; by the time a Module reaches this
// core, indices are assumed in range and signatures assumed well-formed.
type Module struct {
	TypeSection     []FunctionType
	FunctionSection []Index // index into TypeSection, per locally-defined function
	CodeSection     []FunctionBody

	// ImportedFunctionCount is how many entries at the start of the module's
	// function index space are imports rather than local definitions; local
	// function i's global index is ImportedFunctionCount+i.
	ImportedFunctionCount Index

	// TableTypes/GlobalTypes/MemoryCount describe the module's other index
	// spaces only to the extent the translator needs their shape (e.g. which
	// table an indirect call indexes); full table/global contents live on an
	// Instance, not a Module.
	TableTypes  []ValueType // one ValueType (funcref/externref) per table
	GlobalTypes []GlobalType
	HasMemory   bool
}

// GlobalType is a global's declared value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// TypeOf resolves a function's signature by its global function index.
func (m *Module) TypeOf(funcIndex Index) *FunctionType {
	local := funcIndex - m.ImportedFunctionCount
	return &m.TypeSection[m.FunctionSection[local]]
}
