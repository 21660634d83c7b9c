package ir

// Index names an entry in a module-level index space (functions, globals,
// tables, types). Defined here, not in internal/wasm, so this package never
// needs to import wasm to describe a function/global/table reference.
type Index = uint32

// Register names a cell within the current frame's register window. Locals
// occupy the low registers; the translator bump-allocates dynamic registers
// above them.
type Register uint16

// RegisterSlice is a contiguous span of registers, (First, First+Length).
// Length never exceeds math.MaxUint16, matching the 16-bit register field.
type RegisterSlice struct {
	First  Register
	Length uint16
}

// Empty reports whether the slice names zero registers.
func (s RegisterSlice) Empty() bool { return s.Length == 0 }

// Len reports the number of registers named by the slice.
func (s RegisterSlice) Len() int { return int(s.Length) }

// At returns the i'th register in the slice.
func (s RegisterSlice) At(i int) Register { return s.First + Register(i) }

// Registers materializes the slice into a plain slice of registers. Used by
// the copy analyzer and by tests; the hot translation path indexes with At
// instead of allocating.
func (s RegisterSlice) Registers() []Register {
	out := make([]Register, s.Length)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}
