package interpreter

import "github.com/regbytecode/rvm/internal/trap"

// Region names a frame's window into a ValueStack: a disjoint, contiguous
// span of register cells. Calls append a new region past the end of the
// caller's; returns truncate the stack back to the callee's region start.
type Region struct {
	Start  int
	Length int
}

// ValueStack is the shared cell storage every frame's register window slices
// into. It grows by appending (newly grown cells are zeroed, matching Wasm's
// zero-initialized-locals rule) and shrinks by truncation; it never shares a
// live region across two concurrently executing calls, since a callEngine's
// ValueStack is private to that one invocation (spec.md §5: no shared
// call-scoped state).
type ValueStack struct {
	cells      []uint64
	maximumLen int
}

// NewValueStack returns an empty stack bounded by maximumLen cells.
func NewValueStack(maximumLen int) *ValueStack {
	return &ValueStack{maximumLen: maximumLen}
}

// ExtendBy grows the stack by n cells, zeroing them, and returns the region
// they now occupy. It traps StackOverflow instead of growing past
// maximumLen.
func (s *ValueStack) ExtendBy(n int) (Region, *trap.Error) {
	start := len(s.cells)
	if start+n > s.maximumLen {
		return Region{}, trap.New(trap.StackOverflow)
	}
	if cap(s.cells) >= start+n {
		s.cells = s.cells[:start+n]
		for i := start; i < start+n; i++ {
			s.cells[i] = 0
		}
	} else {
		s.cells = append(s.cells, make([]uint64, n)...)
	}
	return Region{Start: start, Length: n}, nil
}

// Shrink truncates the stack back to length to, discarding any cells above
// it. to must not exceed the current length.
func (s *ValueStack) Shrink(to int) {
	s.cells = s.cells[:to]
}

// Len reports the stack's current length in cells.
func (s *ValueStack) Len() int { return len(s.cells) }

// Window returns the mutable slice of cells r names. Two non-overlapping
// regions (a caller's and a live callee's) can be windowed independently and
// written through concurrently-held slices without aliasing, since Go slice
// index-range slicing on one backing array produces disjoint views for
// disjoint ranges.
func (s *ValueStack) Window(r Region) []uint64 {
	return s.cells[r.Start : r.Start+r.Length]
}

// Get reads a single absolute cell index.
func (s *ValueStack) Get(i int) uint64 { return s.cells[i] }

// Set writes a single absolute cell index.
func (s *ValueStack) Set(i int, v uint64) { s.cells[i] = v }
