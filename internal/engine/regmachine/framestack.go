package interpreter

import (
	"github.com/regbytecode/rvm/internal/exec"
	"github.com/regbytecode/rvm/internal/trap"
	"github.com/regbytecode/rvm/internal/wasm"
)

// Frame is one activation record. Unlike the value stack, frames are not
// windowed over a shared backing array — each Call pushes a Frame onto an
// explicit FrameStack purely to track recursion depth and give a trapping
// dispatcher somewhere to read "which function, which pc" from; the actual
// Wasm call nesting is mirrored by literal nested Go calls into run(), one
// per Wasm call, so a Frame's lifetime matches its run() invocation's.
type Frame struct {
	PC     int
	Region Region

	// ResultsDest is the absolute ValueStack cell index the callee's
	// InstrReturn/InstrReturnNez writes its first result into; the caller's
	// own frame already reserved this span as part of the call instruction's
	// Results register slice. The top-level, embedder-entry frame has no
	// caller region, so its results are written straight to callEngine's
	// result buffer instead — see callEngine.callTop.
	ResultsDest int
	NumResults  int

	Instance *wasm.Instance
	Module   *wasm.Module
	Body     *exec.FuncBody
}

// FrameStack bounds recursion depth independent of Go's own call stack. It
// exists to turn runaway Wasm recursion into a catchable trap rather than a
// native stack overflow.
type FrameStack struct {
	frames   []*Frame
	maxDepth int
}

// NewFrameStack returns an empty stack allowing up to maxDepth nested calls.
func NewFrameStack(maxDepth int) *FrameStack {
	return &FrameStack{maxDepth: maxDepth}
}

// Push records a new activation. It traps StackOverflow once maxDepth nested
// calls are already live.
func (s *FrameStack) Push(f *Frame) *trap.Error {
	if len(s.frames) >= s.maxDepth {
		return trap.New(trap.StackOverflow)
	}
	s.frames = append(s.frames, f)
	return nil
}

// Pop discards the innermost activation.
func (s *FrameStack) Pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// Top returns the innermost activation.
func (s *FrameStack) Top() *Frame { return s.frames[len(s.frames)-1] }

// Depth reports how many activations are currently live.
func (s *FrameStack) Depth() int { return len(s.frames) }
