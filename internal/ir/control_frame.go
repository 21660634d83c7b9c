package ir

// ControlFrameKind discriminates the concrete type behind a ControlFrame.
type ControlFrameKind uint8

const (
	ControlFrameBlock ControlFrameKind = iota
	ControlFrameLoop
	ControlFrameIf
)

// ControlFrame is a translator-time record for an in-progress block/loop/if.
// Branches targeting depth N from the current frame stack resolve to the
// Nth-from-top ControlFrame's branch target and branch-result layout.
type ControlFrame interface {
	Kind() ControlFrameKind
	// BranchTarget is the label a `br`/`br_if` targeting this frame resolves
	// to: a loop's header (arguments refilled) or a block/if's end.
	BranchTarget() Label
	// BranchResults is the register slice a branch to this frame must
	// materialize before jumping.
	BranchResults() RegisterSlice
	// StackHeight is the provider-stack height below this frame's declared
	// parameters at the time it was pushed, below which a branch must not dig.
	StackHeight() int
}

// BlockFrame is a `block ... end`. Its only merge point is the end label,
// shared by both fallthrough and any `br` targeting it.
type BlockFrame struct {
	ResultSlice RegisterSlice
	Type        BlockType
	EndLabel    Label
	Height      int
}

func (f *BlockFrame) Kind() ControlFrameKind   { return ControlFrameBlock }
func (f *BlockFrame) BranchTarget() Label      { return f.EndLabel }
func (f *BlockFrame) BranchResults() RegisterSlice { return f.ResultSlice }
func (f *BlockFrame) StackHeight() int         { return f.Height }

// LoopFrame is a `loop ... end`. A `br` to a loop rejoins at the head
// (refilling its parameters for the next iteration); falling off the end
// uses the end's own result layout, which is a different register slice than
// the branch (head) result layout whenever params and results differ.
type LoopFrame struct {
	BranchResultSlice RegisterSlice
	EndResultSlice    RegisterSlice
	Type              BlockType
	HeadLabel         Label
	Height            int
}

func (f *LoopFrame) Kind() ControlFrameKind       { return ControlFrameLoop }
func (f *LoopFrame) BranchTarget() Label          { return f.HeadLabel }
func (f *LoopFrame) BranchResults() RegisterSlice { return f.BranchResultSlice }
func (f *LoopFrame) StackHeight() int             { return f.Height }

// IfReachability distinguishes whether an `if` pushed both arms, or collapsed
// to a single arm because its condition was a compile-time constant.
type IfReachability interface{ isIfReachability() }

// IfBoth is the normal case: both `then` and `else` arms were emitted.
// ElseLabel is where `BrEqz` on the condition lands; it is pinned when
// `else` (or, lacking one, `end`) is reached. ThenEndReachable tracks
// whether control fell off the end of `then` (as opposed to every path
// through `then` having branched away), which determines whether `then`
// needs to materialize the block's results and jump to EndLabel at `else`.
type IfBoth struct {
	ElseLabel        Label
	ThenEndReachable TriState
}

func (IfBoth) isIfReachability() {}

// IfOnlyThen means the condition folded to a compile-time true: only the
// `then` arm was translated, the `else` arm's code was never emitted.
type IfOnlyThen struct{}

func (IfOnlyThen) isIfReachability() {}

// IfOnlyElse means the condition folded to a compile-time false.
type IfOnlyElse struct{}

func (IfOnlyElse) isIfReachability() {}

// TriState is a tri-valued boolean: unknown until the `then` arm's
// translation finishes.
type TriState uint8

const (
	Unset TriState = iota
	True
	False
)

// IfFrame is an `if ... [else ...] end`. Checkpoint captures the provider
// stack as it stood on entry (after the condition was popped, before `then`
// ran); it is restored when translation reaches `else`, regardless of
// Reachability, since `then`'s stack effects (real or suppressed) never
// carry over to `else`.
type IfFrame struct {
	ResultSlice  RegisterSlice
	Type         BlockType
	EndLabel     Label
	Height       int
	Checkpoint   StackCheckpoint
	Reachability IfReachability

	// ElseSeen records whether an explicit `else` token was translated. When
	// false at `end`, the if had only an implicit, empty else, which the
	// translator must still synthesize (a type-checked if-without-else always
	// has matching param/result arity, so the synthesized arm is just the
	// identity pass-through of the if's entry stack).
	ElseSeen bool
}

func (f *IfFrame) Kind() ControlFrameKind       { return ControlFrameIf }
func (f *IfFrame) BranchTarget() Label          { return f.EndLabel }
func (f *IfFrame) BranchResults() RegisterSlice { return f.ResultSlice }
func (f *IfFrame) StackHeight() int             { return f.Height }

// ControlFrameStack is the translator's stack of active control frames, one
// entry pushed per block/loop/if and popped at the matching end.
type ControlFrameStack struct {
	frames []ControlFrame
}

func (s *ControlFrameStack) Push(f ControlFrame) { s.frames = append(s.frames, f) }

func (s *ControlFrameStack) Pop() ControlFrame {
	n := len(s.frames) - 1
	f := s.frames[n]
	s.frames = s.frames[:n]
	return f
}

func (s *ControlFrameStack) Top() ControlFrame { return s.frames[len(s.frames)-1] }

// Depth returns the control frame n levels from the top (0 = top), as used to
// resolve `br N` / `br_if N`.
func (s *ControlFrameStack) Depth(n int) ControlFrame {
	return s.frames[len(s.frames)-1-n]
}

func (s *ControlFrameStack) Len() int { return len(s.frames) }
