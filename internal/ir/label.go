package ir

// Label is a symbolic branch target allocated during translation and pinned
// to an instruction index exactly once before compilation finishes.
type Label uint32

// LabelRegistry tracks, for every allocated Label, either the list of IR
// instruction indices that reference it (while unresolved) or the IR
// instruction index it was pinned to.
type LabelRegistry struct {
	entries []labelEntry
}

type labelEntry struct {
	pinned bool
	target uint32 // valid when pinned
	uses   []uint32
}

// NewLabelRegistry returns an empty registry.
func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{}
}

// New allocates a fresh, unresolved label.
func (r *LabelRegistry) New() Label {
	r.entries = append(r.entries, labelEntry{})
	return Label(len(r.entries) - 1)
}

// Use records that the IR instruction at index pc references label l. Safe
// to call both before and after l is pinned; it only affects bookkeeping for
// instructions that reference an as-yet-unresolved label, which the IR→Exec
// compiler re-derives directly from the finished instruction stream, so Use
// is optional bookkeeping kept for introspection/testing rather than a
// correctness dependency.
func (r *LabelRegistry) Use(l Label, pc uint32) {
	e := &r.entries[l]
	if !e.pinned {
		e.uses = append(e.uses, pc)
	}
}

// Pin pins label l to instruction index target. It panics if l is already
// pinned — a label is pinned exactly once.
func (r *LabelRegistry) Pin(l Label, target uint32) {
	e := &r.entries[l]
	if e.pinned {
		panic("ir: label pinned twice")
	}
	e.pinned = true
	e.target = target
}

// TryPin pins label l to target unless it is already pinned, in which case it
// is a no-op. Used where multiple control-flow paths may converge on the same
// label (e.g. a branch to the function's implicit return label).
func (r *LabelRegistry) TryPin(l Label, target uint32) {
	e := &r.entries[l]
	if e.pinned {
		return
	}
	e.pinned = true
	e.target = target
}

// IsPinned reports whether l has been pinned.
func (r *LabelRegistry) IsPinned(l Label) bool {
	return r.entries[l].pinned
}

// Target returns the instruction index l was pinned to. It panics if l is not
// yet pinned.
func (r *LabelRegistry) Target(l Label) uint32 {
	e := r.entries[l]
	if !e.pinned {
		panic("ir: label use before pin")
	}
	return e.target
}
