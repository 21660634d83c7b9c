package ir

// StackCheckpoint is an opaque marker capturing the length and content of the
// provider stack at some point in translation, sufficient to restore it
// later (used to reset the operand stack to an `if`'s inputs when entering
// its `else` arm).
type StackCheckpoint struct {
	entries []Provider
}

// ProviderStack models the Wasm operand stack at translation time. Each
// entry is either a register (a local or a bump-allocated dynamic register)
// or a constant folded in place; pushing a constant never allocates a
// dynamic register.
type ProviderStack struct {
	entries []Provider
}

func (s *ProviderStack) Push(p Provider) { s.entries = append(s.entries, p) }

func (s *ProviderStack) PushRegister(r Register) { s.Push(RegisterProvider(r)) }

func (s *ProviderStack) PushConst(c ConstRef) { s.Push(ConstProvider(c)) }

func (s *ProviderStack) Pop() Provider {
	n := len(s.entries) - 1
	p := s.entries[n]
	s.entries = s.entries[:n]
	return p
}

// PopN pops the top n providers, returning them in stack order (bottom to
// top of the popped group).
func (s *ProviderStack) PopN(n int) []Provider {
	if n == 0 {
		return nil
	}
	at := len(s.entries) - n
	out := append([]Provider(nil), s.entries[at:]...)
	s.entries = s.entries[:at]
	return out
}

func (s *ProviderStack) Peek() Provider { return s.entries[len(s.entries)-1] }

// PeekN returns, without popping, the top n providers in stack order.
func (s *ProviderStack) PeekN(n int) []Provider {
	if n == 0 {
		return nil
	}
	at := len(s.entries) - n
	return append([]Provider(nil), s.entries[at:]...)
}

func (s *ProviderStack) Len() int { return len(s.entries) }

// Truncate drops the stack down to height n, discarding everything above it.
// Used when popping a control frame whose body left dangling polymorphic
// values behind (dead code after an unconditional branch).
func (s *ProviderStack) Truncate(n int) { s.entries = s.entries[:n] }

// Checkpoint captures the current stack so it can later be restored.
func (s *ProviderStack) Checkpoint() StackCheckpoint {
	return StackCheckpoint{entries: append([]Provider(nil), s.entries...)}
}

// Restore resets the stack to a previously captured checkpoint.
func (s *ProviderStack) Restore(c StackCheckpoint) {
	s.entries = append(s.entries[:0], c.entries...)
}
