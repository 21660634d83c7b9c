package ir

// Provider is an instruction operand that is either a Register or a ConstRef,
// encoded into a single signed 32-bit field: non-negative values are register
// indices, negative values encode a constant index as -(index+1). This is the
// space-optimized encoding the source design favors over a separate tag byte
// (see the translator's Developer Notes); the bit trick is intentional and
// must round-trip exactly through Decode.
type Provider int32

// RegisterProvider returns the Provider naming register r.
func RegisterProvider(r Register) Provider {
	return Provider(int32(r))
}

// ConstProvider returns the Provider naming the constant ref c.
func ConstProvider(c ConstRef) Provider {
	if int64(c) >= int64(1)<<31-1 {
		panic("ir: constant index out of range for provider encoding")
	}
	return Provider(-(int32(c) + 1))
}

// IsConst reports whether the provider names a constant rather than a
// register.
func (p Provider) IsConst() bool { return p < 0 }

// Register returns the register this provider names. Only valid when
// IsConst() is false.
func (p Provider) Register() Register { return Register(p) }

// ConstRef returns the constant this provider names. Only valid when
// IsConst() is true.
func (p Provider) ConstRef() ConstRef { return ConstRef(-p - 1) }

// Decode splits the provider into its register-or-constant form.
func (p Provider) Decode() (reg Register, ref ConstRef, isConst bool) {
	if p.IsConst() {
		return 0, p.ConstRef(), true
	}
	return p.Register(), 0, false
}
