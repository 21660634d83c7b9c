package ir

import (
	"strconv"
	"strings"
)

// ProviderSlice is an (offset, length) pair into a ProviderSliceArena.
type ProviderSlice struct {
	offset uint32
	length uint32
}

// Len is the number of providers in the slice.
func (s ProviderSlice) Len() int { return int(s.length) }

// Empty reports whether the slice is zero-length.
func (s ProviderSlice) Empty() bool { return s.length == 0 }

// ProviderSliceArena interns sequences of Providers. Two slices containing
// the identical sequence, allocated at any point in the same arena, compare
// equal: alloc(xs) == alloc(ys) iff xs and ys are elementwise equal. This is
// the interning law tested by the core's property suite.
type ProviderSliceArena struct {
	providers []Provider
	dedup     map[string]ProviderSlice
}

// NewProviderSliceArena returns an empty arena.
func NewProviderSliceArena() *ProviderSliceArena {
	return &ProviderSliceArena{dedup: map[string]ProviderSlice{}}
}

// Alloc interns the given provider sequence and returns a stable slice handle
// referencing it.
func (a *ProviderSliceArena) Alloc(providers []Provider) ProviderSlice {
	if len(providers) == 0 {
		return ProviderSlice{}
	}
	key := sliceKey(providers)
	if s, ok := a.dedup[key]; ok {
		return s
	}
	s := ProviderSlice{offset: uint32(len(a.providers)), length: uint32(len(providers))}
	a.providers = append(a.providers, providers...)
	a.dedup[key] = s
	return s
}

// Resolve returns the interned provider sequence a slice refers to.
func (a *ProviderSliceArena) Resolve(s ProviderSlice) []Provider {
	return a.providers[s.offset : s.offset+s.length]
}

// Skip returns the sub-slice obtained by dropping the first n providers. The
// result still refers to the original arena storage; no copy is made.
func (s ProviderSlice) Skip(n int) ProviderSlice {
	if uint32(n) > s.length {
		panic("ir: Skip out of range")
	}
	return ProviderSlice{offset: s.offset + uint32(n), length: s.length - uint32(n)}
}

// Take returns the sub-slice consisting of the first n providers of s.
func (s ProviderSlice) Take(n int) ProviderSlice {
	if uint32(n) > s.length {
		panic("ir: Take out of range")
	}
	return ProviderSlice{offset: s.offset, length: uint32(n)}
}

// sliceKey builds a collision-free string key for a provider sequence. Each
// Provider is written in decimal and terminated by a byte that can't appear
// in strconv.Itoa's output, so the variable-width encoding is collision-free.
func sliceKey(providers []Provider) string {
	var b strings.Builder
	b.Grow(len(providers) * 6)
	for _, p := range providers {
		b.WriteString(strconv.Itoa(int(p)))
		b.WriteByte(',')
	}
	return b.String()
}
