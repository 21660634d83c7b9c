package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelRegistryPinThenTarget(t *testing.T) {
	r := NewLabelRegistry()
	l := r.New()

	require.False(t, r.IsPinned(l))
	r.Pin(l, 7)
	require.True(t, r.IsPinned(l))
	require.Equal(t, uint32(7), r.Target(l))
}

func TestLabelRegistryPinTwiceFails(t *testing.T) {
	r := NewLabelRegistry()
	l := r.New()
	r.Pin(l, 0)

	require.Panics(t, func() { r.Pin(l, 1) })
}

func TestLabelRegistryTryPinIsIdempotent(t *testing.T) {
	r := NewLabelRegistry()
	l := r.New()

	r.TryPin(l, 3)
	require.NotPanics(t, func() { r.TryPin(l, 99) })
	require.Equal(t, uint32(3), r.Target(l), "the first pin wins; later TryPin calls are no-ops")
}

func TestLabelRegistryTargetBeforePinPanics(t *testing.T) {
	r := NewLabelRegistry()
	l := r.New()

	require.Panics(t, func() { r.Target(l) })
}

func TestLabelRegistryLabelsAreIndependent(t *testing.T) {
	r := NewLabelRegistry()
	a := r.New()
	b := r.New()
	r.Pin(a, 1)

	require.True(t, r.IsPinned(a))
	require.False(t, r.IsPinned(b))
}
