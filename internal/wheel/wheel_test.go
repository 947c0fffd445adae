package wheel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWheel_MarkAndCooldown(t *testing.T) {
	w := New(8, 250*time.Millisecond)
	require.False(t, w.IsOnCooldown(7))
	w.Mark(7)
	require.True(t, w.IsOnCooldown(7))
	require.False(t, w.IsOnCooldown(8))
}

func TestWheel_AdvanceClearsOldestSlot(t *testing.T) {
	w := New(2, 250*time.Millisecond)
	w.Mark(100)
	require.True(t, w.IsOnCooldown(100))

	// Advancing S times without re-marking clears it.
	w.Advance()
	require.True(t, w.IsOnCooldown(100), "still covered by the other slot")
	w.Advance()
	require.False(t, w.IsOnCooldown(100), "both slots have rotated past the mark")
}

func TestWheel_CooldownEnforcementOverWindow(t *testing.T) {
	tick := 10 * time.Millisecond
	w := New(4, tick)
	start := time.Now()

	w.MaybeAdvance(start) // primes lastTick, per MaybeAdvance's first-call contract
	w.Mark(7)
	require.True(t, w.IsOnCooldown(7))

	// Half the window: still on cooldown.
	mid := start.Add(w.Window() / 2)
	for i := 0; i < 2; i++ {
		w.MaybeAdvance(mid)
	}
	require.True(t, w.IsOnCooldown(7))

	// Full window elapsed across all slots: cleared.
	end := start.Add(w.Window() + tick)
	for i := 0; i < w.Slots()+1; i++ {
		w.MaybeAdvance(end.Add(time.Duration(i) * tick))
	}
	require.False(t, w.IsOnCooldown(7))
}

func TestWheel_MaybeAdvance_RespectsTickBoundary(t *testing.T) {
	w := New(8, 100*time.Millisecond)
	start := time.Now()
	require.False(t, w.MaybeAdvance(start))
	require.False(t, w.MaybeAdvance(start.Add(50*time.Millisecond)))
	require.True(t, w.MaybeAdvance(start.Add(150*time.Millisecond)))
}

func TestWheel_IndependentUsersIsolated(t *testing.T) {
	w := New(8, 250*time.Millisecond)
	w.Mark(0)
	w.Mark(1 << 20 - 1) // highest valid user id
	require.True(t, w.IsOnCooldown(0))
	require.True(t, w.IsOnCooldown(1<<20-1))
	require.False(t, w.IsOnCooldown(500000))
}
