package effects

import (
	"math/rand"
	"testing"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// One simulated minute of thunderstorm ticks: the cooldown must hold the
// gap between any two flashes at or above its floor, whatever the random
// source does.
func TestFlashCooldownBoundsFrequency(t *testing.T) {
	const ticks = 1200 // 60s at the thunderstorm tick rate

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		st := &flashState{}

		last := -1
		count := 0
		for i := 0; i < ticks; i++ {
			if st.trigger(rng, thunderTriggerProb, thunderMinCooldown, thunderCooldownSpan) {
				if last >= 0 && i-last <= thunderMinCooldown {
					t.Fatalf("seed %d: flashes %d ticks apart, floor is %d", seed, i-last, thunderMinCooldown)
				}
				last = i
				count++
			}
		}

		if max := ticks/thunderMinCooldown + 1; count > max {
			t.Errorf("seed %d: %d flashes in %d ticks, cooldown allows at most %d", seed, count, ticks, max)
		}
	}
}

func TestFlashDecayReachesZero(t *testing.T) {
	st := &flashState{flash: 1, glow: 1}
	for i := 0; i < 100; i++ {
		st.decay(0.55, 0.93)
	}
	if st.flash != 0 || st.glow != 0 {
		t.Errorf("decay left residue: flash=%v glow=%v", st.flash, st.glow)
	}
}

// Strobe clamps any requested speed at the safety floor. A full-white
// output marks a flash tick.
func TestStrobeEnforcesMinimumPeriod(t *testing.T) {
	for _, speed := range []float64{50, 100, 10000} {
		e := Strobe{}
		run := newRuntime(e, 3, 1, false)

		last := -1
		for i := 0; i < 200; i++ {
			res := e.Cycle(run, Options{Speed: speed})
			run.Tick++
			if res.Color == color.White {
				if last >= 0 && i-last < strobeMinPeriod {
					t.Fatalf("speed %v: flashes %d ticks apart, floor is %d", speed, i-last, strobeMinPeriod)
				}
				last = i
			}
		}
		if last < 0 {
			t.Fatalf("speed %v: strobe never flashed", speed)
		}
	}
}

// Police halves swap on a fixed cadence rather than strobing.
func TestPoliceSwapsHalves(t *testing.T) {
	e := Police{}
	run := newRuntime(e, 3, 6, true)

	first := e.Cycle(run, Options{})
	if len(first.Gradient) != 6 {
		t.Fatalf("gradient has %d entries, want 6", len(first.Gradient))
	}
	if first.Gradient[0] == first.Gradient[5] {
		t.Error("halves show the same color")
	}

	run.Tick = 6 // first swap boundary
	swapped := e.Cycle(run, Options{})
	if swapped.Gradient[0] != first.Gradient[5] || swapped.Gradient[5] != first.Gradient[0] {
		t.Error("halves did not swap after the half-cycle")
	}
}
