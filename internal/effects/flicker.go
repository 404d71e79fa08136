package effects

import (
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The flicker family combines 2-3 independent phase oscillators advancing
// at different fixed rates with per-tick random jitter, sums weighted sine
// values into a 0-1 flicker signal and maps it onto the fire ramp. A
// decaying crackle scalar adds stochastic pops. Per-segment rendering
// offsets the oscillator phases by segment index so the flicker travels
// along gradient fixtures instead of pulsing in lockstep.

// Candle is a small, calm warm flicker.
type Candle struct{}

func (Candle) Name() string { return "candle" }

// Interval is fixed: candle speed changes amplitude, not tick rate.
func (Candle) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Candle) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Candle) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.31, 0.47, 0.89}, 0.12, 0.005, 0.82)

	bri := opts.brightness(0.75)
	amount := opts.intensity(0.5)

	level := func(i int) float64 {
		s := st.signal(float64(i) * 0.9)
		// keep candles in the warm lower half of the ramp
		return (0.25 + 0.45*s*amount*2) * bri
	}

	return Result{
		Color:    rampAt(fireRamp, level(0)),
		Gradient: segmentGradient(run, func(i int) color.RGB { return rampAt(fireRamp, level(i)) }),
	}
}

// Fireplace is a deeper, slower burn with pronounced crackle.
type Fireplace struct{}

func (Fireplace) Name() string { return "fireplace" }

func (Fireplace) Interval(opts Options) time.Duration {
	// speed is a 0-100 scale; 50 is the nominal 50ms tick
	ms := 50 / (opts.speed(50) / 50)
	return time.Duration(ms * float64(time.Millisecond))
}

func (Fireplace) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Fireplace) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.17, 0.29, 0.53}, 0.2, 0.03, 0.85)

	bri := opts.brightness(0.9)
	level := func(i int) float64 {
		return st.signal(float64(i)*1.1) * 0.8 * bri
	}

	return Result{
		Color:    rampAt(fireRamp, level(0)),
		Gradient: segmentGradient(run, func(i int) color.RGB { return rampAt(fireRamp, level(i)) }),
	}
}

// Fire is an aggressive open flame: faster oscillators, more jitter, the
// occasional white-hot spike.
type Fire struct{}

func (Fire) Name() string { return "fire" }

func (Fire) Interval(Options) time.Duration { return 30 * time.Millisecond }

func (Fire) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Fire) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.43, 0.71, 1.13}, 0.35, 0.06, 0.8)

	bri := opts.brightness(1)
	level := func(i int) float64 {
		return st.signal(float64(i)*1.4) * bri
	}

	return Result{
		Color:    rampAt(fireRamp, level(0)),
		Gradient: segmentGradient(run, func(i int) color.RGB { return rampAt(fireRamp, level(i)) }),
	}
}

// Ember is the near-death end of the fire: deep reds with rare faint pops.
type Ember struct{}

func (Ember) Name() string { return "ember" }

func (Ember) Interval(Options) time.Duration { return 80 * time.Millisecond }

func (Ember) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Ember) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.08, 0.13, 0.21}, 0.05, 0.008, 0.9)

	bri := opts.brightness(0.5)
	level := func(i int) float64 {
		return (0.08 + 0.25*st.signal(float64(i)*0.7)) * bri
	}

	return Result{
		Color:    rampAt(fireRamp, level(0)),
		Gradient: segmentGradient(run, func(i int) color.RGB { return rampAt(fireRamp, level(i)) }),
	}
}
