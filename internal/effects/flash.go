package effects

import (
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The flash family triggers stochastically at low per-tick probability,
// gated by a cooldown counter that is re-armed to a randomized minimum
// duration on every trigger. The cooldown bounds maximum flash frequency
// well under flicker-safety thresholds; intensity decays geometrically
// instead of switching off abruptly.

// Thunderstorm cooldown bounds, in ticks of thunderInterval.
const (
	thunderInterval     = 50 * time.Millisecond
	thunderMinCooldown  = 30 // 1.5s floor between flashes
	thunderCooldownSpan = 60
	thunderTriggerProb  = 0.04
)

// Thunderstorm is a dim blue base with white lightning strikes and a
// slower-decaying afterglow simulating distant secondary light.
type Thunderstorm struct{}

func (Thunderstorm) Name() string { return "thunderstorm" }

func (Thunderstorm) Interval(Options) time.Duration { return thunderInterval }

func (Thunderstorm) Init(*rand.Rand) any { return &flashState{} }

func (Thunderstorm) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*flashState)
	st.trigger(run.Rand, thunderTriggerProb, thunderMinCooldown, thunderCooldownSpan)
	st.decay(0.55, 0.93)

	base := opts.colorAt(0, color.New(8, 12, 40)).Scale(opts.brightness(1))
	strike := color.New(230, 235, 255)

	blend := func(segBoost float64) color.RGB {
		c := color.Lerp(base, strike, clampUnit(st.flash*(1+segBoost)))
		return color.Lerp(c, color.New(90, 100, 170), st.glow*0.5)
	}

	var flashSeg int
	if run.Gradient {
		// the strike lands on one segment and bleeds into neighbours
		flashSeg = run.Rand.Intn(run.Segments)
	}

	return Result{
		Color: blend(0),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			d := i - flashSeg
			if d < 0 {
				d = -d
			}
			return blend(-0.3 * float64(d))
		}),
	}
}

// Lightning is the strikes without the storm: black base, violet-white
// flashes.
type Lightning struct{}

func (Lightning) Name() string { return "lightning" }

func (Lightning) Interval(Options) time.Duration { return thunderInterval }

func (Lightning) Init(*rand.Rand) any { return &flashState{} }

func (Lightning) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*flashState)
	st.trigger(run.Rand, 0.03, thunderMinCooldown, thunderCooldownSpan*2)
	st.decay(0.5, 0.9)

	strike := opts.colorAt(0, color.New(225, 215, 255))
	c := color.Lerp(color.Black, strike, st.flash).Scale(opts.brightness(1))

	return Result{
		Color: c,
		Gradient: segmentGradient(run, func(i int) color.RGB {
			// jagged per-segment falloff
			return c.Scale(clampUnit(0.4 + 0.6*run.Rand.Float64()))
		}),
	}
}

// strobeMinPeriod is the hard floor on the strobe period; speeds beyond it
// are clamped for flicker safety.
const strobeMinPeriod = 10 // ticks at 25ms = 250ms between flashes

// Strobe is a deterministic flash train with an enforced minimum period.
type Strobe struct{}

func (Strobe) Name() string { return "strobe" }

func (Strobe) Interval(Options) time.Duration { return 25 * time.Millisecond }

func (Strobe) Init(*rand.Rand) any { return &flashState{} }

func (Strobe) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*flashState)

	// speed 0-100 maps to period, clamped at the safety floor
	period := int(40 - opts.speed(50)*0.3)
	if period < strobeMinPeriod {
		period = strobeMinPeriod
	}

	if st.cooldown > 0 {
		st.cooldown--
	} else {
		st.flash = 1
		st.cooldown = period
	}
	st.decay(0.4, 1)

	c := opts.colorAt(0, color.White).Scale(st.flash * opts.brightness(1))
	return Result{Color: c}
}

// Police alternates red and blue halves at a bounded rate; gradient
// fixtures split down the middle with the halves swapping.
type Police struct{}

func (Police) Name() string { return "police" }

func (Police) Interval(Options) time.Duration { return 60 * time.Millisecond }

func (Police) Init(*rand.Rand) any { return nil }

func (Police) Cycle(run *Runtime, opts Options) Result {
	red := color.New(255, 0, 20)
	blue := color.New(0, 40, 255)

	// 6 ticks per half-cycle keeps the swap rate near 1.4 Hz
	phase := (run.Tick / 6) % 2
	a, b := red, blue
	if phase == 1 {
		a, b = blue, red
	}

	bri := opts.brightness(1)
	return Result{
		Color: a.Scale(bri),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			if i < run.Segments/2 {
				return a.Scale(bri)
			}
			return b.Scale(bri)
		}),
	}
}

// Paparazzi is a burst of small white pops on random segments, cooldown
// bounded like the other flash effects.
type Paparazzi struct{}

func (Paparazzi) Name() string { return "paparazzi" }

func (Paparazzi) Interval(Options) time.Duration { return 40 * time.Millisecond }

// paparazziState tracks an independent decay per segment.
type paparazziState struct {
	levels []float64
}

func (Paparazzi) Init(*rand.Rand) any { return &paparazziState{} }

func (Paparazzi) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*paparazziState)
	if len(st.levels) != run.Segments {
		st.levels = make([]float64, run.Segments)
	}

	prob := 0.02 + 0.08*opts.intensity(0.4)
	for i := range st.levels {
		st.levels[i] *= 0.6
		if run.Rand.Float64() < prob {
			st.levels[i] = 1
		}
	}

	bri := opts.brightness(1)
	flash := opts.colorAt(0, color.White)

	return Result{
		Color: flash.Scale(st.levels[0] * bri),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			return flash.Scale(st.levels[i] * bri)
		}),
	}
}
