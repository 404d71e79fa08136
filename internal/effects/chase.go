package effects

import (
	"math"
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The chase family animates position along a gradient fixture: a head
// advancing by a speed-derived step with trailing decay, or a palette
// rotated by tick index for zero per-tick recomputation.

// cometState tracks the head position in segment units.
type cometState struct {
	head float64
}

// Comet is a bright head with an inverse-square trail that warms as it
// falls further back.
type Comet struct{}

func (Comet) Name() string { return "comet" }

func (Comet) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Comet) Init(*rand.Rand) any { return &cometState{} }

func (Comet) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*cometState)

	// speed 0-100: nominal 50 moves one segment per 5 ticks
	step := opts.speed(50) / 250
	n := float64(run.Segments)
	trail := 4.0
	// the head runs off the end and wraps after the trail has cleared
	st.head += step
	if st.head > n+trail {
		st.head = 0
	}

	head := opts.colorAt(0, color.White)
	warm := opts.colorAt(1, color.New(255, 120, 30))
	bri := opts.brightness(1)

	segColor := func(i int) color.RGB {
		d := st.head - float64(i)
		switch {
		case d < 0: // ahead of the head: dark
			return color.Black
		case d < 1: // the head itself
			return head.Scale(bri)
		case d < trail: // inverse-square falloff, hue warming with distance
			fall := 1 / (d * d)
			c := color.Lerp(head, warm, clampUnit((d-1)/(trail-1)))
			return c.Scale(fall * bri)
		default:
			return color.Black
		}
	}

	// single fixtures get the head brightness as a passing pulse
	pulse := clampUnit(1 - math.Abs(st.head-n/2)/(n/2+trail))
	return Result{
		Color:    head.Scale(pulse * bri),
		Gradient: segmentGradient(run, segColor),
	}
}

// Meteor is a comet whose head restarts at random speed after each pass.
type Meteor struct{}

func (Meteor) Name() string { return "meteor" }

func (Meteor) Interval(Options) time.Duration { return 30 * time.Millisecond }

type meteorState struct {
	cometState
	step float64
}

func (Meteor) Init(rng *rand.Rand) any {
	return &meteorState{step: 0.15 + rng.Float64()*0.3}
}

func (Meteor) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*meteorState)

	n := float64(run.Segments)
	trail := 3.0
	st.head += st.step
	if st.head > n+trail {
		st.head = 0
		st.step = 0.15 + run.Rand.Float64()*0.3
	}

	head := opts.colorAt(0, color.New(200, 220, 255))
	bri := opts.brightness(1)

	segColor := func(i int) color.RGB {
		d := st.head - float64(i)
		switch {
		case d < 0:
			return color.Black
		case d < 1:
			return head.Scale(bri)
		case d < trail:
			return head.Scale(bri / (d * d))
		default:
			return color.Black
		}
	}

	return Result{
		Color:    head.Scale(bri * clampUnit(1-st.head/(n+trail))),
		Gradient: segmentGradient(run, segColor),
	}
}

// chasePalette is rotated by tick index; the rotation is the whole effect.
var chasePalette = []color.RGB{
	{R: 255, G: 0, B: 0},
	{R: 255, G: 128, B: 0},
	{R: 255, G: 255, B: 0},
	{R: 0, G: 255, B: 64},
	{R: 0, G: 128, B: 255},
	{R: 128, G: 0, B: 255},
}

// Chase rotates a fixed palette across the segments, one step per tick.
type Chase struct{}

func (Chase) Name() string { return "chase" }

func (Chase) Interval(opts Options) time.Duration {
	// speed is BPM-like: one palette step per beat
	bpm := opts.speed(120)
	return time.Duration(60000/bpm) * time.Millisecond
}

func (Chase) Init(*rand.Rand) any { return nil }

func (Chase) Cycle(run *Runtime, opts Options) Result {
	return rotatePalette(run, opts, chasePalette)
}

var desertPalette = []color.RGB{
	{R: 194, G: 107, B: 38},
	{R: 232, G: 164, B: 70},
	{R: 255, G: 205, B: 120},
	{R: 214, G: 126, B: 44},
	{R: 160, G: 72, B: 30},
}

// Desert is a slow warm palette rotation.
type Desert struct{}

func (Desert) Name() string { return "desert" }

func (Desert) Interval(Options) time.Duration { return 250 * time.Millisecond }

func (Desert) Init(*rand.Rand) any { return nil }

func (Desert) Cycle(run *Runtime, opts Options) Result {
	return rotatePalette(run, opts, desertPalette)
}

// rotatePalette offsets the palette by tick mod length and takes one entry
// per segment.
func rotatePalette(run *Runtime, opts Options, palette []color.RGB) Result {
	bri := opts.brightness(1)
	offset := run.Tick % len(palette)

	return Result{
		Color: palette[offset].Scale(bri),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			return palette[(offset+i)%len(palette)].Scale(bri)
		}),
	}
}

// Wipe sweeps the second color over the first, end to end, then back.
type Wipe struct{}

func (Wipe) Name() string { return "wipe" }

func (Wipe) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Wipe) Init(*rand.Rand) any { return &cometState{} }

func (Wipe) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*cometState)
	n := float64(run.Segments)

	step := opts.speed(50) / 500
	st.head += step
	cycle := math.Mod(st.head, 2*n)
	edge := cycle
	forward := true
	if cycle > n {
		edge = 2*n - cycle
		forward = false
	}

	a := opts.colorAt(0, color.New(0, 60, 255))
	b := opts.colorAt(1, color.New(255, 60, 0))
	if !forward {
		a, b = b, a
	}
	bri := opts.brightness(1)

	return Result{
		Color: color.Lerp(a, b, edge/n).Scale(bri),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			if float64(i) < edge {
				return b.Scale(bri)
			}
			return a.Scale(bri)
		}),
	}
}
