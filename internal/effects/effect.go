package effects

import (
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// Options are the user-configurable parameters of a running effect. All
// fields are optional; each generator applies its own defaults.
//
// Speed units are generator-specific: some treat it as a BPM-like value,
// others as an arbitrary 0-100 scale. The per-generator formula is the
// contract; there is no unified speed semantic.
type Options struct {
	Speed      float64
	Colors     []color.RGB // up to two user colors
	Brightness float64     // master scale, 0-1 (0 means "use default")
	Intensity  float64     // effect character amount, 0-1 (0 means "use default")
}

func (o Options) speed(def float64) float64 {
	if o.Speed <= 0 {
		return def
	}
	return o.Speed
}

func (o Options) brightness(def float64) float64 {
	if o.Brightness <= 0 {
		return def
	}
	if o.Brightness > 1 {
		return 1
	}
	return o.Brightness
}

func (o Options) intensity(def float64) float64 {
	if o.Intensity <= 0 {
		return def
	}
	if o.Intensity > 1 {
		return 1
	}
	return o.Intensity
}

// colorAt returns the i-th user color, or def when not supplied.
func (o Options) colorAt(i int, def color.RGB) color.RGB {
	if i < len(o.Colors) {
		return o.Colors[i]
	}
	return def
}

// Result is one tick's output. Gradient, when non-nil, carries one entry
// per segment and takes precedence over Color for gradient fixtures.
type Result struct {
	Color    color.RGB
	Gradient []color.RGB
}

// Runtime is the per-instance state handed to every Cycle call. Each
// running instance owns its Runtime exclusively - generators may mutate
// State freely with no cross-tick synchronization.
type Runtime struct {
	// Elapsed is the time since the effect started.
	Elapsed time.Duration
	// Tick counts Cycle invocations, starting at 0.
	Tick int
	// Segments is the light's segment count (1 for simple fixtures).
	Segments int
	// Gradient reports whether the light is a multi-segment fixture.
	Gradient bool
	// Rand is the instance's random source. Seeded per instance; tests
	// seed it deterministically.
	Rand *rand.Rand
	// State is the generator's private state from Init.
	State any
}

// Effect is the uniform contract every procedural generator implements.
type Effect interface {
	// Name is the generator's registry identifier.
	Name() string
	// Interval returns the tick period. May depend on the speed option.
	Interval(opts Options) time.Duration
	// Init returns the generator's private state, consumed only by its
	// own Cycle.
	Init(rng *rand.Rand) any
	// Cycle computes the next color (or per-segment gradient) for the
	// light. Invoked once per tick.
	Cycle(run *Runtime, opts Options) Result
}
