package effects

import (
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The scene ramps progress monotonically through a long gradient over a
// configurable duration, then hold the final color. Segment rendering
// staggers the progress slightly so the transition travels.

// Sunrise ramps from deep night blue through red and amber to warm white.
type Sunrise struct{}

func (Sunrise) Name() string { return "sunrise" }

func (Sunrise) Interval(Options) time.Duration { return 200 * time.Millisecond }

func (Sunrise) Init(*rand.Rand) any { return nil }

func (Sunrise) Cycle(run *Runtime, opts Options) Result {
	return sceneRamp(run, opts, false)
}

// Sunset is the sunrise ramp in reverse, ending near-dark.
type Sunset struct{}

func (Sunset) Name() string { return "sunset" }

func (Sunset) Interval(Options) time.Duration { return 200 * time.Millisecond }

func (Sunset) Init(*rand.Rand) any { return nil }

func (Sunset) Cycle(run *Runtime, opts Options) Result {
	return sceneRamp(run, opts, true)
}

func sceneRamp(run *Runtime, opts Options, reverse bool) Result {
	// speed is the ramp duration in minutes
	minutes := opts.speed(10)
	progress := clampUnit(run.Elapsed.Minutes() / minutes)
	if reverse {
		progress = 1 - progress
	}

	bri := opts.brightness(1)
	at := func(i int) color.RGB {
		// later segments lag slightly, about 2% of the ramp per segment
		p := progress - float64(i)*0.02
		if reverse {
			p = progress + float64(i)*0.02
		}
		return rampAt(sunriseRamp, clampUnit(p)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}
