package effects

import (
	"math"
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The pulse family modulates brightness over a fixed waveform; position
// along the waveform is derived from elapsed time, so a missed tick never
// desynchronizes the rhythm.

// Breathe is a smooth sinusoidal swell between 20% and full brightness.
type Breathe struct{}

func (Breathe) Name() string { return "breathe" }

func (Breathe) Interval(Options) time.Duration { return 50 * time.Millisecond }

func (Breathe) Init(*rand.Rand) any { return nil }

func (Breathe) Cycle(run *Runtime, opts Options) Result {
	// speed is BPM-like: breaths per minute
	period := 60 / opts.speed(8)
	phase := run.Elapsed.Seconds() / period * 2 * math.Pi
	level := 0.2 + 0.8*(0.5+0.5*math.Sin(phase))

	c := opts.colorAt(0, color.New(180, 200, 255)).Scale(level * opts.brightness(1))
	return Result{Color: c}
}

// Pulse is a sharp attack with exponential decay, one pulse per beat.
type Pulse struct{}

func (Pulse) Name() string { return "pulse" }

func (Pulse) Interval(Options) time.Duration { return 25 * time.Millisecond }

func (Pulse) Init(*rand.Rand) any { return nil }

func (Pulse) Cycle(run *Runtime, opts Options) Result {
	period := 60 / opts.speed(60)
	t := math.Mod(run.Elapsed.Seconds(), period) / period
	level := math.Exp(-5 * t)

	c := opts.colorAt(0, color.New(255, 60, 60)).Scale(level * opts.brightness(1))
	return Result{Color: c}
}

// heartbeatWave holds the lub-dub envelope sampled over one beat period.
var heartbeatWave = []float64{
	0.15, 0.9, 1.0, 0.6, 0.3, 0.2, 0.75, 0.85, 0.5, 0.3,
	0.2, 0.15, 0.12, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1,
}

// Heartbeat plays a double-beat envelope at a BPM-like speed.
type Heartbeat struct{}

func (Heartbeat) Name() string { return "heartbeat" }

func (Heartbeat) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Heartbeat) Init(*rand.Rand) any { return nil }

func (Heartbeat) Cycle(run *Runtime, opts Options) Result {
	period := 60 / opts.speed(60)
	t := math.Mod(run.Elapsed.Seconds(), period) / period
	idx := int(t * float64(len(heartbeatWave)))
	if idx >= len(heartbeatWave) {
		idx = len(heartbeatWave) - 1
	}

	c := opts.colorAt(0, color.New(255, 20, 40)).Scale(heartbeatWave[idx] * opts.brightness(1))
	return Result{Color: c}
}

// Alarm is a hard on/off red pulse at a deliberately moderate rate.
type Alarm struct{}

func (Alarm) Name() string { return "alarm" }

func (Alarm) Interval(Options) time.Duration { return 100 * time.Millisecond }

func (Alarm) Init(*rand.Rand) any { return nil }

func (Alarm) Cycle(run *Runtime, opts Options) Result {
	on := (run.Tick/5)%2 == 0 // 0.5s on, 0.5s off
	c := color.Black
	if on {
		c = opts.colorAt(0, color.New(255, 0, 0)).Scale(opts.brightness(1))
	}
	return Result{Color: c}
}
