package effects

import (
	"math"
	"math/rand"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// The ambient family is driven by slow phase oscillators sampled per
// segment, occasionally perturbed by noise. These run indefinitely, so the
// per-tick cost is a handful of sin calls and a ramp lookup.

// Aurora drifts between deep green and violet along the fixture.
type Aurora struct{}

func (Aurora) Name() string { return "aurora" }

func (Aurora) Interval(Options) time.Duration { return 50 * time.Millisecond }

func (Aurora) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Aurora) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.021, 0.034, 0.013}, 0.004, 0, 1)

	bri := opts.brightness(0.85)
	at := func(i int) color.RGB {
		t := 0.5 + 0.28*math.Sin(st.phases[0]+float64(i)*0.45) +
			0.18*math.Sin(st.phases[1]+float64(i)*0.8)
		return rampAt(auroraRamp, clampUnit(t)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Ocean rolls slow blue swells.
type Ocean struct{}

func (Ocean) Name() string { return "ocean" }

func (Ocean) Interval(Options) time.Duration { return 60 * time.Millisecond }

func (Ocean) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Ocean) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.03, 0.017, 0.045}, 0.003, 0, 1)

	bri := opts.brightness(0.8)
	at := func(i int) color.RGB {
		t := 0.45 + 0.3*math.Sin(st.phases[0]+float64(i)*0.5) +
			0.15*math.Sin(st.phases[2]+float64(i)*1.2)
		return rampAt(oceanRamp, clampUnit(t)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Underwater is ocean plus caustic shimmer: fast low-amplitude noise on
// top of the swell.
type Underwater struct{}

func (Underwater) Name() string { return "underwater" }

func (Underwater) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Underwater) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Underwater) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.05, 0.085, 0.02}, 0.02, 0, 1)

	bri := opts.brightness(0.8)
	at := func(i int) color.RGB {
		swell := 0.4 + 0.2*math.Sin(st.phases[2]+float64(i)*0.4)
		shimmer := 0.12 * math.Sin(st.phases[1]+float64(i)*2.1)
		shimmer += (run.Rand.Float64() - 0.5) * 0.06
		return rampAt(oceanRamp, clampUnit(swell+shimmer+0.2)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Forest breathes between deep and bright greens.
type Forest struct{}

func (Forest) Name() string { return "forest" }

func (Forest) Interval(Options) time.Duration { return 80 * time.Millisecond }

func (Forest) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Forest) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.015, 0.024, 0.01}, 0.002, 0, 1)

	dark := color.New(4, 40, 10)
	bright := color.New(60, 200, 70)
	bri := opts.brightness(0.8)

	at := func(i int) color.RGB {
		t := 0.5 + 0.4*math.Sin(st.phases[0]+float64(i)*0.6)
		return color.Lerp(dark, bright, clampUnit(t)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Lava creeps through the dark-red end of the fire ramp.
type Lava struct{}

func (Lava) Name() string { return "lava" }

func (Lava) Interval(Options) time.Duration { return 90 * time.Millisecond }

func (Lava) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Lava) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.012, 0.019, 0.007}, 0.004, 0.002, 0.95)

	bri := opts.brightness(0.9)
	at := func(i int) color.RGB {
		t := 0.45 + 0.35*math.Sin(st.phases[0]+float64(i)*0.35) + st.crackle*0.3
		return rampAt(lavaRamp, clampUnit(t)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Snow is a cool white base with soft glints.
type Snow struct{}

func (Snow) Name() string { return "snow" }

func (Snow) Interval(Options) time.Duration { return 70 * time.Millisecond }

type glintState struct {
	levels []float64
}

func (Snow) Init(*rand.Rand) any { return &glintState{} }

func (Snow) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*glintState)
	if len(st.levels) != run.Segments {
		st.levels = make([]float64, run.Segments)
	}

	for i := range st.levels {
		st.levels[i] *= 0.85
		if run.Rand.Float64() < 0.015 {
			st.levels[i] = 1
		}
	}

	base := color.New(160, 190, 230)
	glint := color.White
	bri := opts.brightness(0.7)

	at := func(i int) color.RGB {
		return color.Lerp(base, glint, st.levels[i]).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Rain drops cold blue streaks that fade quickly.
type Rain struct{}

func (Rain) Name() string { return "rain" }

func (Rain) Interval(Options) time.Duration { return 50 * time.Millisecond }

func (Rain) Init(*rand.Rand) any { return &glintState{} }

func (Rain) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*glintState)
	if len(st.levels) != run.Segments {
		st.levels = make([]float64, run.Segments)
	}

	prob := 0.02 + 0.06*opts.intensity(0.5)
	for i := range st.levels {
		st.levels[i] *= 0.7
		if run.Rand.Float64() < prob {
			st.levels[i] = 0.8 + 0.2*run.Rand.Float64()
		}
	}

	base := color.New(6, 10, 30)
	drop := color.New(80, 140, 255)
	bri := opts.brightness(0.8)

	at := func(i int) color.RGB {
		return color.Lerp(base, drop, st.levels[i]).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Sparkle pops bright glints of the user color over a dimmed base.
type Sparkle struct{}

func (Sparkle) Name() string { return "sparkle" }

func (Sparkle) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Sparkle) Init(*rand.Rand) any { return &glintState{} }

func (Sparkle) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*glintState)
	if len(st.levels) != run.Segments {
		st.levels = make([]float64, run.Segments)
	}

	prob := 0.01 + 0.1*opts.intensity(0.4)
	for i := range st.levels {
		st.levels[i] *= 0.65
		if run.Rand.Float64() < prob {
			st.levels[i] = 1
		}
	}

	c := opts.colorAt(0, color.New(255, 220, 180))
	bri := opts.brightness(1)
	base := c.Scale(0.15 * bri)

	at := func(i int) color.RGB {
		return color.Lerp(base, c.Scale(bri), st.levels[i])
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Twinkle random-walks each segment's brightness slowly, like fairy lights.
type Twinkle struct{}

func (Twinkle) Name() string { return "twinkle" }

func (Twinkle) Interval(Options) time.Duration { return 80 * time.Millisecond }

type twinkleState struct {
	levels  []float64
	targets []float64
}

func (Twinkle) Init(*rand.Rand) any { return &twinkleState{} }

func (Twinkle) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*twinkleState)
	if len(st.levels) != run.Segments {
		st.levels = make([]float64, run.Segments)
		st.targets = make([]float64, run.Segments)
		for i := range st.targets {
			st.targets[i] = run.Rand.Float64()
		}
	}

	for i := range st.levels {
		st.levels[i] += (st.targets[i] - st.levels[i]) * 0.1
		if math.Abs(st.targets[i]-st.levels[i]) < 0.03 {
			st.targets[i] = run.Rand.Float64()
		}
	}

	c := opts.colorAt(0, color.New(255, 200, 120))
	bri := opts.brightness(0.9)

	at := func(i int) color.RGB {
		return c.Scale((0.2 + 0.8*st.levels[i]) * bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Plasma overlays two travelling sine fields and maps them onto the two
// user colors.
type Plasma struct{}

func (Plasma) Name() string { return "plasma" }

func (Plasma) Interval(Options) time.Duration { return 40 * time.Millisecond }

func (Plasma) Init(rng *rand.Rand) any { return newOscState(rng) }

func (Plasma) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*oscState)
	st.advance(run.Rand, [3]float64{0.07, 0.11, 0.05}, 0, 0, 1)

	a := opts.colorAt(0, color.New(255, 0, 128))
	b := opts.colorAt(1, color.New(0, 128, 255))
	bri := opts.brightness(0.9)

	at := func(i int) color.RGB {
		t := 0.5 + 0.25*math.Sin(st.phases[0]+float64(i)*0.9) +
			0.25*math.Sin(st.phases[1]-float64(i)*0.6)
		return color.Lerp(a, b, clampUnit(t)).Scale(bri)
	}

	return Result{
		Color:    at(0),
		Gradient: segmentGradient(run, at),
	}
}

// Colorloop rotates hue continuously, the streaming stand-in for the
// bridge's native prism effect.
type Colorloop struct{}

func (Colorloop) Name() string { return "colorloop" }

func (Colorloop) Interval(Options) time.Duration { return 50 * time.Millisecond }

func (Colorloop) Init(*rand.Rand) any { return nil }

func (Colorloop) Cycle(run *Runtime, opts Options) Result {
	// speed 0-100: nominal 50 is one full loop per 20s
	degPerSec := 18 * opts.speed(50) / 50
	hue := math.Mod(run.Elapsed.Seconds()*degPerSec, 360)
	c := color.HSV(hue, 1, opts.brightness(1))
	return Result{Color: c}
}

// Rainbow is a colorloop with the full hue wheel spread along the fixture.
type Rainbow struct{}

func (Rainbow) Name() string { return "rainbow" }

func (Rainbow) Interval(Options) time.Duration { return 50 * time.Millisecond }

func (Rainbow) Init(*rand.Rand) any { return nil }

func (Rainbow) Cycle(run *Runtime, opts Options) Result {
	degPerSec := 36 * opts.speed(50) / 50
	base := run.Elapsed.Seconds() * degPerSec
	v := opts.brightness(1)

	return Result{
		Color: color.HSV(base, 1, v),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			return color.HSV(base+float64(i)*360/float64(run.Segments), 1, v)
		}),
	}
}

// Neon holds a saturated color with occasional tube-style dropout flicker.
type Neon struct{}

func (Neon) Name() string { return "neon" }

func (Neon) Interval(Options) time.Duration { return 30 * time.Millisecond }

type neonState struct {
	dropout int
}

func (Neon) Init(*rand.Rand) any { return &neonState{} }

func (Neon) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*neonState)

	level := 1.0
	if st.dropout > 0 {
		st.dropout--
		level = 0.25 + 0.2*run.Rand.Float64()
	} else if run.Rand.Float64() < 0.01 {
		st.dropout = 1 + run.Rand.Intn(4)
	}

	c := opts.colorAt(0, color.New(255, 40, 220)).Scale(level * opts.brightness(1))
	return Result{Color: c}
}

// Disco jumps to a random saturated hue on every beat.
type Disco struct{}

func (Disco) Name() string { return "disco" }

func (Disco) Interval(opts Options) time.Duration {
	// speed is BPM-like
	bpm := opts.speed(128)
	return time.Duration(60000/bpm) * time.Millisecond
}

type discoState struct {
	hues []float64
}

func (Disco) Init(*rand.Rand) any { return &discoState{} }

func (Disco) Cycle(run *Runtime, opts Options) Result {
	st := run.State.(*discoState)
	if len(st.hues) != run.Segments {
		st.hues = make([]float64, run.Segments)
	}
	for i := range st.hues {
		st.hues[i] = run.Rand.Float64() * 360
	}

	v := opts.brightness(1)
	return Result{
		Color: color.HSV(st.hues[0], 1, v),
		Gradient: segmentGradient(run, func(i int) color.RGB {
			return color.HSV(st.hues[i], 1, v)
		}),
	}
}
