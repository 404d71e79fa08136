package effects

import (
	"math"
	"math/rand"

	"github.com/mazznoer/colorgrad"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// mustRamp builds a multi-stop color ramp. Ramps are package-level
// constants, so a bad literal is a programming error.
func mustRamp(stops ...string) colorgrad.Gradient {
	g, err := colorgrad.NewGradient().HtmlColors(stops...).Build()
	if err != nil {
		panic(err)
	}
	return g
}

var (
	// fireRamp is the 4-stop ember->orange->yellow->white brightness ramp
	// shared by the flicker family.
	fireRamp = mustRamp("#1a0400", "#e25822", "#ffc24d", "#fff6e0")

	sunriseRamp = mustRamp("#0b0b2a", "#6a1b4d", "#e2572b", "#ffc24d", "#fff2d9")
	lavaRamp    = mustRamp("#2a0400", "#8a1a00", "#e2431e", "#ff9d33")
	auroraRamp  = mustRamp("#021a10", "#0fd18a", "#2a9df4", "#7a2ff0")
	oceanRamp   = mustRamp("#021226", "#0a4f8a", "#1390b8", "#6fe3d4")
)

func rampAt(g colorgrad.Gradient, t float64) color.RGB {
	return color.FromColorful(g.At(clampUnit(t)))
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// oscState is the shared state of the multi-oscillator flicker family:
// independent phase accumulators plus a geometrically decaying crackle
// scalar that is stochastically re-armed.
type oscState struct {
	phases  [3]float64
	crackle float64
}

func newOscState(rng *rand.Rand) *oscState {
	st := &oscState{}
	for i := range st.phases {
		st.phases[i] = rng.Float64() * 2 * math.Pi
	}
	return st
}

// advance moves each phase by its rate plus uniform jitter and updates the
// crackle scalar. crackleProb is the per-tick re-arm probability.
func (st *oscState) advance(rng *rand.Rand, rates [3]float64, jitter, crackleProb, crackleDecay float64) {
	for i := range st.phases {
		st.phases[i] += rates[i] + (rng.Float64()-0.5)*jitter
	}
	if rng.Float64() < crackleProb {
		st.crackle = 0.5 + 0.5*rng.Float64()
	}
	st.crackle *= crackleDecay
}

// signal sums weighted sines into a 0-1 flicker value. segOffset shifts
// every phase so segments travel rather than flicker in lockstep.
func (st *oscState) signal(segOffset float64) float64 {
	v := 0.55 +
		0.22*math.Sin(st.phases[0]+segOffset) +
		0.15*math.Sin(st.phases[1]+segOffset*1.7) +
		0.08*math.Sin(st.phases[2]+segOffset*2.3)
	return clampUnit(v + st.crackle)
}

// flashState is the shared state of the safety-bounded flash family. The
// cooldown counter bounds maximum flash frequency: it is re-armed to a
// randomized minimum duration on every trigger.
type flashState struct {
	cooldown int
	flash    float64
	glow     float64
}

// trigger fires a flash stochastically when the cooldown has expired.
// Returns true when a new flash started this tick.
func (st *flashState) trigger(rng *rand.Rand, prob float64, minCooldown, cooldownSpread int) bool {
	if st.cooldown > 0 {
		st.cooldown--
		return false
	}
	if rng.Float64() >= prob {
		return false
	}
	st.flash = 1
	st.glow = 0.35 + 0.25*rng.Float64()
	st.cooldown = minCooldown
	if cooldownSpread > 0 {
		st.cooldown += rng.Intn(cooldownSpread)
	}
	return true
}

// decay applies geometric decay to the flash and afterglow scalars. The
// flash factor keeps intensity above baseline for >=100ms at typical tick
// rates rather than switching off abruptly.
func (st *flashState) decay(flashFactor, glowFactor float64) {
	st.flash *= flashFactor
	if st.flash < 0.005 {
		st.flash = 0
	}
	st.glow *= glowFactor
	if st.glow < 0.005 {
		st.glow = 0
	}
}

// segmentGradient renders per-segment detail by calling f for each segment
// index when the runtime drives a gradient fixture, otherwise nil.
func segmentGradient(run *Runtime, f func(i int) color.RGB) []color.RGB {
	if !run.Gradient || run.Segments < 2 {
		return nil
	}
	out := make([]color.RGB, run.Segments)
	for i := range out {
		out[i] = f(i)
	}
	return out
}
