package effects

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// minInterval bounds how fast a generator may tick regardless of its
// configured speed.
const minInterval = 10 * time.Millisecond

// LightSink is the streaming write path (the channel/gradient router).
type LightSink interface {
	IsStreamable(lightID string) bool
	SetLightColor(lightID string, c color.RGB) bool
	SetLightGradient(lightID string, colors []color.RGB) bool
	IsGradientLight(lightID string) bool
	SegmentCount(lightID string) int
}

// FallbackSink is the request/response path used when a light is not
// currently streamable.
type FallbackSink interface {
	SetLightColor(ctx context.Context, lightID string, c color.RGB) error
	SetLightGradient(ctx context.Context, lightID string, colors []color.RGB) error
}

// instance is one Running Effect Instance: a light, its generator, merged
// options and the private runtime nobody else touches.
type instance struct {
	light  string
	effect Effect
	opts   Options
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner manages the running effect instances, one independent periodic
// task per active light. At most one instance exists per light; starting a
// new one always first tears down any existing one for that light.
type Runner struct {
	registry *Registry
	router   LightSink
	fallback FallbackSink // may be nil

	// seed produces per-instance random seeds; tests pin it.
	seed func() int64

	// startMu serializes lifecycle transitions: tearing down an existing
	// instance and installing its replacement must act as one step, or two
	// racing Starts can both pass teardown and one instance leaks with no
	// reachable cancel.
	startMu sync.Mutex

	mu      sync.Mutex
	running map[string]*instance
}

// NewRunner creates a runner over the given registry, router and fallback.
func NewRunner(registry *Registry, router LightSink, fallback FallbackSink) *Runner {
	return &Runner{
		registry: registry,
		router:   router,
		fallback: fallback,
		seed:     func() int64 { return time.Now().UnixNano() },
		running:  make(map[string]*instance),
	}
}

// Start begins running a named generator on a light. Any effect already
// running on that light is fully torn down first - its timer is cancelled
// and no tick of it fires after Start returns.
func (r *Runner) Start(lightID, effectName string, opts Options) error {
	eff, ok := r.registry.Get(effectName)
	if !ok {
		return fmt.Errorf("unknown effect %q", effectName)
	}

	r.startMu.Lock()
	defer r.startMu.Unlock()

	// Replacement teardown: no courtesy white, the new effect's first
	// tick overwrites the light immediately.
	r.teardown(lightID)

	rng := rand.New(rand.NewSource(r.seed()))
	segments := r.router.SegmentCount(lightID)
	if segments < 1 {
		segments = 1
	}
	run := &Runtime{
		Segments: segments,
		Gradient: r.router.IsGradientLight(lightID),
		Rand:     rng,
		State:    eff.Init(rng),
	}

	ctx, cancel := context.WithCancel(context.Background())
	inst := &instance{
		light:  lightID,
		effect: eff,
		opts:   opts,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.running[lightID] = inst
	r.mu.Unlock()

	go r.loop(ctx, inst, run)

	log.Info().Str("light", lightID).Str("effect", effectName).Msg("Effect started")
	return nil
}

// Stop tears down the effect running on a light, if any, and issues a
// courtesy set-to-full-white so the fixture does not freeze on its last
// rendered frame. The white set is best-effort.
func (r *Runner) Stop(lightID string) {
	r.startMu.Lock()
	stopped := r.teardown(lightID)
	r.startMu.Unlock()
	if !stopped {
		return
	}

	if r.router.SetLightColor(lightID, color.White) {
		return
	}
	if r.fallback != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.fallback.SetLightColor(ctx, lightID, color.White); err != nil {
			log.Debug().Err(err).Str("light", lightID).Msg("Courtesy white via fallback failed")
		}
	}
}

// StopAll tears down every running instance.
func (r *Runner) StopAll() {
	r.mu.Lock()
	lights := make([]string, 0, len(r.running))
	for light := range r.running {
		lights = append(lights, light)
	}
	r.mu.Unlock()

	for _, light := range lights {
		r.Stop(light)
	}
}

// Running reports the name of the generator currently running on a light.
func (r *Runner) Running(lightID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.running[lightID]
	if !ok {
		return "", false
	}
	return inst.effect.Name(), true
}

// Names lists the available generator identifiers.
func (r *Runner) Names() []string {
	return r.registry.Names()
}

// teardown cancels and removes the instance for a light. It blocks until
// the instance's loop has exited, so no tick of the old effect can fire
// after a replacement starts. Reports whether an instance existed.
func (r *Runner) teardown(lightID string) bool {
	r.mu.Lock()
	inst, ok := r.running[lightID]
	if ok {
		delete(r.running, lightID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	inst.cancel()
	<-inst.done
	log.Info().Str("light", lightID).Str("effect", inst.effect.Name()).Msg("Effect stopped")
	return true
}

func (r *Runner) loop(ctx context.Context, inst *instance, run *Runtime) {
	defer close(inst.done)

	interval := inst.effect.Interval(inst.opts)
	if interval < minInterval {
		interval = minInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run.Elapsed = time.Since(start)
			r.tick(inst, run)
			run.Tick++
		}
	}
}

// tick runs one Cycle with panic isolation: a fault inside a single tick
// is logged and does not terminate the owning timer.
func (r *Runner) tick(inst *instance, run *Runtime) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Str("light", inst.light).
				Str("effect", inst.effect.Name()).
				Msg("Effect tick panicked")
		}
	}()

	res := inst.effect.Cycle(run, inst.opts)
	r.apply(inst, res)
}

func (r *Runner) apply(inst *instance, res Result) {
	if len(res.Gradient) > 0 {
		if r.router.SetLightGradient(inst.light, res.Gradient) {
			return
		}
		if r.fallback != nil {
			r.applyFallbackGradient(inst.light, res.Gradient)
		}
		return
	}

	if r.router.SetLightColor(inst.light, res.Color) {
		return
	}
	if r.fallback != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.fallback.SetLightColor(ctx, inst.light, res.Color); err != nil {
			log.Debug().Err(err).Str("light", inst.light).Msg("Fallback color set failed")
		}
	}
}

func (r *Runner) applyFallbackGradient(lightID string, colors []color.RGB) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.fallback.SetLightGradient(ctx, lightID, colors); err != nil {
		log.Debug().Err(err).Str("light", lightID).Msg("Fallback gradient set failed")
	}
}
