package effects

import (
	"math/rand"
	"testing"
	"time"
)

func newRuntime(e Effect, seed int64, segments int, gradient bool) *Runtime {
	rng := rand.New(rand.NewSource(seed))
	return &Runtime{
		Segments: segments,
		Gradient: gradient,
		Rand:     rng,
		State:    e.Init(rng),
	}
}

// cycleN drives n ticks, advancing Tick and Elapsed the way the runner does.
func cycleN(e Effect, run *Runtime, opts Options, n int) []Result {
	interval := e.Interval(opts)
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		run.Elapsed = time.Duration(i) * interval
		out[i] = e.Cycle(run, opts)
		run.Tick++
	}
	return out
}

// Every registered generator must honor the shared contract: a positive
// interval, a gradient sized to the fixture on multi-segment runtimes and
// no gradient at all on simple ones.
func TestBuiltinsContract(t *testing.T) {
	registry := NewRegistry()
	optVariants := []Options{
		{},
		{Speed: 100, Brightness: 0.5, Intensity: 0.8},
	}

	for _, name := range registry.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			e, ok := registry.Get(name)
			if !ok {
				t.Fatalf("registry lists %q but cannot return it", name)
			}
			if e.Name() != name {
				t.Errorf("Name() = %q, registered as %q", e.Name(), name)
			}

			for _, opts := range optVariants {
				if iv := e.Interval(opts); iv <= 0 {
					t.Fatalf("Interval(%+v) = %v, want > 0", opts, iv)
				}

				gradRun := newRuntime(e, 42, 5, true)
				for _, res := range cycleN(e, gradRun, opts, 50) {
					if res.Gradient != nil && len(res.Gradient) != 5 {
						t.Fatalf("gradient has %d entries on a 5-segment fixture", len(res.Gradient))
					}
				}

				simpleRun := newRuntime(e, 42, 1, false)
				for _, res := range cycleN(e, simpleRun, opts, 50) {
					if res.Gradient != nil {
						t.Fatal("simple fixture received a gradient result")
					}
				}
			}
		})
	}
}

// Identical seeds must replay identical output; the runtime owns the only
// random source a generator may use.
func TestBuiltinsDeterministic(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"candle", "thunderstorm", "comet", "twinkle", "disco"} {
		name := name
		t.Run(name, func(t *testing.T) {
			e, ok := registry.Get(name)
			if !ok {
				t.Fatalf("generator %q not registered", name)
			}

			a := cycleN(e, newRuntime(e, 7, 5, true), Options{}, 30)
			b := cycleN(e, newRuntime(e, 7, 5, true), Options{}, 30)
			for i := range a {
				if a[i].Color != b[i].Color {
					t.Fatalf("tick %d color diverged: %v vs %v", i, a[i].Color, b[i].Color)
				}
				for s := range a[i].Gradient {
					if a[i].Gradient[s] != b[i].Gradient[s] {
						t.Fatalf("tick %d segment %d diverged", i, s)
					}
				}
			}
		})
	}
}

func TestNativeEquivalentsResolve(t *testing.T) {
	registry := NewRegistry()
	for native := range nativeEquivalents {
		name, ok := registry.NativeEquivalent(native)
		if !ok {
			t.Errorf("native effect %q maps to an unregistered generator", native)
			continue
		}
		if _, ok := registry.Get(name); !ok {
			t.Errorf("equivalent %q for native %q not in registry", name, native)
		}
	}

	if _, ok := registry.NativeEquivalent("no_such_effect"); ok {
		t.Error("unknown native effect resolved")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	registry := NewRegistry()
	custom := stubEffect{name: "candle", interval: time.Second}
	registry.Register(custom)

	e, ok := registry.Get("candle")
	if !ok {
		t.Fatal("replaced generator missing")
	}
	if e.Interval(Options{}) != time.Second {
		t.Error("Register did not replace the existing generator")
	}
}
