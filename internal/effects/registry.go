package effects

import (
	"sort"
	"sync"
)

// nativeEquivalents maps the bridge's built-in effect names to their
// generator-based streaming equivalents.
var nativeEquivalents = map[string]string{
	"candle":     "candle",
	"fire":       "fireplace",
	"prism":      "colorloop",
	"sparkle":    "sparkle",
	"opal":       "aurora",
	"glisten":    "twinkle",
	"sunrise":    "sunrise",
	"sunset":     "sunset",
	"underwater": "underwater",
	"cosmos":     "plasma",
	"enchant":    "chase",
}

// Registry holds the available generators by name.
type Registry struct {
	mu      sync.RWMutex
	effects map[string]Effect
}

// NewRegistry creates a registry preloaded with all built-in generators.
func NewRegistry() *Registry {
	r := &Registry{effects: make(map[string]Effect)}
	for _, e := range builtins() {
		r.Register(e)
	}
	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(e Effect) {
	r.mu.Lock()
	r.effects[e.Name()] = e
	r.mu.Unlock()
}

// Get returns a generator by name.
func (r *Registry) Get(name string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.effects[name]
	return e, ok
}

// Names lists all registered generator identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NativeEquivalent maps a bridge-native effect name to the generator that
// renders its streaming equivalent.
func (r *Registry) NativeEquivalent(native string) (string, bool) {
	name, ok := nativeEquivalents[native]
	if !ok {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, registered := r.effects[name]
	return name, registered
}

// builtins returns one instance of every built-in generator.
func builtins() []Effect {
	return []Effect{
		// flicker family
		Candle{},
		Fireplace{},
		Fire{},
		Ember{},
		// safety-bounded flash family
		Thunderstorm{},
		Lightning{},
		Strobe{},
		Police{},
		Paparazzi{},
		// trailing / chase family
		Comet{},
		Meteor{},
		Chase{},
		Desert{},
		Wipe{},
		// oscillator ambient family
		Aurora{},
		Ocean{},
		Underwater{},
		Forest{},
		Lava{},
		Snow{},
		Rain{},
		Sparkle{},
		Twinkle{},
		Plasma{},
		Colorloop{},
		Rainbow{},
		Neon{},
		Disco{},
		// pulse family
		Breathe{},
		Pulse{},
		Heartbeat{},
		Alarm{},
		// long-running scene ramps
		Sunrise{},
		Sunset{},
	}
}
