package stream

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// Channel describes one wire channel from the active entertainment
// configuration. The position is a layout hint only and plays no part in
// protocol framing.
type Channel struct {
	ID      uint8
	LightID string
	X, Y, Z float64
}

// Resolver maps a legacy light identifier to the canonical identifier used
// by the channel mapping. Implementations must return ok=false, not an
// error, when the identifier is unknown.
type Resolver interface {
	Resolve(id string) (canonical string, ok bool)
}

// FrameSink is the renderer-side write interface the router pushes into.
type FrameSink interface {
	SetChannel(id uint8, c color.RGB)
	SetChannels(channels map[uint8]color.RGB)
	Running() bool
}

// Router translates logical light identifiers into wire channels and
// distributes multi-stop gradients across segment fixtures. Lights not in
// the current mapping (or while no stream session is active) report as not
// streamable so callers can fall back to the request/response path.
type Router struct {
	sink     FrameSink
	resolver Resolver // may be nil

	mu sync.RWMutex
	// byLight groups the flat channel list by light id; channel order
	// within a group is the physical segment order along the fixture.
	byLight map[string][]uint8
	// resolved caches alias lookups ("" = known-unresolvable) until the
	// mapping is swapped.
	resolved map[string]string
}

// NewRouter creates a router with an empty mapping.
func NewRouter(sink FrameSink, resolver Resolver) *Router {
	return &Router{
		sink:     sink,
		resolver: resolver,
		byLight:  make(map[string][]uint8),
		resolved: make(map[string]string),
	}
}

// SetMapping swaps the channel mapping wholesale and invalidates the
// alias-resolution cache.
func (r *Router) SetMapping(channels []Channel) {
	byLight := make(map[string][]uint8)
	for _, ch := range channels {
		byLight[ch.LightID] = append(byLight[ch.LightID], ch.ID)
	}

	r.mu.Lock()
	r.byLight = byLight
	r.resolved = make(map[string]string)
	r.mu.Unlock()

	log.Debug().Int("channels", len(channels)).Int("lights", len(byLight)).Msg("Channel mapping updated")
}

// canonical resolves a light identifier to the id used by the mapping,
// consulting and filling the alias cache.
func (r *Router) canonical(lightID string) (string, bool) {
	r.mu.RLock()
	if _, ok := r.byLight[lightID]; ok {
		r.mu.RUnlock()
		return lightID, true
	}
	if cached, ok := r.resolved[lightID]; ok {
		_, mapped := r.byLight[cached]
		r.mu.RUnlock()
		return cached, cached != "" && mapped
	}
	r.mu.RUnlock()

	if r.resolver == nil {
		return "", false
	}

	canonical, ok := r.resolver.Resolve(lightID)
	if !ok {
		canonical = ""
		log.Debug().Str("light", lightID).Msg("Light identifier not resolvable")
	}

	r.mu.Lock()
	r.resolved[lightID] = canonical
	_, mapped := r.byLight[canonical]
	r.mu.Unlock()

	return canonical, ok && mapped
}

// IsStreamable reports whether a light can be driven over the stream right
// now: a session must be active and the light present in the mapping.
func (r *Router) IsStreamable(lightID string) bool {
	if !r.sink.Running() {
		return false
	}
	_, ok := r.canonical(lightID)
	return ok
}

// channels returns the ordered channel list for a light, nil when unknown.
func (r *Router) channels(lightID string) []uint8 {
	id, ok := r.canonical(lightID)
	if !ok {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byLight[id]
}

// IsGradientLight reports whether the light occupies more than one channel.
func (r *Router) IsGradientLight(lightID string) bool {
	return len(r.channels(lightID)) > 1
}

// SegmentCount returns the number of channels a light occupies, 0 when the
// light is not in the mapping.
func (r *Router) SegmentCount(lightID string) int {
	return len(r.channels(lightID))
}

// SetLightColor writes the same color to every channel of the light.
// Returns false ("not handled") when the light is not streamable, so the
// caller can use the request/response fallback.
func (r *Router) SetLightColor(lightID string, c color.RGB) bool {
	if !r.sink.Running() {
		return false
	}
	chans := r.channels(lightID)
	if len(chans) == 0 {
		return false
	}

	frame := make(map[uint8]color.RGB, len(chans))
	for _, id := range chans {
		frame[id] = c
	}
	r.sink.SetChannels(frame)
	return true
}

// SetLightGradient distributes an ordered color list across a gradient
// fixture's segments:
//
//   - one color: applied to every segment
//   - len(colors) >= segments: sampled at evenly spaced indices
//   - len(colors) < segments: linear interpolation between adjacent colors
//
// Non-gradient fixtures receive only the first color.
func (r *Router) SetLightGradient(lightID string, colors []color.RGB) bool {
	if len(colors) == 0 {
		return false
	}
	if !r.sink.Running() {
		return false
	}

	chans := r.channels(lightID)
	if len(chans) == 0 {
		return false
	}
	if len(chans) == 1 {
		return r.SetLightColor(lightID, colors[0])
	}

	segments := distribute(colors, len(chans))
	frame := make(map[uint8]color.RGB, len(chans))
	for i, id := range chans {
		frame[id] = segments[i]
	}
	r.sink.SetChannels(frame)
	return true
}

// distribute maps len(colors) stops onto n ordered segments.
func distribute(colors []color.RGB, n int) []color.RGB {
	out := make([]color.RGB, n)
	switch {
	case len(colors) == 1:
		for i := range out {
			out[i] = colors[0]
		}
	case len(colors) >= n:
		for i := range out {
			out[i] = colors[i*len(colors)/n]
		}
	default:
		for i := range out {
			pos := float64(i) / float64(n-1) * float64(len(colors)-1)
			lo := int(math.Floor(pos))
			hi := lo + 1
			if hi > len(colors)-1 {
				hi = len(colors) - 1
			}
			out[i] = color.Lerp(colors[lo], colors[hi], pos-float64(lo))
		}
	}
	return out
}
