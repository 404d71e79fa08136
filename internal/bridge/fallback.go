package bridge

import (
	"context"
	"strconv"

	"github.com/amimof/huego"
	"golang.org/x/time/rate"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// maxGradientPoints is the bridge's per-request gradient point ceiling.
const maxGradientPoints = 5

// Fallback drives lights over the request/response path whenever the
// router reports them as not streamable. Effect ticks arrive far faster
// than the REST API should be hit, so writes are gated by a token-bucket
// limiter and silently skipped when the bucket is empty - the next tick
// carries a fresher color anyway.
type Fallback struct {
	clip    *Client
	bridge  *huego.Bridge
	limiter *rate.Limiter
}

// NewFallback creates the REST fallback. Legacy numeric identifiers go
// through huego's V1 API; CLIP v2 ids go through the CLIP client.
func NewFallback(clip *Client, host, appKey string, rps float64) *Fallback {
	if rps <= 0 {
		rps = 10
	}
	return &Fallback{
		clip:    clip,
		bridge:  huego.New(host, appKey),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// SetLightColor sets a flat color, converting to the bridge's native XY
// space. Rate-limited; skipped writes return nil.
func (f *Fallback) SetLightColor(ctx context.Context, lightID string, c color.RGB) error {
	if !f.limiter.Allow() {
		return nil
	}

	xy := c.ToXY()
	if n, err := strconv.Atoi(lightID); err == nil {
		state := huego.State{
			On:  true,
			Xy:  []float32{float32(xy.X), float32(xy.Y)},
			Bri: xy.Bri,
		}
		_, err := f.bridge.SetLightStateContext(ctx, n, state)
		return err
	}

	return f.clip.UpdateLight(ctx, lightID, map[string]any{
		"on":      map[string]any{"on": true},
		"dimming": map[string]any{"brightness": float64(xy.Bri) / 254 * 100},
		"color":   map[string]any{"xy": map[string]any{"x": xy.X, "y": xy.Y}},
	})
}

// SetLightGradient sets a multi-stop gradient via CLIP. The point list is
// resampled down to the protocol ceiling when necessary.
func (f *Fallback) SetLightGradient(ctx context.Context, lightID string, colors []color.RGB) error {
	if len(colors) == 0 {
		return nil
	}
	if !f.limiter.Allow() {
		return nil
	}

	if len(colors) > maxGradientPoints {
		sampled := make([]color.RGB, maxGradientPoints)
		for i := range sampled {
			sampled[i] = colors[i*len(colors)/maxGradientPoints]
		}
		colors = sampled
	}

	points := make([]map[string]any, len(colors))
	for i, c := range colors {
		xy := c.ToXY()
		points[i] = map[string]any{
			"color": map[string]any{
				"xy": map[string]any{"x": xy.X, "y": xy.Y},
			},
		}
	}

	return f.clip.UpdateLight(ctx, lightID, map[string]any{
		"on":       map[string]any{"on": true},
		"gradient": map[string]any{"points": points},
	})
}
