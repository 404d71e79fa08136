package color

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is a color with three 8-bit channels. This is the working color space
// of the effect generators; conversion to the bridge's native XY space
// happens at encode time.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{}
	White = RGB{R: 255, G: 255, B: 255}
)

// New clamps nothing - the uint8 domain is the invariant.
func New(r, g, b uint8) RGB {
	return RGB{R: r, G: g, B: b}
}

// FromFloats builds an RGB from [0,1] channel values, clamping out-of-range inputs.
func FromFloats(r, g, b float64) RGB {
	return RGB{R: floatByte(r), G: floatByte(g), B: floatByte(b)}
}

// FromColorful converts a go-colorful color (used by the gradient ramps).
func FromColorful(c colorful.Color) RGB {
	c = c.Clamped()
	return RGB{
		R: uint8(c.R*255 + 0.5),
		G: uint8(c.G*255 + 0.5),
		B: uint8(c.B*255 + 0.5),
	}
}

// Colorful returns the go-colorful representation for blending math.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Scale multiplies all channels by f (clamped to [0,1]).
func (c RGB) Scale(f float64) RGB {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return RGB{
		R: uint8(float64(c.R)*f + 0.5),
		G: uint8(float64(c.G)*f + 0.5),
		B: uint8(float64(c.B)*f + 0.5),
	}
}

// Lerp interpolates linearly between a and b in RGB space, t in [0,1].
func Lerp(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return FromColorful(a.Colorful().BlendRgb(b.Colorful(), t))
}

// HSV builds an RGB from hue (degrees), saturation and value in [0,1].
func HSV(h, s, v float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return FromColorful(colorful.Hsv(h, clamp01(s), clamp01(v)))
}

// XYBri is the bridge's native color representation: CIE xy chromaticity
// plus an 8-bit-scale brightness (0-254).
type XYBri struct {
	X, Y float64
	Bri  uint8
}

// ToXY converts RGB to the CIE xy color space using the gamma-corrected
// Wide RGB D65 matrix the bridge expects.
func (c RGB) ToXY() XYBri {
	r := gamma(float64(c.R) / 255)
	g := gamma(float64(c.G) / 255)
	b := gamma(float64(c.B) / 255)

	x := r*0.664511 + g*0.154324 + b*0.162028
	y := r*0.283881 + g*0.668433 + b*0.047685
	z := r*0.000088 + g*0.072310 + b*0.986039

	sum := x + y + z
	if sum == 0 {
		// D65 white point at zero brightness, so "off" stays off.
		return XYBri{X: 0.3127, Y: 0.3290, Bri: 0}
	}

	return XYBri{
		X:   x / sum,
		Y:   y / sum,
		Bri: uint8(clamp01(y)*254 + 0.5),
	}
}

// ToRGB is the inverse transform, reverse gamma included.
func (p XYBri) ToRGB() RGB {
	if p.Y == 0 {
		return Black
	}

	bri := float64(p.Bri) / 254
	yy := bri
	xx := (yy / p.Y) * p.X
	zz := (yy / p.Y) * (1 - p.X - p.Y)

	r := xx*1.656492 - yy*0.354851 - zz*0.255038
	g := -xx*0.707196 + yy*1.655397 + zz*0.036152
	b := xx*0.051713 - yy*0.121364 + zz*1.011530

	return FromFloats(invGamma(r), invGamma(g), invGamma(b))
}

func gamma(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func invGamma(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func floatByte(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
