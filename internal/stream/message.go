package stream

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// ColorSpace selects how per-channel values are encoded on the wire.
type ColorSpace byte

const (
	ColorSpaceRGB ColorSpace = 0x00
	ColorSpaceXY  ColorSpace = 0x01
)

const (
	protocolTag  = "HueStream"
	versionMajor = 0x02
	versionMinor = 0x00

	zoneIDLen  = 36
	headerLen  = len(protocolTag) + 7 + zoneIDLen
	recordLen  = 7
	// MaxChannels is the per-message channel ceiling imposed by the protocol.
	// Channels beyond the cap are silently dropped.
	MaxChannels = 20
)

// Encoder serializes a frame buffer into a single HueStream v2 message.
// It is stateless except for the rolling sequence byte, which is
// informational only - the bridge does not validate it.
//
// Encoder is not safe for concurrent use; the renderer owns it.
type Encoder struct {
	zoneID []byte
	space  ColorSpace
	seq    uint8
}

// NewEncoder validates the entertainment zone identifier (UUID text form)
// and returns an encoder targeting the given color space.
func NewEncoder(zoneID string, space ColorSpace) (*Encoder, error) {
	if len(zoneID) != zoneIDLen {
		return nil, fmt.Errorf("entertainment zone id must be %d characters, got %d", zoneIDLen, len(zoneID))
	}
	if _, err := uuid.Parse(zoneID); err != nil {
		return nil, fmt.Errorf("invalid entertainment zone id %q: %w", zoneID, err)
	}
	return &Encoder{zoneID: []byte(zoneID), space: space}, nil
}

// Encode produces one wire message for the given channel->color frame.
// Channels are emitted in ascending id order so identical frames produce
// identical payloads apart from the sequence byte.
func (e *Encoder) Encode(frame map[uint8]color.RGB) []byte {
	ids := make([]int, 0, len(frame))
	for id := range frame {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	if len(ids) > MaxChannels {
		ids = ids[:MaxChannels]
	}

	buf := make([]byte, 0, headerLen+len(ids)*recordLen)
	buf = append(buf, protocolTag...)
	buf = append(buf, versionMajor, versionMinor, e.seq, 0x00, 0x00, byte(e.space), 0x00)
	buf = append(buf, e.zoneID...)
	e.seq++

	for _, id := range ids {
		c := frame[uint8(id)]
		buf = append(buf, byte(id))
		var v0, v1, v2 uint16
		switch e.space {
		case ColorSpaceXY:
			xy := c.ToXY()
			v0 = scaleUnit(xy.X)
			v1 = scaleUnit(xy.Y)
			v2 = scaleBri(xy.Bri)
		default:
			v0 = scaleByte(c.R)
			v1 = scaleByte(c.G)
			v2 = scaleByte(c.B)
		}
		buf = binary.BigEndian.AppendUint16(buf, v0)
		buf = binary.BigEndian.AppendUint16(buf, v1)
		buf = binary.BigEndian.AppendUint16(buf, v2)
	}

	return buf
}

// scaleByte rescales an 8-bit channel to 16 bits. 0 maps to 0 exactly and
// 255 to 65535 exactly, so "off" never drifts to a non-zero wire value.
func scaleByte(v uint8) uint16 {
	return uint16(v) * 257
}

func scaleUnit(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xFFFF
	}
	return uint16(v*65535 + 0.5)
}

func scaleBri(v uint8) uint16 {
	if v == 0 {
		return 0
	}
	if v >= 254 {
		return 0xFFFF
	}
	return uint16(float64(v)/254*65535 + 0.5)
}
