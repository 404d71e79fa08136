package stream

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

const testZoneID = "5f6d98ee-9389-4b40-a9dc-2e2af9f9a2c1"

// seqByteOffset is the position of the rolling sequence byte in the header.
const seqByteOffset = 11

type record struct {
	id         uint8
	v0, v1, v2 uint16
}

func decodeRecords(t *testing.T, msg []byte) []record {
	t.Helper()
	body := msg[headerLen:]
	if len(body)%recordLen != 0 {
		t.Fatalf("body length %d is not a multiple of %d", len(body), recordLen)
	}
	var out []record
	for i := 0; i < len(body); i += recordLen {
		out = append(out, record{
			id: body[i],
			v0: binary.BigEndian.Uint16(body[i+1:]),
			v1: binary.BigEndian.Uint16(body[i+3:]),
			v2: binary.BigEndian.Uint16(body[i+5:]),
		})
	}
	return out
}

func TestNewEncoderValidatesZoneID(t *testing.T) {
	tests := []struct {
		name    string
		zoneID  string
		wantErr bool
	}{
		{"valid", testZoneID, false},
		{"empty", "", true},
		{"too_short", "5f6d98ee-9389-4b40-a9dc", true},
		{"right_length_not_uuid", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.zoneID, ColorSpaceRGB)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEncoder(%q) error = %v, wantErr %v", tt.zoneID, err, tt.wantErr)
			}
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	enc, err := NewEncoder(testZoneID, ColorSpaceRGB)
	if err != nil {
		t.Fatal(err)
	}

	msg := enc.Encode(map[uint8]color.RGB{0: color.White})
	if len(msg) != headerLen+recordLen {
		t.Fatalf("message length = %d, want %d", len(msg), headerLen+recordLen)
	}

	if string(msg[:9]) != "HueStream" {
		t.Errorf("protocol tag = %q", msg[:9])
	}
	if msg[9] != 0x02 || msg[10] != 0x00 {
		t.Errorf("version = %d.%d, want 2.0", msg[9], msg[10])
	}
	if msg[12] != 0 || msg[13] != 0 || msg[15] != 0 {
		t.Errorf("reserved bytes not zero: %v", msg[12:16])
	}
	if msg[14] != byte(ColorSpaceRGB) {
		t.Errorf("color space byte = %d, want %d", msg[14], ColorSpaceRGB)
	}
	if string(msg[16:52]) != testZoneID {
		t.Errorf("zone id = %q", msg[16:52])
	}
}

func TestEncodeSequenceIncrements(t *testing.T) {
	enc, _ := NewEncoder(testZoneID, ColorSpaceRGB)
	frame := map[uint8]color.RGB{0: color.White}

	first := enc.Encode(frame)
	second := enc.Encode(frame)

	if second[seqByteOffset] != first[seqByteOffset]+1 {
		t.Errorf("sequence did not increment: %d then %d", first[seqByteOffset], second[seqByteOffset])
	}
}

func TestEncodeRGBScaling(t *testing.T) {
	tests := []struct {
		name string
		in   color.RGB
		want [3]uint16
	}{
		{"black_is_exact_zero", color.RGB{}, [3]uint16{0, 0, 0}},
		{"white_is_full_scale", color.RGB{R: 255, G: 255, B: 255}, [3]uint16{65535, 65535, 65535}},
		{"mid_gray", color.RGB{R: 128, G: 128, B: 128}, [3]uint16{32896, 32896, 32896}},
		{"single_channel", color.RGB{R: 1}, [3]uint16{257, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, _ := NewEncoder(testZoneID, ColorSpaceRGB)
			msg := enc.Encode(map[uint8]color.RGB{3: tt.in})
			recs := decodeRecords(t, msg)
			if len(recs) != 1 {
				t.Fatalf("got %d records, want 1", len(recs))
			}
			got := [3]uint16{recs[0].v0, recs[0].v1, recs[0].v2}
			if got != tt.want {
				t.Errorf("encoded %v as %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeXYBrightnessZeroExact(t *testing.T) {
	enc, _ := NewEncoder(testZoneID, ColorSpaceXY)
	msg := enc.Encode(map[uint8]color.RGB{0: color.Black})
	recs := decodeRecords(t, msg)

	// Black carries a chromaticity but its brightness must be wire zero.
	if recs[0].v2 != 0 {
		t.Errorf("black brightness encoded as %d, want 0", recs[0].v2)
	}
	if msg[14] != byte(ColorSpaceXY) {
		t.Errorf("color space byte = %d, want %d", msg[14], ColorSpaceXY)
	}
}

func TestEncodeTruncation(t *testing.T) {
	frame := make(map[uint8]color.RGB)
	for i := 0; i < 25; i++ {
		frame[uint8(i)] = color.RGB{R: uint8(i)}
	}

	enc, _ := NewEncoder(testZoneID, ColorSpaceRGB)
	big := enc.Encode(frame)

	recs := decodeRecords(t, big)
	if len(recs) != MaxChannels {
		t.Fatalf("got %d records, want %d", len(recs), MaxChannels)
	}

	small := enc.Encode(map[uint8]color.RGB{0: color.White})

	// Header and zone id sections are identical regardless of channel
	// count, apart from the rolling sequence byte.
	bigHdr := append([]byte(nil), big[:headerLen]...)
	smallHdr := append([]byte(nil), small[:headerLen]...)
	bigHdr[seqByteOffset] = 0
	smallHdr[seqByteOffset] = 0
	if !bytes.Equal(bigHdr, smallHdr) {
		t.Errorf("headers differ:\n%v\n%v", bigHdr, smallHdr)
	}
}

func TestEncodeDeterministicChannelOrder(t *testing.T) {
	frame := map[uint8]color.RGB{
		7: {R: 70}, 1: {R: 10}, 4: {R: 40}, 0: {R: 1}, 19: {R: 190},
	}

	enc, _ := NewEncoder(testZoneID, ColorSpaceRGB)
	first := enc.Encode(frame)
	second := enc.Encode(frame)

	first[seqByteOffset] = 0
	second[seqByteOffset] = 0
	if !bytes.Equal(first, second) {
		t.Error("same frame encoded to different payloads")
	}

	recs := decodeRecords(t, first)
	for i := 1; i < len(recs); i++ {
		if recs[i-1].id >= recs[i].id {
			t.Fatalf("channel ids not ascending: %d before %d", recs[i-1].id, recs[i].id)
		}
	}
}
