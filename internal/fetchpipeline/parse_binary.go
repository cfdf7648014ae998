package fetchpipeline

import (
	"encoding/binary"
	"math"
)

// binaryMagic is the 4-byte header identifying the binary fast path
// payload: "ENT0" followed by a u32 LE entity count and count*3 f32 LE
// position triples.
var binaryMagic = [4]byte{'E', 'N', 'T', '0'}

const binaryHeaderLen = 8 // 4-byte magic + u32 count

// decodeBinary parses the binary fast path payload. malformed is true when
// the magic, declared count, or byte length don't line up; callers treat
// that as BinaryMalformed and fall back to the NDJSON path rather than
// treating it as a fetch failure.
func decodeBinary(data []byte) (payload []float32, malformed bool) {
	if len(data) < binaryHeaderLen {
		return nil, true
	}
	if data[0] != binaryMagic[0] || data[1] != binaryMagic[1] || data[2] != binaryMagic[2] || data[3] != binaryMagic[3] {
		return nil, true
	}

	count := binary.LittleEndian.Uint32(data[4:8])
	wantLen := binaryHeaderLen + int(count)*12
	if wantLen < binaryHeaderLen || len(data) < wantLen {
		return nil, true
	}

	out := make([]float32, 0, count*3)
	offset := binaryHeaderLen
	for i := uint32(0); i < count; i++ {
		x := decodeFloat32LE(data[offset : offset+4])
		y := decodeFloat32LE(data[offset+4 : offset+8])
		z := decodeFloat32LE(data[offset+8 : offset+12])
		out = append(out, x, y, z)
		offset += 12
	}
	return out, false
}

func decodeFloat32LE(b []byte) float32 {
	bits := binary.LittleEndian.Uint32(b)
	return math.Float32frombits(bits)
}
