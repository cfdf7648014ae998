// Package chunkgrid maps between chunk keys and their axis-aligned bounds in
// data space. It has no notion of camera, fetching, or residency: every
// function here is a pure transform of (chunk_size, min_z, max_z).
package chunkgrid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Key identifies a chunk cell on the XY grid.
type Key struct {
	SX, SY int32
}

// String renders the key in its canonical textual form "{sx}_{sy}".
func (k Key) String() string {
	return strconv.FormatInt(int64(k.SX), 10) + "_" + strconv.FormatInt(int64(k.SY), 10)
}

// ParseKey parses the textual form produced by String. It is used when keys
// round-trip through JSON maps (see worldindex) or external logs.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("chunkgrid: malformed key %q", s)
	}
	sx, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return Key{}, fmt.Errorf("chunkgrid: malformed key %q: %w", s, err)
	}
	sy, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return Key{}, fmt.Errorf("chunkgrid: malformed key %q: %w", s, err)
	}
	return Key{SX: int32(sx), SY: int32(sy)}, nil
}

// AABB is an axis-aligned box in data space. Unknown is set when the source
// key could not be resolved to finite bounds; callers must treat an unknown
// AABB as visible (fail open).
type AABB struct {
	Min, Max mgl32.Vec3
	Unknown  bool
}

// Grid is a fixed-size XY partition of data space, extended over [MinZ, MaxZ].
type Grid struct {
	ChunkSize float32
	MinZ      float32
	MaxZ      float32
}

// New builds a Grid from its three defining scalars.
func New(chunkSize, minZ, maxZ float32) Grid {
	return Grid{ChunkSize: chunkSize, MinZ: minZ, MaxZ: maxZ}
}

// KeyOf returns the chunk key containing a data-space position.
func (g Grid) KeyOf(posData mgl32.Vec3) Key {
	sx := int32(math.Floor(float64(posData.X() / g.ChunkSize)))
	sy := int32(math.Floor(float64(posData.Y() / g.ChunkSize)))
	return Key{SX: sx, SY: sy}
}

// AABBOf returns the data-space AABB for a chunk key. If any resulting bound
// is non-finite (e.g. a NaN or infinite chunk size or Z bound), the AABB has
// Unknown set and its Min/Max are left at their zero value.
func (g Grid) AABBOf(k Key) AABB {
	s := g.ChunkSize
	minX := float32(k.SX) * s
	minY := float32(k.SY) * s
	maxX := float32(k.SX+1) * s
	maxY := float32(k.SY+1) * s
	if !allFinite(minX, minY, maxX, maxY, g.MinZ, g.MaxZ) {
		return AABB{Unknown: true}
	}
	return AABB{
		Min: mgl32.Vec3{minX, minY, g.MinZ},
		Max: mgl32.Vec3{maxX, maxY, g.MaxZ},
	}
}

// CenterOf returns the data-space center of a chunk, with Z pinned to 0 (the
// Z span is not meaningful for a 2D want-set distance calculation).
func (g Grid) CenterOf(k Key) mgl32.Vec3 {
	s := g.ChunkSize
	return mgl32.Vec3{
		(float32(k.SX) + 0.5) * s,
		(float32(k.SY) + 0.5) * s,
		0,
	}
}

func allFinite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
