// Package wantset computes, for a given camera pose, the ordered list of
// chunk keys the streamer wants resident this tick. The square-neighborhood
// enumeration is adapted from ChunkStreamer.StreamChunksAroundAsync
// (internal/world/chunk_streamer.go), which walks a (2r+1)^2 neighborhood
// around a center chunk; here the neighborhood is scored and sorted instead
// of walked in spiral-issue order, because priority here is driven by
// frustum/backward-facing penalties rather than issue-order alone.
package wantset

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/peytontolbert/chunkstreamer/internal/camera"
	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/frustum"
)

const (
	behindPenalty       = 1.6
	outOfFrustumPenalty = 1.9
)

// Config carries the two streamer settings that affect want-set shape.
type Config struct {
	RadiusChunks         int
	EnableFrustumCulling bool
}

// Result is the ordered want-set plus the subset classified as in-frustum.
type Result struct {
	Keys      []chunkgrid.Key
	InFrustum map[chunkgrid.Key]bool
}

// Build computes the wanted key order for one tick. overrideCenter, if
// non-nil, is a data-space point used as the center instead of the
// transformed camera position.
func Build(grid chunkgrid.Grid, pose camera.Pose, model camera.ModelTransform, cfg Config, overrideCenter *mgl32.Vec3) Result {
	var centerData mgl32.Vec3
	if overrideCenter != nil {
		centerData = *overrideCenter
	} else {
		centerData = transformPoint(model.ViewToData, pose.Position)
	}
	centerKey := grid.KeyOf(centerData)

	radius := cfg.RadiusChunks
	if radius < 0 {
		radius = 0
	}

	type scored struct {
		key   chunkgrid.Key
		score float32
	}

	keys := make([]chunkgrid.Key, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			keys = append(keys, chunkgrid.Key{
				SX: centerKey.SX + int32(dx),
				SY: centerKey.SY + int32(dy),
			})
		}
	}

	inFrustum := make(map[chunkgrid.Key]bool, len(keys))
	var planes [6]frustum.Plane
	if cfg.EnableFrustumCulling {
		clip := pose.ViewProj.Mul4(model.DataToView)
		planes = frustum.ExtractPlanes(clip)
	}

	forwardData := transformDirection(model.ViewToData, pose.Forward)

	entries := make([]scored, 0, len(keys))
	for _, key := range keys {
		aabb := grid.AABBOf(key)
		inF := true
		if cfg.EnableFrustumCulling {
			if aabb.Unknown {
				inF = true // fail open
			} else {
				inF = frustum.AABBIntersects(planes, aabb.Min, aabb.Max)
			}
		}
		inFrustum[key] = inF

		center := grid.CenterOf(key)
		toCenter := center.Sub(centerData)
		distSq := toCenter.X()*toCenter.X() + toCenter.Y()*toCenter.Y()

		penalty := float32(1.0)
		if toCenter.X()*forwardData.X()+toCenter.Y()*forwardData.Y() < 0 {
			penalty *= behindPenalty
		}
		if cfg.EnableFrustumCulling && !inF {
			penalty *= outOfFrustumPenalty
		}

		entries = append(entries, scored{key: key, score: distSq * penalty})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score < entries[j].score
	})

	ordered := make([]chunkgrid.Key, len(entries))
	for i, e := range entries {
		ordered[i] = e.key
	}
	return Result{Keys: ordered, InFrustum: inFrustum}
}

func transformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(mgl32.Vec4{p.X(), p.Y(), p.Z(), 1})
	return mgl32.Vec3{v.X(), v.Y(), v.Z()}
}

func transformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(mgl32.Vec4{d.X(), d.Y(), d.Z(), 0})
	return mgl32.Vec3{v.X(), v.Y(), v.Z()}
}
