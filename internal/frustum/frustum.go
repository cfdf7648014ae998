// Package frustum extracts the six half-spaces of a clip matrix and tests
// axis-aligned boxes against them. It is adapted from the plane-extraction
// and p-vertex AABB test used for block-mesh culling
// (internal/graphics/renderables/blocks/frustum.go), generalized to take an
// arbitrary caller-supplied clip matrix (VP composed with a data-to-view
// model transform) instead of a fixed voxel-world margin.
package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a half-space ax + by + cz + d >= 0.
type Plane struct {
	A, B, C, D float32
}

const normalizeEpsilon = 1e-8

// ExtractPlanes derives the six frustum planes (left, right, bottom, top,
// near, far, in that order) from a combined clip matrix, normalizing each by
// the length of its (a,b,c) normal.
func ExtractPlanes(clip mgl32.Mat4) [6]Plane {
	// mgl32.Mat4 is stored column-major: clip[col*4+row].
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	var pl [6]Plane
	pl[0] = normalize(Plane{m30 + m00, m31 + m01, m32 + m02, m33 + m03}) // left
	pl[1] = normalize(Plane{m30 - m00, m31 - m01, m32 - m02, m33 - m03}) // right
	pl[2] = normalize(Plane{m30 + m10, m31 + m11, m32 + m12, m33 + m13}) // bottom
	pl[3] = normalize(Plane{m30 - m10, m31 - m11, m32 - m12, m33 - m13}) // top
	pl[4] = normalize(Plane{m30 + m20, m31 + m21, m32 + m22, m33 + m23}) // near
	pl[5] = normalize(Plane{m30 - m20, m31 - m21, m32 - m22, m33 - m23}) // far
	return pl
}

func normalize(p Plane) Plane {
	lenSq := p.A*p.A + p.B*p.B + p.C*p.C
	if lenSq < normalizeEpsilon {
		return p
	}
	length := float32(math.Sqrt(float64(lenSq)))
	return Plane{p.A / length, p.B / length, p.C / length, p.D / length}
}

// AABBIntersects runs the p-vertex test: for each plane, the box corner
// furthest along the plane normal is selected, and if that corner is
// strictly outside the plane the whole box is outside. This can produce
// false negatives outside the standard frustum shape but never a false
// positive that keeps a clearly-outside box classified as visible.
func AABBIntersects(planes [6]Plane, min, max mgl32.Vec3) bool {
	for _, p := range planes {
		px := max.X()
		if p.A < 0 {
			px = min.X()
		}
		py := max.Y()
		if p.B < 0 {
			py = min.Y()
		}
		pz := max.Z()
		if p.C < 0 {
			pz = min.Z()
		}
		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return false
		}
	}
	return true
}
