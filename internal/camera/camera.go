// Package camera holds the plain data the streamer receives each tick: a
// camera pose in viewer space and the fixed transform between data space and
// viewer space. It has no behavior of its own so every other package that
// needs "what does the camera look like right now" can depend on it without
// pulling in frustum math, the grid, or the streamer facade.
package camera

import "github.com/go-gl/mathgl/mgl32"

// Pose is the camera's position and orientation, expressed in viewer space.
type Pose struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	ViewProj mgl32.Mat4
}

// ModelTransform is the fixed mapping between the world's data space and the
// viewer space the camera operates in. DataToView and ViewToData are assumed
// to be exact inverses; the host computes and supplies both so the streamer
// never has to invert a matrix on the hot path.
type ModelTransform struct {
	DataToView mgl32.Mat4
	ViewToData mgl32.Mat4
}
