// Package camera implements the orbit camera that drives the
// per-frame view/projection uniform and the mouse picking ray.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera tracks a target-relative orbit position driven by
// yaw/pitch/distance deltas from an input command stream.
type OrbitCamera struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32
}

// NewOrbitCamera returns a camera orbiting the origin at a sensible
// default distance, looking down a slight pitch.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Target:      mgl32.Vec3{0, 0, 0},
		Distance:    20,
		Yaw:         0,
		Pitch:       0.4,
		MinDistance: 0.5,
		MaxDistance: 500,
		MinPitch:    -1.5,
		MaxPitch:    1.5,
	}
}

// Orbit applies yaw/pitch deltas (radians) and a zoom delta (world
// units), clamping pitch and distance to the camera's configured
// range.
func (c *OrbitCamera) Orbit(yawDelta, pitchDelta, zoomDelta float32) {
	c.Yaw += yawDelta
	c.Pitch = clamp(c.Pitch+pitchDelta, c.MinPitch, c.MaxPitch)
	c.Distance = clamp(c.Distance+zoomDelta, c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Eye returns the camera's world-space position.
func (c *OrbitCamera) Eye() mgl32.Vec3 {
	cosPitch := float32(math.Cos(float64(c.Pitch)))
	offset := mgl32.Vec3{
		cosPitch * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cosPitch * float32(math.Cos(float64(c.Yaw))),
	}.Mul(c.Distance)
	return c.Target.Add(offset)
}

// ViewMatrix returns the camera's look-at view matrix.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	eye := c.Eye()
	up := mgl32.Vec3{0, 1, 0}
	return mgl32.LookAtV(eye, c.Target, up)
}

// ProjectionMatrix returns a perspective projection for the given
// viewport aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(60), aspect, 0.05, 1000)
}

// ViewProj returns the combined view-projection matrix uploaded as
// the first field of the per-frame uniform block.
func (c *OrbitCamera) ViewProj(aspect float32) mgl32.Mat4 {
	return c.ProjectionMatrix(aspect).Mul4(c.ViewMatrix())
}

// Ray is a world-space ray used for mouse picking.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// ScreenRay unprojects a normalized device coordinate (x, y in
// [-1, 1], y up) into a world-space ray from the camera eye.
func (c *OrbitCamera) ScreenRay(ndcX, ndcY, aspect float32) Ray {
	viewProj := c.ViewProj(aspect)
	inv := viewProj.Inv()

	nearClip := mgl32.Vec4{ndcX, ndcY, -1, 1}
	farClip := mgl32.Vec4{ndcX, ndcY, 1, 1}

	nearWorld := inv.Mul4x1(nearClip)
	farWorld := inv.Mul4x1(farClip)

	near := mgl32.Vec3{nearWorld.X() / nearWorld.W(), nearWorld.Y() / nearWorld.W(), nearWorld.Z() / nearWorld.W()}
	far := mgl32.Vec3{farWorld.X() / farWorld.W(), farWorld.Y() / farWorld.W(), farWorld.Z() / farWorld.W()}

	dir := far.Sub(near)
	if l := dir.Len(); l > 1e-8 {
		dir = dir.Mul(1.0 / l)
	}
	return Ray{Origin: near, Direction: dir}
}

// ExtractFrustum extracts the 6 normalized frustum planes (Left,
// Right, Bottom, Top, Near, Far) from a view-projection matrix,
// each as Ax+By+Cz+D=0.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0)
	planes[1] = r3.Sub(r0)
	planes[2] = r3.Add(r1)
	planes[3] = r3.Sub(r1)
	planes[4] = r3.Add(r2)
	planes[5] = r3.Sub(r2)

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			planes[i] = p.Mul(1.0 / length)
		}
	}
	return planes
}
