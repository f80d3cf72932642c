package camera

import (
	"math"
	"testing"
)

func TestOrbitClampsPitchAndDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.Orbit(0, -10, -1000)
	if c.Pitch != c.MinPitch {
		t.Fatalf("expected pitch clamped to %v, got %v", c.MinPitch, c.Pitch)
	}
	if c.Distance != c.MinDistance {
		t.Fatalf("expected distance clamped to %v, got %v", c.MinDistance, c.Distance)
	}
}

func TestEyeAtZeroPitchYawLiesOnZAxis(t *testing.T) {
	c := NewOrbitCamera()
	c.Yaw = 0
	c.Pitch = 0
	c.Distance = 10
	eye := c.Eye()
	if math.Abs(float64(eye.X())) > 1e-4 || math.Abs(float64(eye.Y())) > 1e-4 {
		t.Fatalf("expected eye on +Z axis at yaw=pitch=0, got %v", eye)
	}
	if math.Abs(float64(eye.Z()-10)) > 1e-4 {
		t.Fatalf("expected eye distance 10 along Z, got %v", eye.Z())
	}
}

func TestScreenRayCenterPointsTowardTarget(t *testing.T) {
	c := NewOrbitCamera()
	ray := c.ScreenRay(0, 0, 1.0)
	toTarget := c.Target.Sub(c.Eye())
	if l := toTarget.Len(); l > 1e-8 {
		toTarget = toTarget.Mul(1.0 / l)
	}
	dot := ray.Direction.Dot(toTarget)
	if dot < 0.99 {
		t.Fatalf("expected center screen ray to point near target direction, dot=%v", dot)
	}
}

func TestExtractFrustumReturnsSixNormalizedPlanes(t *testing.T) {
	c := NewOrbitCamera()
	vp := c.ViewProj(16.0 / 9.0)
	planes := ExtractFrustum(vp)
	for i, p := range planes {
		n := math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2]))
		if math.Abs(n-1.0) > 1e-3 {
			t.Fatalf("plane %d not normalized: length %v", i, n)
		}
	}
}
