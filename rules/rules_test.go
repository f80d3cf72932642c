package rules

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGravityWGSLDeterministic(t *testing.T) {
	r := Rule{Kind: Gravity, F1: 9.8}
	a := r.ToWGSL(1)
	b := r.ToWGSL(1)
	if a != b {
		t.Fatal("identical rule produced different WGSL text across calls")
	}
	if !strings.Contains(a, "p.velocity.y -= 9.8") {
		t.Fatalf("gravity WGSL missing expected term: %s", a)
	}
}

func TestBounceWallsUsesBounds(t *testing.T) {
	r := Rule{Kind: BounceWalls}
	wgsl := r.ToWGSL(2.5)
	if !strings.Contains(wgsl, "-2.5") || !strings.Contains(wgsl, "2.5") {
		t.Fatalf("bounce walls WGSL does not embed bounds: %s", wgsl)
	}
}

func TestRequiresNeighbors(t *testing.T) {
	cases := []struct {
		r    Rule
		want bool
	}{
		{Rule{Kind: Gravity}, false},
		{Rule{Kind: Separate}, true},
		{Rule{Kind: Typed, Inner: &Rule{Kind: Cohere}}, true},
		{Rule{Kind: Typed, Inner: &Rule{Kind: Gravity}}, false},
	}
	for _, c := range cases {
		if got := c.r.RequiresNeighbors(); got != c.want {
			t.Errorf("RequiresNeighbors(%v) = %v, want %v", c.r.Kind, got, c.want)
		}
	}
}

func TestNeighborRulesOnlyEmitInNeighborPass(t *testing.T) {
	r := Rule{Kind: Separate, F1: 0.1, F2: 1.0}
	if r.ToWGSL(1) != "" {
		t.Fatal("neighbor rule must not emit from ToWGSL")
	}
	if r.ToNeighborWGSL() == "" {
		t.Fatal("neighbor rule must emit from ToNeighborWGSL")
	}
}

func TestCohereNeedsAccumulator(t *testing.T) {
	rs := []Rule{{Kind: Gravity}, {Kind: Cohere, F1: 0.5, F2: 1.0}}
	if !NeedsCohesionAccumulator(rs) {
		t.Fatal("expected cohesion accumulator to be needed")
	}
	if NeedsAlignmentAccumulator(rs) {
		t.Fatal("did not expect alignment accumulator")
	}
}

func TestTypedWrapsInnerNeighborRule(t *testing.T) {
	other := uint32(2)
	r := Rule{
		Kind:      Typed,
		SelfType:  1,
		OtherType: &other,
		Inner:     &Rule{Kind: Separate, F1: 0.2, F2: 1.0},
	}
	wgsl := r.ToNeighborWGSL()
	if !strings.Contains(wgsl, "particle_type == 1u") || !strings.Contains(wgsl, "particle_type == 2u") {
		t.Fatalf("typed wrapper did not embed both type checks: %s", wgsl)
	}
}

func TestAccelerationEmbedsVector(t *testing.T) {
	r := Rule{Kind: Acceleration, Point: mgl32.Vec3{1, 2, 3}}
	wgsl := r.ToWGSL(1)
	if !strings.Contains(wgsl, "vec3<f32>(1, 2, 3)") {
		t.Fatalf("acceleration WGSL missing vector literal: %s", wgsl)
	}
}
