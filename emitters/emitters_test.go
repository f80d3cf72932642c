package emitters

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPointEmitterDeterministic(t *testing.T) {
	e := Emitter{Kind: Point, Position: mgl32.Vec3{1, 2, 3}, Rate: 500}
	a := e.ToWGSL(0)
	b := e.ToWGSL(0)
	if a != b {
		t.Fatal("identical emitter produced different WGSL across calls")
	}
	if !strings.Contains(a, "p.alive == 0u") {
		t.Fatalf("point emitter must only spawn dead slots: %s", a)
	}
}

func TestBurstEmitterFiresOnce(t *testing.T) {
	e := Emitter{Kind: Burst, Count: 64, Speed: 2}
	wgsl := e.ToWGSL(1)
	if !strings.Contains(wgsl, "uniforms.time < 0.1") {
		t.Fatalf("burst emitter must gate on initial window: %s", wgsl)
	}
	if !strings.Contains(wgsl, "index < 64u") {
		t.Fatalf("burst emitter must gate on count: %s", wgsl)
	}
}

func TestEffectiveRateUsesCountForBurst(t *testing.T) {
	e := Emitter{Kind: Burst, Count: 100}
	if got := e.EffectiveRate(); got != 100 {
		t.Fatalf("EffectiveRate() = %v, want 100", got)
	}
}

func TestEmitterIndexEmbeddedInHash(t *testing.T) {
	e := Emitter{Kind: Point, Rate: 1}
	wgsl := e.ToWGSL(3)
	if !strings.Contains(wgsl, "3u * 7919u") {
		t.Fatalf("emitter index must be embedded in the spawn hash: %s", wgsl)
	}
}
