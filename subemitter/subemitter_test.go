package subemitter

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestChildSpawningWGSLEmbedsParentType(t *testing.T) {
	se := SubEmitter{ParentType: 3, ChildType: 5, Count: 4, SpeedMin: 1, SpeedMax: 2, Spread: 0.5}
	wgsl := se.ChildSpawningWGSL(0)
	if !strings.Contains(wgsl, "death.parent_type == 3u") {
		t.Fatalf("expected parent type check, got %s", wgsl)
	}
	if !strings.Contains(wgsl, "child.particle_type = 5u") {
		t.Fatalf("expected child type assignment, got %s", wgsl)
	}
}

func TestChildSpawningWGSLUsesOverrideColorWhenSet(t *testing.T) {
	col := mgl32.Vec3{1, 0, 0}
	se := SubEmitter{ParentType: 0, ChildType: 1, ChildColor: &col}
	wgsl := se.ChildSpawningWGSL(0)
	if !strings.Contains(wgsl, "child.color = vec3<f32>(1, 0, 0);") {
		t.Fatalf("expected explicit child color, got %s", wgsl)
	}
}

func TestChildSpawningWGSLInheritsDeathColorByDefault(t *testing.T) {
	se := SubEmitter{ParentType: 0, ChildType: 1}
	wgsl := se.ChildSpawningWGSL(0)
	if !strings.Contains(wgsl, "child.color = death.color;") {
		t.Fatalf("expected inherited death color, got %s", wgsl)
	}
}

func TestDeathRecordingWGSLCombinesOnDeathByType(t *testing.T) {
	subs := []SubEmitter{
		{ParentType: 0, Trigger: Trigger{Kind: OnDeath}},
		{ParentType: 1, Trigger: Trigger{Kind: OnDeath}},
	}
	wgsl := DeathRecordingWGSL(subs)
	if !strings.Contains(wgsl, "p.particle_type == 0u || p.particle_type == 1u") {
		t.Fatalf("expected combined type condition, got %s", wgsl)
	}
}

func TestDeathRecordingWGSLEmitsOnConditionIndividually(t *testing.T) {
	subs := []SubEmitter{
		{ParentType: 2, Trigger: Trigger{Kind: OnCondition, Condition: "p.age > 5.0"}},
	}
	wgsl := DeathRecordingWGSL(subs)
	if !strings.Contains(wgsl, "p.particle_type == 2u && (p.age > 5.0)") {
		t.Fatalf("expected condition spliced in verbatim, got %s", wgsl)
	}
}

func TestDeathRecordingWGSLEmptyForNoSubEmitters(t *testing.T) {
	if got := DeathRecordingWGSL(nil); got != "" {
		t.Fatalf("expected empty string for no sub-emitters, got %q", got)
	}
}

func TestGenerateSpawnShaderEmbedsParticleStructAndAllSubEmitters(t *testing.T) {
	particleStruct := "struct Particle { position: vec3<f32> };"
	subs := []SubEmitter{
		{ParentType: 0, ChildType: 1, Count: 2},
		{ParentType: 1, ChildType: 2, Count: 3},
	}
	wgsl := GenerateSpawnShader(particleStruct, subs)
	if !strings.Contains(wgsl, particleStruct) {
		t.Fatal("expected particle struct embedded verbatim")
	}
	if !strings.Contains(wgsl, "Sub-emitter 0:") || !strings.Contains(wgsl, "Sub-emitter 1:") {
		t.Fatal("expected both sub-emitter blocks present")
	}
	if !strings.Contains(wgsl, "fn rand_sphere") {
		t.Fatal("expected rand_sphere helper present")
	}
}
