package fields

import (
	"strings"
	"testing"
)

func TestRegistryAssignsStableIndices(t *testing.T) {
	r := NewRegistry()
	idx0, err := r.Add(Config{Name: "food", Resolution: 32, WorldExtent: 1, Decay: 0.99, Blur: 0.1, BlurIterations: 1})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	idx1, err := r.Add(Config{Name: "danger", Resolution: 16, WorldExtent: 1, Decay: 0.9, Blur: 0, BlurIterations: 1})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx0 != 0 || idx1 != 1 {
		t.Fatalf("expected registration order 0,1 got %d,%d", idx0, idx1)
	}
	got, ok := r.IndexOf("danger")
	if !ok || got != 1 {
		t.Fatalf("IndexOf(danger) = %d,%v want 1,true", got, ok)
	}
}

func TestRegistryRejectsOutOfRangeResolution(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add(Config{Name: "bad", Resolution: 4, WorldExtent: 1, Decay: 1, Blur: 0, BlurIterations: 1})
	if err == nil {
		t.Fatal("expected resolution range error")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	cfg := Config{Name: "food", Resolution: 16, WorldExtent: 1, Decay: 1, Blur: 0, BlurIterations: 1}
	if _, err := r.Add(cfg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Add(cfg); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestToWGSLDeclarationsBindingsGrowByTwo(t *testing.T) {
	r := NewRegistry()
	r.Add(Config{Name: "a", Resolution: 16, WorldExtent: 1, Decay: 1, Blur: 0, BlurIterations: 1})
	r.Add(Config{Name: "b", Resolution: 16, WorldExtent: 1, Decay: 1, Blur: 0, BlurIterations: 1})
	wgsl := r.ToWGSLDeclarations(0)
	for _, want := range []string{
		"@binding(0)\nvar<storage, read_write> field_0_write",
		"@binding(1)\nvar<storage, read> field_0_read",
		"@binding(2)\nvar<storage, read_write> field_1_write",
		"@binding(3)\nvar<storage, read> field_1_read",
		"@binding(4)\nvar<storage, read> field_params",
		"case 0u: { atomicAdd(&field_0_write[idx], scaled); }",
		"case 1u: { atomicAdd(&field_1_write[idx], scaled); }",
	} {
		if !strings.Contains(wgsl, want) {
			t.Errorf("missing %q in:\n%s", want, wgsl)
		}
	}
}

func TestEmptyRegistryEmitsNothing(t *testing.T) {
	r := NewRegistry()
	if wgsl := r.ToWGSLDeclarations(0); wgsl != "" {
		t.Fatalf("expected empty declarations, got: %s", wgsl)
	}
}

func TestFieldScaleRoundTrip(t *testing.T) {
	v := float32(1.5)
	scaled := int32(v * FieldScale)
	back := float32(scaled) / FieldScale
	if back < 1.4999 || back > 1.5001 {
		t.Fatalf("fixed-point round trip drifted: %v", back)
	}
}
