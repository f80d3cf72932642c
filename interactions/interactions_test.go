package interactions

import (
	"strings"
	"testing"
)

func TestSetAndMaxRadius(t *testing.T) {
	m := New(2)
	m.Set(0, 1, 1.0, 0.5)
	m.Set(1, 0, -3.0, 0.4)
	if m.MaxRadius() != 0.5 {
		t.Fatalf("MaxRadius() = %v, want 0.5", m.MaxRadius())
	}
	data := m.Data()
	if data[0*2+1].Strength != 1.0 {
		t.Fatalf("cell[0][1].Strength = %v, want 1.0", data[0*2+1].Strength)
	}
	if data[1*2+0].Strength != -3.0 {
		t.Fatalf("cell[1][0].Strength = %v, want -3.0", data[1*2+0].Strength)
	}
}

func TestAttractAlwaysPositive(t *testing.T) {
	m := New(1)
	m.Attract(0, 0, -2.0, 0.1)
	if m.Data()[0].Strength <= 0 {
		t.Fatalf("Attract must store a positive strength, got %v", m.Data()[0].Strength)
	}
}

func TestRepelAlwaysNegative(t *testing.T) {
	m := New(1)
	m.Repel(0, 0, 2.0, 0.1)
	if m.Data()[0].Strength >= 0 {
		t.Fatalf("Repel must store a negative strength, got %v", m.Data()[0].Strength)
	}
}

func TestZeroRowUntouched(t *testing.T) {
	m := New(2)
	m.Set(0, 1, 1.0, 0.5)
	if m.Data()[1*2+0].Strength != 0 || m.Data()[1*2+0].Radius != 0 {
		t.Fatal("row for type 1 should remain all-ignore when never set")
	}
}

func TestToWGSLInitEmbedsTable(t *testing.T) {
	m := New(2)
	m.Set(0, 1, 1.0, 0.5)
	wgsl := m.ToWGSLInit()
	if !strings.Contains(wgsl, "array<vec2<f32>, 4>") {
		t.Fatalf("expected 4-entry table for 2 types: %s", wgsl)
	}
	if !strings.Contains(wgsl, "vec2<f32>(1, 0.5)") {
		t.Fatalf("expected set cell embedded: %s", wgsl)
	}
}
