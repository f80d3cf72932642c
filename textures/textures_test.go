package textures

import (
	"strings"
	"testing"
)

func TestFromRGBARejectsSizeMismatch(t *testing.T) {
	if _, err := FromRGBA(make([]byte, 3), 2, 2); err == nil {
		t.Fatal("expected error for mismatched data length")
	}
}

func TestSolidIsOnePixel(t *testing.T) {
	c := Solid(255, 0, 0, 255)
	if c.Width != 1 || c.Height != 1 {
		t.Fatalf("expected 1x1, got %dx%d", c.Width, c.Height)
	}
	if len(c.Data) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(c.Data))
	}
}

func TestGradientInterpolatesEndpoints(t *testing.T) {
	g := Gradient(4, [4]byte{0, 0, 0, 255}, [4]byte{255, 255, 255, 255})
	if g.Data[0] != 0 {
		t.Fatalf("expected first pixel to start at 0, got %d", g.Data[0])
	}
	last := (4 - 1) * 4
	if g.Data[last] != 255 {
		t.Fatalf("expected last pixel to end at 255, got %d", g.Data[last])
	}
}

func TestCheckerboardAlternates(t *testing.T) {
	c := Checkerboard(4, 1, [4]byte{255, 255, 255, 255}, [4]byte{0, 0, 0, 255})
	if c.Data[0] != 255 {
		t.Fatalf("expected first cell color1, got %d", c.Data[0])
	}
	secondCellOffset := 1 * 4
	if c.Data[secondCellOffset] != 0 {
		t.Fatalf("expected second cell color2, got %d", c.Data[secondCellOffset])
	}
}

func TestNoiseIsDeterministic(t *testing.T) {
	a := Noise(8, 42)
	b := Noise(8, 42)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("expected deterministic noise, differed at byte %d", i)
		}
	}
}

func TestRegistryBindingsGrowByTwo(t *testing.T) {
	r := NewRegistry()
	r.Add("noise", Noise(4, 1))
	r.Add("gradient", Gradient(4, [4]byte{0, 0, 0, 255}, [4]byte{255, 255, 255, 255}))

	wgsl := r.ToWGSLDeclarations(0)
	if !strings.Contains(wgsl, "@binding(0)\nvar tex_noise:") {
		t.Fatalf("expected tex_noise at binding 0: %s", wgsl)
	}
	if !strings.Contains(wgsl, "@binding(1)\nvar tex_noise_sampler:") {
		t.Fatalf("expected tex_noise_sampler at binding 1: %s", wgsl)
	}
	if !strings.Contains(wgsl, "@binding(2)\nvar tex_gradient:") {
		t.Fatalf("expected tex_gradient at binding 2: %s", wgsl)
	}
}

func TestEmptyRegistryEmitsNothing(t *testing.T) {
	r := NewRegistry()
	if got := r.ToWGSLDeclarations(0); got != "" {
		t.Fatalf("expected empty declarations, got %q", got)
	}
}
