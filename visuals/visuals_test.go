package visuals

import (
	"strings"
	"testing"
)

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	c := NewConfig()
	if c.BlendMode != BlendAlpha {
		t.Errorf("expected default blend mode Alpha, got %v", c.BlendMode)
	}
	if c.Shape != ShapeCircle {
		t.Errorf("expected default shape Circle, got %v", c.Shape)
	}
	if c.ConnectionsEnabled {
		t.Error("expected connections disabled by default")
	}
}

func TestAdditiveBlendUsesOneDstFactor(t *testing.T) {
	f := BlendAdditive.ToWGPUBlend()
	if f.DstFactor != "One" {
		t.Fatalf("expected additive blend dst factor One, got %s", f.DstFactor)
	}
}

func TestMultiplyBlendUsesDstAsSource(t *testing.T) {
	f := BlendMultiply.ToWGPUBlend()
	if f.SrcFactor != "Dst" || f.DstFactor != "Zero" {
		t.Fatalf("expected multiply blend (Dst, Zero), got (%s, %s)", f.SrcFactor, f.DstFactor)
	}
}

func TestCircleShapeDiscardsOutsideUnitRadius(t *testing.T) {
	body := ShapeCircle.ToWGSLFragment()
	if !strings.Contains(body, "dist > 1.0") || !strings.Contains(body, "discard") {
		t.Fatalf("expected discard past unit radius: %s", body)
	}
}

func TestPointShapeNeverDiscards(t *testing.T) {
	body := ShapePoint.ToWGSLFragment()
	if strings.Contains(body, "discard") {
		t.Fatalf("point shape should not discard: %s", body)
	}
}

func TestPaletteColorsReturnsFiveStops(t *testing.T) {
	for p := PaletteNone; p <= PaletteGrayscale; p++ {
		if colors := p.Colors(); len(colors) != 5 {
			t.Fatalf("palette %v: expected 5 stops, got %d", p, len(colors))
		}
	}
}

func TestSpatialGridOpacityIsClamped(t *testing.T) {
	c := NewConfig().WithSpatialGrid(5.0)
	if c.SpatialGridOpacity != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", c.SpatialGridOpacity)
	}
	c2 := NewConfig().WithSpatialGrid(-5.0)
	if c2.SpatialGridOpacity != 0.0 {
		t.Fatalf("expected clamp to 0.0, got %v", c2.SpatialGridOpacity)
	}
}

func TestFluentSettersChain(t *testing.T) {
	c := NewConfig().
		WithBlendMode(BlendAdditive).
		WithShape(ShapeStar).
		WithTrails(8).
		WithConnections(0.2)
	if c.BlendMode != BlendAdditive || c.Shape != ShapeStar || c.TrailLength != 8 || !c.ConnectionsEnabled {
		t.Fatalf("expected chained setters to all apply: %+v", c)
	}
}

func TestMeshPresetsHaveEvenEndpointCounts(t *testing.T) {
	for name, mesh := range map[string]WireframeMesh{
		"cube":        CubeMesh(),
		"tetrahedron": TetrahedronMesh(),
		"octahedron":  OctahedronMesh(),
	} {
		if len(mesh.Lines)%2 != 0 {
			t.Fatalf("%s: endpoint count %d is not paired", name, len(mesh.Lines))
		}
		if mesh.LineCount() == 0 {
			t.Fatalf("%s: empty mesh", name)
		}
		if mesh.LineThickness <= 0 {
			t.Fatalf("%s: non-positive line thickness", name)
		}
	}
	if got := CubeMesh().LineCount(); got != 12 {
		t.Fatalf("cube has 12 edges, got %d", got)
	}
}

func TestWithVolumeFillsDefaults(t *testing.T) {
	c := NewConfig().WithVolume(VolumeConfig{FieldName: "density"})
	if c.Volume == nil {
		t.Fatal("expected volume config set")
	}
	if c.Volume.Steps == 0 || c.Volume.DensityScale <= 0 {
		t.Fatalf("expected defaulted steps/density scale: %+v", c.Volume)
	}
}

func TestWithWireframeDefaultsThickness(t *testing.T) {
	c := NewConfig().WithWireframe(WireframeMesh{Lines: CubeMesh().Lines})
	if c.Wireframe == nil || c.Wireframe.LineThickness <= 0 {
		t.Fatalf("expected defaulted line thickness: %+v", c.Wireframe)
	}
}
