package shaders

import (
	"strings"
	"testing"
)

func TestBuiltinUtilsWGSLIncludesAllThreeLibraries(t *testing.T) {
	combined := BuiltinUtilsWGSL()
	for _, want := range []string{"fn hash(", "fn noise3(", "fn hsv_to_rgb("} {
		if !strings.Contains(combined, want) {
			t.Fatalf("expected %q in combined utilities", want)
		}
	}
}

func TestBuiltinUtilsWGSLOrdersRandomBeforeNoiseBeforeColor(t *testing.T) {
	combined := BuiltinUtilsWGSL()
	randIdx := strings.Index(combined, "fn hash(")
	noiseIdx := strings.Index(combined, "fn noise3(")
	colorIdx := strings.Index(combined, "fn hsv_to_rgb(")
	if !(randIdx < noiseIdx && noiseIdx < colorIdx) {
		t.Fatalf("expected random < noise < color ordering, got %d %d %d", randIdx, noiseIdx, colorIdx)
	}
}

func TestFullscreenWGSLDeclaresVertexStage(t *testing.T) {
	if !strings.Contains(FullscreenWGSL, "@vertex") {
		t.Fatal("expected fullscreen shader to declare a vertex stage")
	}
}
