package uniforms

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSetUpdatesInPlaceRatherThanDuplicating(t *testing.T) {
	u := New()
	u.Set("a", FromF32(1))
	u.Set("b", FromF32(2))
	u.Set("a", FromF32(3))

	view := u.SortedView()
	if len(view) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(view))
	}
	if view[0].Name != "a" || view[0].Value.Scalar != 3 {
		t.Fatalf("expected updated 'a' value to stick, got %+v", view[0])
	}
	if view[1].Name != "b" {
		t.Fatalf("expected 'b' second, got %+v", view[1])
	}
}

func TestSortedViewIgnoresInsertionOrder(t *testing.T) {
	u := New()
	u.Set("zebra", FromF32(1))
	u.Set("apple", FromF32(2))

	view := u.SortedView()
	if view[0].Name != "apple" || view[1].Name != "zebra" {
		t.Fatalf("expected name-sorted order regardless of insertion, got %+v", view)
	}
}

func TestGetReturnsFalseForMissing(t *testing.T) {
	u := New()
	if _, ok := u.Get("missing"); ok {
		t.Fatal("expected ok=false for unknown uniform")
	}
}

func TestToWGSLFieldsUsesNameSortedOrderNotInsertionOrder(t *testing.T) {
	u := New()
	u.Set("strength", FromF32(1))
	u.Set("attractor", FromVec3(mgl32.Vec3{0, 0, 0}))

	wgsl := u.ToWGSLFields()
	wantOrder := []string{"attractor: vec3<f32>,", "strength: f32,"}
	idx := 0
	for _, want := range wantOrder {
		found := indexFrom(wgsl, want, idx)
		if found < idx {
			t.Fatalf("expected %q in order within %q", want, wgsl)
		}
		idx = found
	}
}

func indexFrom(s, substr string, from int) int {
	for i := from; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestToBytesAlignsVec3To16(t *testing.T) {
	u := New()
	u.Set("flag", FromU32(1))
	u.Set("zvec", FromVec3(mgl32.Vec3{1, 2, 3}))

	buf := u.ToBytes()
	// Sorted by name: "flag" (u32, 4 bytes) before "zvec" (vec3, 16-byte
	// aligned): flag at offset 0, then 12 bytes of padding, then the
	// vec3's 12 bytes of data.
	if len(buf) != 4+12+12 {
		t.Fatalf("expected 28 bytes (4 + 12 pad + 12 vec3), got %d", len(buf))
	}
}

func TestByteSizeRoundsUpTo16(t *testing.T) {
	u := New()
	u.Set("only", FromF32(1))
	if size := u.ByteSize(); size != 16 {
		t.Fatalf("ByteSize() = %d, want 16", size)
	}
}

func TestEmptyByteSizeIsZero(t *testing.T) {
	u := New()
	if size := u.ByteSize(); size != 0 {
		t.Fatalf("ByteSize() on empty set = %d, want 0", size)
	}
}
