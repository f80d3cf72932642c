package schema

import "testing"

func TestBuildLayoutBaseFieldsOnly(t *testing.T) {
	l, err := BuildLayout(nil)
	if err != nil {
		t.Fatalf("BuildLayout: %v", err)
	}
	if l.Stride%16 != 0 {
		t.Fatalf("stride %d not a multiple of 16", l.Stride)
	}
	if l.PositionOff != 0 {
		t.Fatalf("position offset = %d, want 0", l.PositionOff)
	}
	if l.VelocityOff != 16 {
		t.Fatalf("velocity offset = %d, want 16", l.VelocityOff)
	}
	if l.ColorOff != 32 {
		t.Fatalf("color offset = %d, want 32", l.ColorOff)
	}
	if l.TypeOff != 44 {
		t.Fatalf("particle_type offset = %d, want 44", l.TypeOff)
	}
}

func TestBuildLayoutUserFields(t *testing.T) {
	l, err := BuildLayout([]UserField{
		{Name: "mass", Type: FieldF32},
		{Name: "spin", Type: FieldVec3},
	})
	if err != nil {
		t.Fatalf("BuildLayout: %v", err)
	}
	massOff, ok := l.OffsetOf("mass")
	if !ok {
		t.Fatal("mass offset not found")
	}
	spinOff, ok := l.OffsetOf("spin")
	if !ok {
		t.Fatal("spin offset not found")
	}
	if spinOff%16 != 0 {
		t.Fatalf("vec3 field %q must be 16-byte aligned, got offset %d", "spin", spinOff)
	}
	if massOff >= spinOff {
		t.Fatalf("mass (%d) should precede spin (%d) in declaration order", massOff, spinOff)
	}
	if l.Stride%16 != 0 {
		t.Fatalf("stride %d not a multiple of 16", l.Stride)
	}
}

func TestBuildLayoutRejectsReservedName(t *testing.T) {
	_, err := BuildLayout([]UserField{{Name: "velocity", Type: FieldF32}})
	if err == nil {
		t.Fatal("expected error for reserved field name")
	}
}

func TestBuildLayoutRejectsDuplicateName(t *testing.T) {
	_, err := BuildLayout([]UserField{
		{Name: "mass", Type: FieldF32},
		{Name: "mass", Type: FieldF32},
	})
	if err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestWGSLStructOffsetsMatchLayout(t *testing.T) {
	l, err := BuildLayout([]UserField{{Name: "mass", Type: FieldF32}})
	if err != nil {
		t.Fatalf("BuildLayout: %v", err)
	}
	wgsl := l.WGSLStruct()
	if wgsl == "" {
		t.Fatal("empty WGSL struct")
	}
	if want := "mass: f32,"; !contains(wgsl, want) {
		t.Fatalf("WGSL struct missing %q:\n%s", want, wgsl)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
