// Package schema describes a particle's GPU memory layout.
//
// The layout follows std430: vec3 fields are 16-byte aligned with a
// 4-byte trailing pad, and the overall stride is rounded up to 16.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// FieldType is the scalar/vector type of a user field.
type FieldType int

const (
	FieldF32 FieldType = iota
	FieldI32
	FieldU32
	FieldVec2
	FieldVec3
	FieldVec4
)

func (t FieldType) String() string {
	switch t {
	case FieldF32:
		return "f32"
	case FieldI32:
		return "i32"
	case FieldU32:
		return "u32"
	case FieldVec2:
		return "vec2<f32>"
	case FieldVec3:
		return "vec3<f32>"
	case FieldVec4:
		return "vec4<f32>"
	default:
		return "f32"
	}
}

// Size returns the byte size of the type.
func (t FieldType) Size() uint32 {
	switch t {
	case FieldF32, FieldI32, FieldU32:
		return 4
	case FieldVec2:
		return 8
	case FieldVec3:
		return 12
	case FieldVec4:
		return 16
	default:
		return 4
	}
}

// Align returns the std430 alignment of the type.
func (t FieldType) Align() uint32 {
	switch t {
	case FieldF32, FieldI32, FieldU32:
		return 4
	case FieldVec2:
		return 8
	case FieldVec3, FieldVec4:
		return 16
	default:
		return 4
	}
}

// UserField is one caller-declared particle field beyond the base set.
type UserField struct {
	Name    string
	Type    FieldType
	Default [4]float32
}

// reservedNames are the base fields every particle carries; a user
// field may not reuse one of these.
var reservedNames = map[string]bool{
	"position": true, "velocity": true, "color": true,
	"particle_type": true, "age": true, "alive": true, "scale": true,
}

// UserFieldOffset is a resolved (name, type, offset) triple.
type UserFieldOffset struct {
	Name   string
	Type   FieldType
	Offset uint32
}

// ParticleLayout is the resolved byte layout of a particle record.
type ParticleLayout struct {
	Stride       uint32
	PositionOff  uint32
	VelocityOff  uint32
	ColorOff     uint32
	TypeOff      uint32
	AgeOff       uint32
	AliveOff     uint32
	ScaleOff     uint32
	HasColor     bool
	UserFields   []UserFieldOffset
	nameToOffset map[string]uint32
}

// OffsetOf returns the byte offset of a field by name, including base
// fields, or (0, false) if unknown.
func (l *ParticleLayout) OffsetOf(name string) (uint32, bool) {
	off, ok := l.nameToOffset[name]
	return off, ok
}

func alignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// BuildLayout runs the layout pass described in the particle schema
// component: base fields first in fixed order, then user fields sorted
// by declaration order with their own alignment, then a pad to 16.
func BuildLayout(userFields []UserField) (*ParticleLayout, error) {
	seen := make(map[string]bool, len(userFields))
	for _, f := range userFields {
		if reservedNames[f.Name] {
			return nil, fmt.Errorf("schema: user field %q reuses a reserved base field name", f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema: duplicate user field %q", f.Name)
		}
		seen[f.Name] = true
	}

	l := &ParticleLayout{nameToOffset: make(map[string]uint32)}

	var off uint32
	l.PositionOff = off
	l.nameToOffset["position"] = off
	off += 12 // vec3, padded to 16 by the following field's alignment
	off = alignUp(off, 16)

	l.VelocityOff = off
	l.nameToOffset["velocity"] = off
	off += 12
	off = alignUp(off, 16)

	// color: vec3 + particle_type: u32 packed into one vec4-aligned block.
	l.ColorOff = off
	l.nameToOffset["color"] = off
	l.TypeOff = off + 12
	l.nameToOffset["particle_type"] = l.TypeOff
	off += 16

	l.AgeOff = off
	l.nameToOffset["age"] = off
	off += 4
	l.AliveOff = off
	l.nameToOffset["alive"] = off
	off += 4
	l.ScaleOff = off
	l.nameToOffset["scale"] = off
	off += 4
	off += 4 // pad u32 completing the 16-byte block

	for _, f := range userFields {
		off = alignUp(off, f.Type.Align())
		uo := UserFieldOffset{Name: f.Name, Type: f.Type, Offset: off}
		l.UserFields = append(l.UserFields, uo)
		l.nameToOffset[f.Name] = off
		off += f.Type.Size()
	}

	l.Stride = alignUp(off, 16)
	return l, nil
}

// TagColor marks the schema as carrying a user-visible color field; the
// base layout already reserves the color slot, so this only flips the
// HasColor flag used by codegen to decide whether to read it instead of
// defaulting to white.
func (l *ParticleLayout) TagColor() { l.HasColor = true }

// WGSLStruct emits the `Particle` struct declaration whose field-by-field
// memory image matches the layout byte-for-byte.
func (l *ParticleLayout) WGSLStruct() string {
	var b strings.Builder
	b.WriteString("struct Particle {\n")
	b.WriteString("    position: vec3<f32>,\n")
	b.WriteString("    velocity: vec3<f32>,\n")
	b.WriteString("    color: vec3<f32>,\n")
	b.WriteString("    particle_type: u32,\n")
	b.WriteString("    age: f32,\n")
	b.WriteString("    alive: u32,\n")
	b.WriteString("    scale: f32,\n")
	b.WriteString("    _pad0: u32,\n")
	fields := append([]UserFieldOffset(nil), l.UserFields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })
	for _, f := range fields {
		b.WriteString(fmt.Sprintf("    %s: %s,\n", f.Name, f.Type.String()))
	}
	padBytes := l.Stride - l.fieldsEnd()
	for i := 0; padBytes >= 4; i++ {
		b.WriteString(fmt.Sprintf("    _tailpad%d: u32,\n", i))
		padBytes -= 4
	}
	b.WriteString("}\n")
	return b.String()
}

func (l *ParticleLayout) fieldsEnd() uint32 {
	end := l.ScaleOff + 4 + 4
	for _, f := range l.UserFields {
		e := f.Offset + f.Type.Size()
		if e > end {
			end = e
		}
	}
	return end
}
