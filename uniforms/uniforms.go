// Package uniforms implements custom per-simulation uniform values:
// named scalars and vectors exposed to rule and shader WGSL as fields
// of the `uniforms` struct, serialized in name-sorted order.
package uniforms

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies the WGSL type a Value holds.
type Kind int

const (
	F32 Kind = iota
	I32
	U32
	Vec2
	Vec3
	Vec4
)

// Value is a tagged custom-uniform value.
type Value struct {
	Kind        Kind
	Scalar      float32
	ScalarI     int32
	ScalarU     uint32
	Vec2Val     mgl32.Vec2
	Vec3Val     mgl32.Vec3
	Vec4Val     mgl32.Vec4
}

func FromF32(v float32) Value { return Value{Kind: F32, Scalar: v} }
func FromI32(v int32) Value   { return Value{Kind: I32, ScalarI: v} }
func FromU32(v uint32) Value  { return Value{Kind: U32, ScalarU: v} }
func FromVec2(v mgl32.Vec2) Value { return Value{Kind: Vec2, Vec2Val: v} }
func FromVec3(v mgl32.Vec3) Value { return Value{Kind: Vec3, Vec3Val: v} }
func FromVec4(v mgl32.Vec4) Value { return Value{Kind: Vec4, Vec4Val: v} }

// WGSLType returns the WGSL type name for this value.
func (v Value) WGSLType() string {
	switch v.Kind {
	case F32:
		return "f32"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case Vec2:
		return "vec2<f32>"
	case Vec3:
		return "vec3<f32>"
	case Vec4:
		return "vec4<f32>"
	default:
		return "f32"
	}
}

// byteSize returns the unpadded byte size of the value.
func (v Value) byteSize() int {
	switch v.Kind {
	case F32, I32, U32:
		return 4
	case Vec2:
		return 8
	case Vec3:
		return 12
	case Vec4:
		return 16
	default:
		return 4
	}
}

// align returns the std140-style alignment this value requires.
func (v Value) align() int {
	switch v.Kind {
	case Vec3, Vec4:
		return 16
	case Vec2:
		return 8
	default:
		return 4
	}
}

func (v Value) writeBytes(buf []byte) []byte {
	switch v.Kind {
	case F32:
		bits := math.Float32bits(v.Scalar)
		return binary.LittleEndian.AppendUint32(buf, bits)
	case I32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v.ScalarI))
	case U32:
		return binary.LittleEndian.AppendUint32(buf, v.ScalarU)
	case Vec2:
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec2Val.X()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec2Val.Y()))
		return buf
	case Vec3:
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec3Val.X()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec3Val.Y()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec3Val.Z()))
		return buf
	case Vec4:
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec4Val.X()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec4Val.Y()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec4Val.Z()))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Vec4Val.W()))
		return buf
	default:
		return buf
	}
}

type entry struct {
	name  string
	value Value
}

// CustomUniforms holds a declaration-ordered set of named uniform
// values. The generated WGSL struct layout and the serialized byte
// layout both follow the name-sorted SortedView, not declaration
// order, so codegen and upload walk the same sequence.
type CustomUniforms struct {
	values  []entry
	indices map[string]int
}

// New creates an empty custom uniform set.
func New() *CustomUniforms {
	return &CustomUniforms{indices: make(map[string]int)}
}

// Set adds or updates a uniform by name, preserving its original
// declaration position on update.
func (c *CustomUniforms) Set(name string, value Value) {
	if idx, ok := c.indices[name]; ok {
		c.values[idx].value = value
		return
	}
	c.indices[name] = len(c.values)
	c.values = append(c.values, entry{name: name, value: value})
}

// Get looks up a uniform's current value by name.
func (c *CustomUniforms) Get(name string) (Value, bool) {
	idx, ok := c.indices[name]
	if !ok {
		return Value{}, false
	}
	return c.values[idx].value, true
}

// Len reports how many custom uniforms are registered.
func (c *CustomUniforms) Len() int { return len(c.values) }

// SortedView returns every uniform sorted by name. The builder's
// insertion order (preserved by Set, above) is never observed past
// this point: codegen and byte serialization both walk this same
// name-sorted view, so the two never disagree about layout.
func (c *CustomUniforms) SortedView() []struct {
	Name  string
	Value Value
} {
	out := make([]struct {
		Name  string
		Value Value
	}, len(c.values))
	for i, e := range c.values {
		out[i] = struct {
			Name  string
			Value Value
		}{Name: e.name, Value: e.value}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToWGSLFields generates the struct field declarations for every
// registered uniform, one per line, in name-sorted order.
func (c *CustomUniforms) ToWGSLFields() string {
	view := c.SortedView()
	lines := make([]string, 0, len(view))
	for _, e := range view {
		lines = append(lines, fmt.Sprintf("    %s: %s,", e.Name, e.Value.WGSLType()))
	}
	return strings.Join(lines, "\n")
}

// ToBytes serializes every value in name-sorted order, padding before
// each value to its required alignment.
func (c *CustomUniforms) ToBytes() []byte {
	buf := make([]byte, 0, 64)
	for _, e := range c.SortedView() {
		align := e.Value.align()
		for len(buf)%align != 0 {
			buf = append(buf, 0)
		}
		buf = e.Value.writeBytes(buf)
	}
	return buf
}

// ByteSize returns the total serialized size rounded up to 16 bytes,
// matching the uniform buffer's required alignment.
func (c *CustomUniforms) ByteSize() int {
	n := len(c.ToBytes())
	return (n + 15) &^ 15
}
