// Package fields implements named 3D spatial fields: configuration,
// the per-field atomic-write/float-read buffer layout, and the WGSL
// access-function codegen the particle kernel links against.
package fields

import (
	"fmt"
	"strings"
)

// FieldScale is the 16.16 fixed-point scale used for atomic field
// writes (WGSL has no float atomics).
const FieldScale = 65536.0

// Type distinguishes scalar vs 3-vector fields; vector fields store
// three components per cell.
type Type int

const (
	Scalar Type = iota
	Vector
)

// Config is one named field's tunables.
type Config struct {
	Name           string
	Resolution     uint32 // cells per axis, 8..=256
	WorldExtent    float32
	Decay          float32 // 0..=1
	Blur           float32 // 0..=1
	BlurIterations uint32
	Type           Type
}

// TotalCells returns resolution^3.
func (c Config) TotalCells() uint32 { return c.Resolution * c.Resolution * c.Resolution }

// Components returns 1 for scalar fields, 3 for vector fields.
func (c Config) Components() uint32 {
	if c.Type == Vector {
		return 3
	}
	return 1
}

// Validate enforces the configuration-error invariants from the field
// registry contract: power-of-two-free but bounded resolution and
// sane decay/blur ranges.
func (c Config) Validate() error {
	if c.Resolution < 8 || c.Resolution > 256 {
		return fmt.Errorf("fields: %q resolution %d outside 8..=256", c.Name, c.Resolution)
	}
	if c.Decay < 0 || c.Decay > 1 {
		return fmt.Errorf("fields: %q decay %g outside 0..=1", c.Name, c.Decay)
	}
	if c.Blur < 0 || c.Blur > 1 {
		return fmt.Errorf("fields: %q blur %g outside 0..=1", c.Name, c.Blur)
	}
	if c.BlurIterations < 1 {
		return fmt.Errorf("fields: %q blur_iterations must be >= 1", c.Name)
	}
	return nil
}

// Registry is the ordered set of fields a simulation registers; a
// field's index is its registration order and is stable thereafter.
type Registry struct {
	fields []Config
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Add registers a field, returning its stable index.
func (r *Registry) Add(c Config) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if _, dup := r.byName[c.Name]; dup {
		return 0, fmt.Errorf("fields: duplicate field name %q", c.Name)
	}
	idx := len(r.fields)
	r.fields = append(r.fields, c)
	r.byName[c.Name] = idx
	return idx, nil
}

// IndexOf returns a field's registration index.
func (r *Registry) IndexOf(name string) (int, bool) {
	idx, ok := r.byName[name]
	return idx, ok
}

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.fields) }

// All returns the fields in registration order.
func (r *Registry) All() []Config { return r.fields }

// ToWGSLDeclarations emits, per field in registration order, a storage
// RW atomic<i32> write binding followed by a storage-read f32 read
// binding, then the FieldParams struct and its storage array binding,
// then the field_pos_to_idx/field_write/field_read/field_gradient
// helper functions with compile-time switch routing over field_idx.
func (r *Registry) ToWGSLDeclarations(baseBinding uint32) string {
	if len(r.fields) == 0 {
		return ""
	}

	var code strings.Builder
	fieldCount := len(r.fields)
	binding := baseBinding

	for i, f := range r.fields {
		fmt.Fprintf(&code, "// Field %d: '%s' (%d³ = %d cells)\n", i, f.Name, f.Resolution, f.TotalCells())
		fmt.Fprintf(&code, "@group(2) @binding(%d)\nvar<storage, read_write> field_%d_write: array<atomic<i32>>;\n", binding, i)
		binding++
		fmt.Fprintf(&code, "@group(2) @binding(%d)\nvar<storage, read> field_%d_read: array<f32>;\n", binding, i)
		binding++
		code.WriteString("\n")
	}

	code.WriteString(`struct FieldParams {
    resolution: u32,
    total_cells: u32,
    extent: f32,
    decay: f32,
    blur: f32,
    _pad0: f32,
    _pad1: f32,
    _pad2: f32,
};
`)

	fmt.Fprintf(&code, "\n@group(2) @binding(%d)\nvar<storage, read> field_params: array<FieldParams>;\n\n", binding)

	code.WriteString(generateHelperFunctions(fieldCount))
	return code.String()
}

func generateHelperFunctions(fieldCount int) string {
	var code strings.Builder

	code.WriteString(`
// Fixed-point scale for field writes (16.16 format)
const FIELD_SCALE: f32 = 65536.0;

fn field_pos_to_idx(field_idx: u32, pos: vec3<f32>) -> u32 {
    let params = field_params[field_idx];
    let resolution = params.resolution;
    let extent = params.extent;

    let half_size = extent;
    let normalized = (pos + vec3<f32>(half_size)) / (2.0 * half_size);
    let clamped = clamp(normalized, vec3<f32>(0.0), vec3<f32>(0.999));
    let cell = vec3<u32>(clamped * f32(resolution));

    return cell.x + cell.y * resolution + cell.z * resolution * resolution;
}

`)

	code.WriteString(`fn field_write(field_idx: u32, pos: vec3<f32>, value: f32) {
    let idx = field_pos_to_idx(field_idx, pos);
    let scaled = i32(clamp(value, -32768.0, 32767.0) * FIELD_SCALE);

    switch field_idx {
`)
	for i := 0; i < fieldCount; i++ {
		fmt.Fprintf(&code, "        case %du: { atomicAdd(&field_%d_write[idx], scaled); }\n", i, i)
	}
	code.WriteString(`        default: {}
    }
}

`)

	code.WriteString(`fn field_read(field_idx: u32, pos: vec3<f32>) -> f32 {
    let params = field_params[field_idx];
    let resolution = params.resolution;
    let extent = params.extent;

    let half_size = extent;
    let normalized = (pos + vec3<f32>(half_size)) / (2.0 * half_size);
    let float_cell = clamp(normalized, vec3<f32>(0.0), vec3<f32>(0.999)) * f32(resolution);

    let cell = vec3<u32>(floor(float_cell));
    let frac = fract(float_cell);

    let res = resolution;
    let c000 = cell.x + cell.y * res + cell.z * res * res;
    let c100 = min(cell.x + 1u, res - 1u) + cell.y * res + cell.z * res * res;
    let c010 = cell.x + min(cell.y + 1u, res - 1u) * res + cell.z * res * res;
    let c110 = min(cell.x + 1u, res - 1u) + min(cell.y + 1u, res - 1u) * res + cell.z * res * res;
    let c001 = cell.x + cell.y * res + min(cell.z + 1u, res - 1u) * res * res;
    let c101 = min(cell.x + 1u, res - 1u) + cell.y * res + min(cell.z + 1u, res - 1u) * res * res;
    let c011 = cell.x + min(cell.y + 1u, res - 1u) * res + min(cell.z + 1u, res - 1u) * res * res;
    let c111 = min(cell.x + 1u, res - 1u) + min(cell.y + 1u, res - 1u) * res + min(cell.z + 1u, res - 1u) * res * res;

    var v000: f32; var v100: f32; var v010: f32; var v110: f32;
    var v001: f32; var v101: f32; var v011: f32; var v111: f32;

    switch field_idx {
`)
	for i := 0; i < fieldCount; i++ {
		fmt.Fprintf(&code, `        case %du: {
            v000 = field_%d_read[c000]; v100 = field_%d_read[c100];
            v010 = field_%d_read[c010]; v110 = field_%d_read[c110];
            v001 = field_%d_read[c001]; v101 = field_%d_read[c101];
            v011 = field_%d_read[c011]; v111 = field_%d_read[c111];
        }
`, i, i, i, i, i, i, i, i, i)
	}
	code.WriteString(`        default: {
            v000 = 0.0; v100 = 0.0; v010 = 0.0; v110 = 0.0;
            v001 = 0.0; v101 = 0.0; v011 = 0.0; v111 = 0.0;
        }
    }

    let v00 = mix(v000, v100, frac.x);
    let v10 = mix(v010, v110, frac.x);
    let v01 = mix(v001, v101, frac.x);
    let v11 = mix(v011, v111, frac.x);
    let v0 = mix(v00, v10, frac.y);
    let v1 = mix(v01, v11, frac.y);
    return mix(v0, v1, frac.z);
}

`)

	code.WriteString(`fn field_gradient(field_idx: u32, pos: vec3<f32>, epsilon: f32) -> vec3<f32> {
    let dx = field_read(field_idx, pos + vec3<f32>(epsilon, 0.0, 0.0))
           - field_read(field_idx, pos - vec3<f32>(epsilon, 0.0, 0.0));
    let dy = field_read(field_idx, pos + vec3<f32>(0.0, epsilon, 0.0))
           - field_read(field_idx, pos - vec3<f32>(0.0, epsilon, 0.0));
    let dz = field_read(field_idx, pos + vec3<f32>(0.0, 0.0, epsilon))
           - field_read(field_idx, pos - vec3<f32>(0.0, 0.0, epsilon));
    return vec3<f32>(dx, dy, dz) / (2.0 * epsilon);
}
`)

	return code.String()
}

// MergeShader converts fixed-point atomic deposits into the read
// buffer: `read_buffer[idx] += write_buffer[idx] / FIELD_SCALE`.
const MergeShader = `
struct Params {
    resolution: u32,
    total_cells: u32,
    extent: f32,
    decay: f32,
    blur: f32,
    field_type: u32,
    _pad1: f32,
    _pad2: f32,
};

const FIELD_SCALE: f32 = 65536.0;

@group(0) @binding(0)
var<storage, read> write_buffer: array<i32>;

@group(0) @binding(1)
var<storage, read_write> read_buffer: array<f32>;

@group(0) @binding(2)
var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    let components = select(1u, 3u, params.field_type == 1u);
    let buffer_size = params.total_cells * components;
    if idx >= buffer_size {
        return;
    }

    let deposited = f32(write_buffer[idx]) / FIELD_SCALE;
    read_buffer[idx] = read_buffer[idx] + deposited;
}
`

// BlurDecayShader blurs each cell against its six face-adjacent
// neighbors, then applies decay, writing into the opposite buffer.
const BlurDecayShader = `
struct Params {
    resolution: u32,
    total_cells: u32,
    extent: f32,
    decay: f32,
    blur: f32,
    field_type: u32,
    _pad1: f32,
    _pad2: f32,
};

@group(0) @binding(0)
var<storage, read> src: array<f32>;

@group(0) @binding(1)
var<storage, read_write> dst: array<f32>;

@group(0) @binding(2)
var<uniform> params: Params;

fn idx_3d(x: u32, y: u32, z: u32) -> u32 {
    return x + y * params.resolution + z * params.resolution * params.resolution;
}

fn idx_to_3d(idx: u32) -> vec3<u32> {
    let res = params.resolution;
    let z = idx / (res * res);
    let remainder = idx % (res * res);
    let y = remainder / res;
    let x = remainder % res;
    return vec3<u32>(x, y, z);
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let cell_idx = global_id.x;
    if cell_idx >= params.total_cells {
        return;
    }

    let pos = idx_to_3d(cell_idx);
    let res = params.resolution;
    let components = select(1u, 3u, params.field_type == 1u);

    for (var c = 0u; c < components; c = c + 1u) {
        let idx = cell_idx * components + c;

        var sum = src[idx];
        var count = 1.0;

        if params.blur > 0.0 {
            if pos.x > 0u {
                sum += src[idx_3d(pos.x - 1u, pos.y, pos.z) * components + c] * params.blur;
                count += params.blur;
            }
            if pos.x < res - 1u {
                sum += src[idx_3d(pos.x + 1u, pos.y, pos.z) * components + c] * params.blur;
                count += params.blur;
            }
            if pos.y > 0u {
                sum += src[idx_3d(pos.x, pos.y - 1u, pos.z) * components + c] * params.blur;
                count += params.blur;
            }
            if pos.y < res - 1u {
                sum += src[idx_3d(pos.x, pos.y + 1u, pos.z) * components + c] * params.blur;
                count += params.blur;
            }
            if pos.z > 0u {
                sum += src[idx_3d(pos.x, pos.y, pos.z - 1u) * components + c] * params.blur;
                count += params.blur;
            }
            if pos.z < res - 1u {
                sum += src[idx_3d(pos.x, pos.y, pos.z + 1u) * components + c] * params.blur;
                count += params.blur;
            }
        }

        dst[idx] = (sum / count) * params.decay;
    }
}
`

// ClearShader resets the atomic write buffer to zero each frame.
const ClearShader = `
struct Params {
    resolution: u32,
    total_cells: u32,
    extent: f32,
    decay: f32,
    blur: f32,
    field_type: u32,
    _pad1: f32,
    _pad2: f32,
};

@group(0) @binding(0)
var<storage, read_write> write_buffer: array<atomic<i32>>;

@group(0) @binding(1)
var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    let components = select(1u, 3u, params.field_type == 1u);
    let buffer_size = params.total_cells * components;
    if idx >= buffer_size {
        return;
    }

    atomicStore(&write_buffer[idx], 0);
}
`
