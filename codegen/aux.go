package codegen

import (
	"fmt"
	"strings"

	"particleforge/shaders"
	"particleforge/spatial"
	"particleforge/visuals"
)

// buildConnectionComputeShader emits the neighbor-pair finder: one
// invocation per particle walks its 27 surrounding cells and appends
// a line segment for every other live particle within the connection
// radius, using an atomic counter for slot allocation. Only pairs
// with other_idx > idx are recorded so each connection appears once.
func buildConnectionComputeShader(cfg Config) string {
	var b strings.Builder

	b.WriteString(cfg.Layout.WGSLStruct())
	b.WriteString(`
struct ConnectionParams {
    radius: f32,
    max_connections: u32,
    num_particles: u32,
    _pad: u32,
};

struct SpatialParams {
    cell_size: f32,
    grid_resolution: u32,
    num_particles: u32,
    _pad: u32,
};
`)
	b.WriteString(spatial.MortonWGSL)
	b.WriteString(spatial.NeighborUtilsWGSL)
	b.WriteString(`
@group(0) @binding(0) var<storage, read> particles: array<Particle>;
@group(0) @binding(1) var<storage, read_write> connections: array<vec4<f32>>;
@group(0) @binding(2) var<storage, read_write> connection_count: atomic<u32>;
@group(0) @binding(3) var<uniform> params: ConnectionParams;
@group(0) @binding(4) var<storage, read> sorted_indices: array<u32>;
@group(0) @binding(5) var<storage, read> cell_start: array<u32>;
@group(0) @binding(6) var<storage, read> cell_end: array<u32>;
@group(0) @binding(7) var<uniform> spatial_params: SpatialParams;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if idx >= params.num_particles {
        return;
    }

    let me = particles[idx];
    if me.alive == 0u {
        return;
    }

    let my_pos = me.position;
    let my_cell = pos_to_cell(my_pos, spatial_params.cell_size, spatial_params.grid_resolution);
    let radius_sq = params.radius * params.radius;

    for (var offset_idx = 0u; offset_idx < 27u; offset_idx++) {
        let neighbor_morton = neighbor_cell_morton(my_cell, offset_idx, spatial_params.grid_resolution);
        if neighbor_morton == 0xFFFFFFFFu {
            continue;
        }

        let start = cell_start[neighbor_morton];
        let end = cell_end[neighbor_morton];
        if start == 0xFFFFFFFFu {
            continue;
        }

        for (var j = start; j < end; j++) {
            let other_idx = sorted_indices[j];
            if other_idx <= idx {
                continue;
            }

            let other = particles[other_idx];
            if other.alive == 0u {
                continue;
            }

            let diff = other.position - my_pos;
            let dist_sq = dot(diff, diff);

            if dist_sq < radius_sq && dist_sq > 0.0001 {
                let conn_idx = atomicAdd(&connection_count, 1u);
                if conn_idx < params.max_connections {
                    let dist = sqrt(dist_sq);
                    let alpha = 1.0 - dist / params.radius;
                    connections[conn_idx * 2u] = vec4<f32>(my_pos, alpha);
                    connections[conn_idx * 2u + 1u] = vec4<f32>(other.position, 0.0);
                }
            }
        }
    }
}
`)
	return b.String()
}

// connectionRenderWGSL draws each recorded segment as a thin
// camera-independent quad, fading by the distance-derived alpha the
// compute pass stored in the first endpoint's w component.
const connectionRenderWGSL = `
struct Uniforms {
    view_proj: mat4x4<f32>,
    time: f32,
    delta_time: f32,
};

struct RenderParams {
    color: vec3<f32>,
    _pad: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var<storage, read> connections: array<vec4<f32>>;
@group(0) @binding(2) var<uniform> render_params: RenderParams;
@group(0) @binding(3) var<storage, read> connection_count: u32;

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) alpha: f32,
};

@vertex
fn vs_main(
    @builtin(vertex_index) vertex_index: u32,
    @builtin(instance_index) instance_index: u32,
) -> VertexOutput {
    var out: VertexOutput;

    // Instances past this frame's count hold stale segments from an
    // earlier frame; clip them instead of re-clearing the buffer.
    if instance_index >= connection_count {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.alpha = 0.0;
        return out;
    }

    let conn_a = connections[instance_index * 2u];
    let conn_b = connections[instance_index * 2u + 1u];

    let pos_a = conn_a.xyz;
    let pos_b = conn_b.xyz;
    let alpha = conn_a.w;

    if alpha < 0.001 {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.alpha = 0.0;
        return out;
    }

    let line_dir = normalize(pos_b - pos_a);

    var perp = cross(line_dir, vec3<f32>(0.0, 1.0, 0.0));
    if length(perp) < 0.001 {
        perp = cross(line_dir, vec3<f32>(1.0, 0.0, 0.0));
    }
    perp = normalize(perp) * 0.002;

    var pos: vec3<f32>;
    switch vertex_index {
        case 0u: { pos = pos_a - perp; }
        case 1u: { pos = pos_a + perp; }
        case 2u: { pos = pos_b - perp; }
        case 3u: { pos = pos_a + perp; }
        case 4u: { pos = pos_b - perp; }
        default: { pos = pos_b + perp; }
    }

    out.clip_position = uniforms.view_proj * vec4<f32>(pos, 1.0);
    out.alpha = alpha * 0.5;

    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(render_params.color, in.alpha);
}
`

// buildTrailComputeShader shifts each particle's position-history
// window back one slot and stores the current position at the front.
func buildTrailComputeShader(cfg Config) string {
	var b strings.Builder
	b.WriteString(cfg.Layout.WGSLStruct())
	b.WriteString(`
struct TrailParams {
    num_particles: u32,
    trail_length: u32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<storage, read> particles: array<Particle>;
@group(0) @binding(1) var<storage, read_write> trails: array<vec4<f32>>;
@group(0) @binding(2) var<uniform> params: TrailParams;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let particle_idx = global_id.x;
    if particle_idx >= params.num_particles {
        return;
    }

    let trail_base = particle_idx * params.trail_length;

    for (var i = params.trail_length - 1u; i > 0u; i--) {
        trails[trail_base + i] = trails[trail_base + i - 1u];
    }

    let p = particles[particle_idx];
    trails[trail_base] = vec4<f32>(p.position, f32(p.alive));
}
`)
	return b.String()
}

// buildTrailRenderShader draws a shrinking, fading billboard at every
// stored history position, one instance per (particle, history slot).
func buildTrailRenderShader(cfg Config) string {
	particleSize := cfg.ParticleSize
	if particleSize <= 0 {
		particleSize = 1.0
	}
	return fmt.Sprintf(`
struct Uniforms {
    view_proj: mat4x4<f32>,
    time: f32,
    delta_time: f32,
};

struct TrailParams {
    num_particles: u32,
    trail_length: u32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var<storage, read> trails: array<vec4<f32>>;
@group(0) @binding(2) var<uniform> params: TrailParams;

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) alpha: f32,
    @location(1) uv: vec2<f32>,
};

@vertex
fn vs_main(
    @builtin(vertex_index) vertex_index: u32,
    @builtin(instance_index) instance_index: u32,
) -> VertexOutput {
    var out: VertexOutput;

    let particle_idx = instance_index / params.trail_length;
    let trail_idx = instance_index %% params.trail_length;

    let trail_base = particle_idx * params.trail_length;
    let trail_data = trails[trail_base + trail_idx];
    let pos = trail_data.xyz;
    let valid = trail_data.w;

    if valid < 0.5 {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.alpha = 0.0;
        out.uv = vec2<f32>(0.0);
        return out;
    }

    var quad_vertices = array<vec2<f32>, 6>(
        vec2<f32>(-1.0, -1.0),
        vec2<f32>( 1.0, -1.0),
        vec2<f32>(-1.0,  1.0),
        vec2<f32>(-1.0,  1.0),
        vec2<f32>( 1.0, -1.0),
        vec2<f32>( 1.0,  1.0),
    );

    let quad_pos = quad_vertices[vertex_index];

    let trail_progress = f32(trail_idx) / f32(params.trail_length);
    let size_factor = 1.0 - trail_progress * 0.7;
    let alpha_factor = 1.0 - trail_progress;

    let base_size = %g;
    let trail_size = base_size * size_factor * 0.5;

    var clip_pos = uniforms.view_proj * vec4<f32>(pos, 1.0);
    clip_pos.x += quad_pos.x * trail_size * clip_pos.w;
    clip_pos.y += quad_pos.y * trail_size * clip_pos.w;

    out.clip_position = clip_pos;
    out.alpha = alpha_factor * 0.5;
    out.uv = quad_pos;

    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let dist = length(in.uv);
    if dist > 1.0 {
        discard;
    }
    let circle_alpha = 1.0 - smoothstep(0.3, 1.0, dist);
    let color = vec3<f32>(0.7, 0.8, 1.0);
    return vec4<f32>(color, circle_alpha * in.alpha);
}
`, particleSize)
}

// gridOverlayWGSL draws the spatial grid's pre-generated line
// segments as thin quads at a uniform-controlled opacity.
const gridOverlayWGSL = `
struct Uniforms {
    view_proj: mat4x4<f32>,
    time: f32,
    delta_time: f32,
};

struct GridParams {
    opacity: f32,
    _pad0: f32,
    _pad1: f32,
    _pad2: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var<storage, read> lines: array<vec4<f32>>;
@group(0) @binding(2) var<uniform> grid_params: GridParams;

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
};

@vertex
fn vs_main(
    @builtin(vertex_index) vertex_index: u32,
    @builtin(instance_index) instance_index: u32,
) -> VertexOutput {
    var out: VertexOutput;

    let pos_a = lines[instance_index * 2u].xyz;
    let pos_b = lines[instance_index * 2u + 1u].xyz;

    let line_dir = pos_b - pos_a;
    let line_len = length(line_dir);

    if line_len < 0.0001 {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        return out;
    }

    let dir = line_dir / line_len;

    var perp = cross(dir, vec3<f32>(0.0, 1.0, 0.0));
    if length(perp) < 0.001 {
        perp = cross(dir, vec3<f32>(1.0, 0.0, 0.0));
    }
    perp = normalize(perp) * 0.001;

    var pos: vec3<f32>;
    switch vertex_index {
        case 0u: { pos = pos_a - perp; }
        case 1u: { pos = pos_a + perp; }
        case 2u: { pos = pos_b - perp; }
        case 3u: { pos = pos_a + perp; }
        case 4u: { pos = pos_b - perp; }
        default: { pos = pos_b + perp; }
    }

    out.clip_position = uniforms.view_proj * vec4<f32>(pos, 1.0);
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(0.4, 0.6, 0.8, grid_params.opacity);
}
`

// volumeRenderWGSL raymarches a field's read buffer through its
// bounding cube with front-to-back compositing; the params block is
// re-uploaded every frame so camera motion applies even while the
// simulation is paused.
const volumeRenderWGSL = `
struct VolumeParams {
    inv_view_proj: mat4x4<f32>,
    camera_pos: vec3<f32>,
    steps: u32,
    field_extent: f32,
    field_resolution: u32,
    density_scale: f32,
    threshold: f32,
    palette: array<vec4<f32>, 5>,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@group(0) @binding(0)
var<uniform> params: VolumeParams;

@group(0) @binding(1)
var<storage, read> field: array<f32>;

@vertex
fn vs_main(@builtin(vertex_index) vertex_index: u32) -> VertexOutput {
    var positions = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -1.0),
        vec2<f32>(3.0, -1.0),
        vec2<f32>(-1.0, 3.0),
    );
    var uvs = array<vec2<f32>, 3>(
        vec2<f32>(0.0, 1.0),
        vec2<f32>(2.0, 1.0),
        vec2<f32>(0.0, -1.0),
    );

    var out: VertexOutput;
    out.clip_position = vec4<f32>(positions[vertex_index], 0.0, 1.0);
    out.uv = uvs[vertex_index];
    return out;
}

fn sample_field(pos: vec3<f32>) -> f32 {
    let extent = params.field_extent;
    let res = params.field_resolution;

    if (pos.x < -extent || pos.x > extent ||
        pos.y < -extent || pos.y > extent ||
        pos.z < -extent || pos.z > extent) {
        return 0.0;
    }

    let normalized = (pos + vec3<f32>(extent)) / (2.0 * extent);
    let grid_pos = clamp(normalized, vec3<f32>(0.0), vec3<f32>(0.999)) * f32(res);

    let cell = vec3<u32>(floor(grid_pos));
    let frac = fract(grid_pos);

    let idx000 = cell.x + cell.y * res + cell.z * res * res;
    let idx100 = min(cell.x + 1u, res - 1u) + cell.y * res + cell.z * res * res;
    let idx010 = cell.x + min(cell.y + 1u, res - 1u) * res + cell.z * res * res;
    let idx110 = min(cell.x + 1u, res - 1u) + min(cell.y + 1u, res - 1u) * res + cell.z * res * res;
    let idx001 = cell.x + cell.y * res + min(cell.z + 1u, res - 1u) * res * res;
    let idx101 = min(cell.x + 1u, res - 1u) + cell.y * res + min(cell.z + 1u, res - 1u) * res * res;
    let idx011 = cell.x + min(cell.y + 1u, res - 1u) * res + min(cell.z + 1u, res - 1u) * res * res;
    let idx111 = min(cell.x + 1u, res - 1u) + min(cell.y + 1u, res - 1u) * res + min(cell.z + 1u, res - 1u) * res * res;

    let v00 = mix(field[idx000], field[idx100], frac.x);
    let v10 = mix(field[idx010], field[idx110], frac.x);
    let v01 = mix(field[idx001], field[idx101], frac.x);
    let v11 = mix(field[idx011], field[idx111], frac.x);
    let v0 = mix(v00, v10, frac.y);
    let v1 = mix(v01, v11, frac.y);

    return mix(v0, v1, frac.z);
}

fn sample_volume_palette(t: f32) -> vec3<f32> {
    let tc = clamp(t, 0.0, 1.0);
    let scaled = tc * 4.0;
    let idx = u32(floor(scaled));
    let frac = fract(scaled);

    let c0 = params.palette[min(idx, 4u)].rgb;
    let c1 = params.palette[min(idx + 1u, 4u)].rgb;

    return mix(c0, c1, frac);
}

fn intersect_box(ray_origin: vec3<f32>, ray_dir: vec3<f32>, box_min: vec3<f32>, box_max: vec3<f32>) -> vec2<f32> {
    let inv_dir = 1.0 / ray_dir;
    let t1 = (box_min - ray_origin) * inv_dir;
    let t2 = (box_max - ray_origin) * inv_dir;
    let tmin = min(t1, t2);
    let tmax = max(t1, t2);
    let t_enter = max(max(tmin.x, tmin.y), tmin.z);
    let t_exit = min(min(tmax.x, tmax.y), tmax.z);
    return vec2<f32>(max(t_enter, 0.0), t_exit);
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let ndc = vec4<f32>(in.uv.x * 2.0 - 1.0, (1.0 - in.uv.y) * 2.0 - 1.0, 1.0, 1.0);
    let world_pos = params.inv_view_proj * ndc;
    let ray_target = world_pos.xyz / world_pos.w;
    let ray_origin = params.camera_pos;
    let ray_dir = normalize(ray_target - ray_origin);

    let extent = params.field_extent;
    let t_range = intersect_box(ray_origin, ray_dir, vec3<f32>(-extent), vec3<f32>(extent));

    if (t_range.x > t_range.y) {
        return vec4<f32>(0.0);
    }

    let step_size = (t_range.y - t_range.x) / f32(params.steps);

    var accumulated_color = vec3<f32>(0.0);
    var accumulated_alpha = 0.0;
    var t = t_range.x;

    for (var i = 0u; i < params.steps; i++) {
        if (accumulated_alpha >= 0.99) {
            break;
        }

        let pos = ray_origin + ray_dir * t;
        let density = sample_field(pos);

        if (density > params.threshold) {
            let normalized_density = clamp(density * params.density_scale, 0.0, 1.0);
            let color = sample_volume_palette(normalized_density);

            let sample_alpha = normalized_density * (1.0 - accumulated_alpha) * 0.5;
            accumulated_color += color * sample_alpha;
            accumulated_alpha += sample_alpha;
        }

        t += step_size;
    }

    return vec4<f32>(accumulated_color, accumulated_alpha);
}
`

// buildWireframeShader renders a line mesh instanced per particle
// instead of a billboard. The particle buffer is bound as a raw u32
// array and fields are read by bitcast at the layout's byte offsets,
// so one shader serves every schema.
func buildWireframeShader(cfg Config) string {
	layout := cfg.Layout
	strideU32 := layout.Stride / 4
	aliveIdx := layout.AliveOff / 4
	scaleIdx := layout.ScaleOff / 4

	var colorCode string
	if layout.HasColor {
		colorIdx := layout.ColorOff / 4
		colorCode = fmt.Sprintf(`
    let color = vec3<f32>(
        bitcast<f32>(particle_data[base + %du]),
        bitcast<f32>(particle_data[base + %du]),
        bitcast<f32>(particle_data[base + %du])
    );`, colorIdx, colorIdx+1, colorIdx+2)
	} else {
		colorCode = `
    let color = normalize(particle_pos) * 0.5 + 0.5;`
	}

	return fmt.Sprintf(`struct Uniforms {
    view_proj: mat4x4<f32>,
    time: f32,
    delta_time: f32,
};

struct WireframeParams {
    line_thickness: f32,
    lines_per_mesh: u32,
    base_size: f32,
    _pad: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var<storage, read> particle_data: array<u32>;
@group(0) @binding(2) var<storage, read> mesh_lines: array<f32>;
@group(0) @binding(3) var<uniform> params: WireframeParams;

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) color: vec3<f32>,
};

const PARTICLE_STRIDE: u32 = %du;

@vertex
fn vs_main(
    @builtin(vertex_index) vertex_index: u32,
    @builtin(instance_index) instance_index: u32,
) -> VertexOutput {
    var out: VertexOutput;

    let particle_idx = instance_index / params.lines_per_mesh;
    let line_idx = instance_index %% params.lines_per_mesh;

    let base = particle_idx * PARTICLE_STRIDE;

    let alive = particle_data[base + %du];
    if alive == 0u {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.color = vec3<f32>(0.0);
        return out;
    }

    let particle_pos = vec3<f32>(
        bitcast<f32>(particle_data[base]),
        bitcast<f32>(particle_data[base + 1u]),
        bitcast<f32>(particle_data[base + 2u])
    );

    let scale = bitcast<f32>(particle_data[base + %du]);
%s

    let line_base = line_idx * 6u;
    let local_a = vec3<f32>(
        mesh_lines[line_base],
        mesh_lines[line_base + 1u],
        mesh_lines[line_base + 2u]
    );
    let local_b = vec3<f32>(
        mesh_lines[line_base + 3u],
        mesh_lines[line_base + 4u],
        mesh_lines[line_base + 5u]
    );

    let mesh_scale = params.base_size * scale;
    let world_a = particle_pos + local_a * mesh_scale;
    let world_b = particle_pos + local_b * mesh_scale;

    let line_dir = world_b - world_a;
    let line_len = length(line_dir);

    if line_len < 0.0001 {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.color = vec3<f32>(0.0);
        return out;
    }

    let dir = line_dir / line_len;

    var perp = cross(dir, vec3<f32>(0.0, 1.0, 0.0));
    if length(perp) < 0.001 {
        perp = cross(dir, vec3<f32>(1.0, 0.0, 0.0));
    }
    perp = normalize(perp) * params.line_thickness;

    let perp2 = normalize(cross(dir, perp)) * params.line_thickness;

    var pos: vec3<f32>;
    switch vertex_index {
        case 0u: { pos = world_a - perp - perp2; }
        case 1u: { pos = world_a + perp + perp2; }
        case 2u: { pos = world_b - perp - perp2; }
        case 3u: { pos = world_a + perp + perp2; }
        case 4u: { pos = world_b - perp - perp2; }
        default: { pos = world_b + perp + perp2; }
    }

    out.clip_position = uniforms.view_proj * vec4<f32>(pos, 1.0);
    out.color = color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.color, 1.0);
}
`, strideU32, aliveIdx, scaleIdx, colorCode)
}

// buildPostProcessShader wraps a user fragment body in the fullscreen
// pass skeleton. The body may reference in.uv, scene/scene_sampler,
// uniforms.time, and uniforms.resolution, and must return vec4<f32>.
func buildPostProcessShader(body string) string {
	var b strings.Builder
	b.WriteString(`struct PostUniforms {
    time: f32,
    _pad: f32,
    resolution: vec2<f32>,
};

@group(0) @binding(0) var scene: texture_2d<f32>;
@group(0) @binding(1) var scene_sampler: sampler;
@group(0) @binding(2) var<uniform> uniforms: PostUniforms;

`)
	b.WriteString(shaders.FullscreenWGSL)
	b.WriteString(`
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
`)
	b.WriteString(body)
	b.WriteString("\n}\n")
	return b.String()
}

// buildAuxiliaryShaders fills out's auxiliary sources from the visual
// config; each is emitted only when its feature is enabled so the
// orchestrator can key pipeline creation off source presence.
func buildAuxiliaryShaders(cfg Config, out *Output) {
	v := cfg.Visuals
	if v == nil {
		v = visuals.NewConfig()
	}

	if v.ConnectionsEnabled {
		out.ConnectionCompute = buildConnectionComputeShader(cfg)
		out.ConnectionRender = connectionRenderWGSL
	}
	if v.TrailLength > 0 {
		out.TrailCompute = buildTrailComputeShader(cfg)
		out.TrailRender = buildTrailRenderShader(cfg)
	}
	if v.SpatialGridOpacity > 0 {
		out.GridOverlay = gridOverlayWGSL
	}
	if v.Volume != nil {
		out.VolumeRender = volumeRenderWGSL
	}
	if v.Wireframe != nil {
		out.Wireframe = buildWireframeShader(cfg)
	}
	if v.PostProcessShader != "" {
		out.PostProcess = buildPostProcessShader(v.PostProcessShader)
	}
}
