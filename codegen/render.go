package codegen

import (
	"fmt"
	"strings"

	"particleforge/visuals"
)

// buildRenderShader assembles the vertex+fragment render pipeline
// source for billboarded particle drawing.
func buildRenderShader(cfg Config) string {
	var b strings.Builder

	b.WriteString(cfg.Layout.WGSLStruct())
	b.WriteString("\n")

	b.WriteString("struct Uniforms {\n")
	b.WriteString("    view_proj: mat4x4<f32>,\n")
	b.WriteString("    time: f32,\n")
	b.WriteString("    delta_time: f32,\n")
	b.WriteString("    _pad0: vec2<f32>,\n")
	if cfg.MouseUniforms {
		b.WriteString("    mouse_ray_origin: vec4<f32>,\n")
		b.WriteString("    mouse_ray_dir: vec4<f32>,\n")
		b.WriteString("    mouse_params: vec4<f32>,\n")
		b.WriteString("    mouse_color: vec4<f32>,\n")
	}
	if cfg.Uniforms != nil && cfg.Uniforms.Len() > 0 {
		b.WriteString(cfg.Uniforms.ToWGSLFields())
		b.WriteString("\n")
	}
	b.WriteString("};\n\n")

	b.WriteString("@group(0) @binding(0)\nvar<storage, read> particles: array<Particle>;\n\n")
	b.WriteString("@group(0) @binding(1)\nvar<uniform> uniforms: Uniforms;\n\n")

	if cfg.Textures != nil && cfg.Textures.Len() > 0 {
		b.WriteString(cfg.Textures.ToWGSLDeclarations(0))
		b.WriteString("\n")
	}

	particleSize := cfg.ParticleSize
	if particleSize <= 0 {
		particleSize = 1.0
	}

	b.WriteString(`struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec3<f32>,
    @location(2) @interpolate(flat) particle_id: u32,
};

const QUAD_UV: array<vec2<f32>, 6> = array<vec2<f32>, 6>(
    vec2<f32>(-1.0, -1.0), vec2<f32>(1.0, -1.0), vec2<f32>(-1.0, 1.0),
    vec2<f32>(-1.0, 1.0), vec2<f32>(1.0, -1.0), vec2<f32>(1.0, 1.0),
);

`)

	visualCfg := cfg.Visuals
	if visualCfg == nil {
		visualCfg = visuals.NewConfig()
	}

	if visualCfg.Palette != visuals.PaletteNone {
		b.WriteString(paletteWGSL(visualCfg))
	}

	fmt.Fprintf(&b, `@vertex
fn vs_main(
    @builtin(vertex_index) vertex_index: u32,
    @builtin(instance_index) instance_index: u32
) -> VertexOutput {
    var out: VertexOutput;
    let p = particles[instance_index];

    if p.alive == 0u {
        out.clip_position = vec4<f32>(0.0, 0.0, -1000.0, 1.0);
        out.uv = vec2<f32>(0.0);
        out.color = vec3<f32>(0.0);
        out.particle_id = 0u;
        return out;
    }

    out.particle_id = instance_index;

    let uv = QUAD_UV[vertex_index %% 6u];
    out.uv = uv;

    let center_clip = uniforms.view_proj * vec4<f32>(p.position, 1.0);
    let size = %g * p.scale;
%s
`, particleSize, billboardOffsetWGSL(visualCfg))

	if visualCfg.Palette != visuals.PaletteNone {
		b.WriteString(colorMappingWGSL(visualCfg.ColorMapping))
	} else if cfg.Layout.HasColor {
		b.WriteString("    out.color = p.color;\n")
	} else {
		b.WriteString("    out.color = vec3<f32>(1.0, 1.0, 1.0);\n")
	}

	b.WriteString("    return out;\n}\n\n")

	b.WriteString(`@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
`)
	if cfg.CustomFragmentBody != "" {
		b.WriteString(cfg.CustomFragmentBody)
	} else {
		b.WriteString(visualCfg.Shape.ToWGSLFragment())
	}
	b.WriteString("\n}\n\n")

	// fs_picking shares vs_main's clip position and UV but writes the
	// instance index plus one instead of a color; the orchestrator
	// renders this entry point into an R32Uint offscreen target cleared
	// to zero, so a read-back value of zero means "miss" and any other
	// value decodes as particle index v-1. Hard-circle coverage keeps
	// the pickable area consistent regardless of the display shape.
	b.WriteString(`@fragment
fn fs_picking(in: VertexOutput) -> @location(0) u32 {
    if length(in.uv) > 1.0 {
        discard;
    }
    return in.particle_id + 1u;
}
`)

	return b.String()
}

// billboardOffsetWGSL emits the quad-offset expression: a plain
// screen-aligned quad, or, with velocity stretch enabled, a quad
// rotated into and elongated along the particle's screen-space
// velocity so fast particles smear into streaks.
func billboardOffsetWGSL(v *visuals.Config) string {
	if !v.VelocityStretch {
		return `    out.clip_position = vec4<f32>(
        center_clip.xy + uv * size * center_clip.w,
        center_clip.zw
    );
`
	}
	return fmt.Sprintf(`    let vel_clip = uniforms.view_proj * vec4<f32>(p.velocity, 0.0);
    let vel_screen = vel_clip.xy;
    let vel_speed = length(vel_screen);
    var offset = uv;
    if vel_speed > 0.0001 {
        let dir = vel_screen / vel_speed;
        let perp = vec2<f32>(-dir.y, dir.x);
        let stretch = 1.0 + min(vel_speed * %g, %g);
        offset = dir * (uv.x * stretch) + perp * uv.y;
    }
    out.clip_position = vec4<f32>(
        center_clip.xy + offset * size * center_clip.w,
        center_clip.zw
    );
`, v.VelocityStretchFactor, v.VelocityStretchFactor)
}

// paletteWGSL emits the 5-stop gradient as a compile-time array and
// the sampling function every color-mapping expression calls.
func paletteWGSL(cfg *visuals.Config) string {
	stops := cfg.Palette.Colors()
	entries := make([]string, len(stops))
	for i, c := range stops {
		entries[i] = fmt.Sprintf("vec3<f32>(%g, %g, %g)", c.X(), c.Y(), c.Z())
	}
	return fmt.Sprintf(`const PALETTE: array<vec3<f32>, 5> = array<vec3<f32>, 5>(
    %s
);

fn sample_palette(t: f32) -> vec3<f32> {
    let clamped = clamp(t, 0.0, 1.0) * 4.0;
    let i0 = u32(floor(clamped));
    let i1 = min(i0 + 1u, 4u);
    let frac = clamped - floor(clamped);
    return mix(PALETTE[i0], PALETTE[i1], frac);
}

fn hash_u32(n: u32) -> u32 {
    var x = n;
    x = x ^ (x >> 17u);
    x = x * 0xed5ad4bbu;
    x = x ^ (x >> 11u);
    return x;
}

`, strings.Join(entries, ",\n    "))
}

// colorMappingWGSL emits the `out.color = ...` assignment for a
// palette-driven mapping. Speed and age mappings read directly off the
// particle record since the render shader sources particles as a
// storage buffer with the full layout always available.
func colorMappingWGSL(m visuals.ColorMapping) string {
	switch m.Kind {
	case visuals.MapSpeed:
		lo, hi := m.Min, m.Max
		if hi <= lo {
			hi = lo + 1
		}
		return fmt.Sprintf("    let speed_t = clamp((length(p.velocity) - %g) / %g, 0.0, 1.0);\n    out.color = sample_palette(speed_t);\n", lo, hi-lo)
	case visuals.MapAge:
		maxAge := m.MaxAge
		if maxAge <= 0 {
			maxAge = 1
		}
		return fmt.Sprintf("    let age_t = clamp(p.age / %g, 0.0, 1.0);\n    out.color = sample_palette(age_t);\n", maxAge)
	case visuals.MapPositionY:
		lo, hi := m.Min, m.Max
		if hi <= lo {
			hi = lo + 1
		}
		return fmt.Sprintf("    let y_t = clamp((p.position.y - %g) / %g, 0.0, 1.0);\n    out.color = sample_palette(y_t);\n", lo, hi-lo)
	case visuals.MapDistance:
		maxDist := m.MaxDist
		if maxDist <= 0 {
			maxDist = 1
		}
		return fmt.Sprintf("    let dist_t = clamp(length(p.position) / %g, 0.0, 1.0);\n    out.color = sample_palette(dist_t);\n", maxDist)
	case visuals.MapRandom:
		return "    let rand_t = f32(hash_u32(instance_index) & 0xFFFFu) / 65535.0;\n    out.color = sample_palette(rand_t);\n"
	default: // MapIndex, MapNone
		return "    let index_t = f32(instance_index) / f32(max(arrayLength(&particles), 1u));\n    out.color = sample_palette(index_t);\n"
	}
}
