package codegen

import (
	"fmt"
	"strings"

	"particleforge/rules"
	"particleforge/shaders"
	"particleforge/spatial"
	"particleforge/subemitter"
)

// buildComputeShader assembles the per-frame particle update kernel in
// a fixed section order: preamble, bind groups 0-3, built-in
// utilities, custom functions, then the entry point.
func buildComputeShader(cfg Config) string {
	neighbors := cfg.RequiresNeighbors()

	var b strings.Builder

	writePreamble(&b, cfg, neighbors)
	writeBindGroup0(&b, cfg, neighbors)
	// Bind group 1 (textures) is reserved for the render/fragment stage;
	// the compute kernel never samples textures, so it declares nothing.
	if cfg.Fields != nil && cfg.Fields.Len() > 0 {
		b.WriteString(cfg.Fields.ToWGSLDeclarations(0))
		b.WriteString("\n")
	}
	if len(cfg.SubEmitters) > 0 {
		b.WriteString(subemitter.DeathEventWGSL)
		b.WriteString(subemitter.DeathBufferBindingsWGSL)
		b.WriteString("\n")
	}

	b.WriteString(shaders.BuiltinUtilsWGSL())
	b.WriteString("\n")

	if neighbors {
		b.WriteString(spatial.NeighborUtilsWGSL)
		b.WriteString("\n")
	}

	for _, fn := range cfg.CustomFunctions {
		b.WriteString(fn)
		b.WriteString("\n\n")
	}

	b.WriteString(buildMainEntry(cfg, neighbors))

	return b.String()
}

func writePreamble(b *strings.Builder, cfg Config, neighbors bool) {
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
		b.WriteString("    mouse_params: vec4<f32>,\n") // (down, radius, strength, pad)
		b.WriteString("    mouse_color: vec4<f32>,\n")
	}
	if cfg.Uniforms != nil && cfg.Uniforms.Len() > 0 {
		b.WriteString(cfg.Uniforms.ToWGSLFields())
		b.WriteString("\n")
	}
	b.WriteString("};\n\n")

	if neighbors {
		b.WriteString(`struct SpatialParams {
    cell_size: f32,
    grid_resolution: u32,
    num_particles_hint: u32,
    _pad: u32,
};

`)
		b.WriteString(spatial.MortonWGSL)
		b.WriteString("\n")
	}
}

func writeBindGroup0(b *strings.Builder, cfg Config, neighbors bool) {
	b.WriteString("@group(0) @binding(0)\nvar<storage, read_write> particles: array<Particle>;\n\n")
	b.WriteString("@group(0) @binding(1)\nvar<uniform> uniforms: Uniforms;\n\n")
	if neighbors {
		b.WriteString(`@group(0) @binding(2)
var<storage, read> sorted_indices: array<u32>;

@group(0) @binding(3)
var<storage, read> cell_start: array<u32>;

@group(0) @binding(4)
var<storage, read> cell_end: array<u32>;

@group(0) @binding(5)
var<uniform> spatial_params: SpatialParams;

`)
	}
}

// buildMainEntry generates the `main` entry point skeleton: emitters,
// neighbor loop, simple rules, death recording, then integration.
func buildMainEntry(cfg Config, neighbors bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "@compute @workgroup_size(256)\n")
	b.WriteString("fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {\n")
	b.WriteString("    let index = global_id.x;\n")
	b.WriteString("    let num_particles = arrayLength(&particles);\n")
	b.WriteString("    if index >= num_particles {\n        return;\n    }\n\n")
	b.WriteString("    var p = particles[index];\n")
	b.WriteString("    let was_alive = p.alive;\n\n")

	if blocks := emitterBlocks(cfg); blocks != "" {
		b.WriteString("    // Emitters\n")
		b.WriteString(blocks)
		b.WriteString("\n\n")
	}

	b.WriteString("    if p.alive == 0u {\n        particles[index] = p;\n        return;\n    }\n\n")

	if neighbors {
		b.WriteString(neighborSection(cfg))
	}

	if simple := rules.JoinNonEmpty(simpleRuleBlocks(cfg)); simple != "" {
		b.WriteString("    // Simple rules\n")
		b.WriteString(simple)
		b.WriteString("\n\n")
	}

	if len(cfg.SubEmitters) > 0 {
		b.WriteString(subemitter.DeathRecordingWGSL(cfg.SubEmitters))
		b.WriteString("\n")
	}

	b.WriteString("    // Integration\n")
	b.WriteString("    p.position += p.velocity * uniforms.delta_time;\n\n")
	b.WriteString("    particles[index] = p;\n")
	b.WriteString("}\n")

	return b.String()
}

func emitterBlocks(cfg Config) string {
	blocks := make([]string, 0, len(cfg.Emitters))
	for i, e := range cfg.Emitters {
		blocks = append(blocks, e.ToWGSL(i))
	}
	return rules.JoinNonEmpty(blocks)
}

func simpleRuleBlocks(cfg Config) []string {
	blocks := make([]string, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		blocks = append(blocks, r.ToWGSL(cfg.Bounds))
	}
	return blocks
}

// neighborSection emits the accumulator declarations, the 27-cell
// neighbor loop, and the post-neighbor averaging/steering block.
func neighborSection(cfg Config) string {
	var b strings.Builder

	b.WriteString("    // Neighbor accumulators\n")
	if rules.NeedsCohesionAccumulator(cfg.Rules) {
		b.WriteString("    var cohesion_sum = vec3<f32>(0.0);\n    var cohesion_count = 0.0;\n")
	}
	if rules.NeedsAlignmentAccumulator(cfg.Rules) {
		b.WriteString("    var alignment_sum = vec3<f32>(0.0);\n    var alignment_count = 0.0;\n")
	}
	if rules.NeedsChaseAccumulator(cfg.Rules) {
		b.WriteString("    var chase_nearest_dist = 1.0e9;\n    var chase_nearest_pos = vec3<f32>(0.0);\n")
	}
	if rules.NeedsEvadeAccumulator(cfg.Rules) {
		b.WriteString("    var evade_nearest_dist = 1.0e9;\n    var evade_nearest_pos = vec3<f32>(0.0);\n")
	}

	if cfg.Interactions != nil && cfg.Interactions.NumTypes() > 0 {
		b.WriteString(cfg.Interactions.ToWGSLInit())
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf(`
    let my_cell = pos_to_cell(p.position, %g, %du);

    for (var offset_idx = 0u; offset_idx < 27u; offset_idx++) {
        let neighbor_morton = neighbor_cell_morton(my_cell, offset_idx, %du);
        if neighbor_morton == 0xFFFFFFFFu {
            continue;
        }

        let start = cell_start[neighbor_morton];
        let end = cell_end[neighbor_morton];
        if start == 0xFFFFFFFFu {
            continue;
        }

        for (var k = start; k < end; k++) {
            let other_idx = sorted_indices[k];
            if other_idx == index {
                continue;
            }

            let other = particles[other_idx];
            if other.alive == 0u {
                continue;
            }

            let neighbor_pos = other.position;
            let neighbor_vel = other.velocity;
            let neighbor_delta = neighbor_pos - p.position;
            let neighbor_dist = length(neighbor_delta);
            var neighbor_dir = vec3<f32>(0.0);
            if neighbor_dist > 0.0001 {
                neighbor_dir = neighbor_delta / neighbor_dist;
            }

`, cfg.Spatial.CellSize, cfg.Spatial.GridResolution, cfg.Spatial.GridResolution))

	for _, r := range cfg.Rules {
		if block := r.ToNeighborWGSL(); block != "" {
			b.WriteString(block)
			b.WriteString("\n")
		}
	}
	if cfg.Interactions != nil && cfg.Interactions.NumTypes() > 0 {
		b.WriteString(cfg.Interactions.ToWGSLNeighbor())
		b.WriteString("\n")
	}

	b.WriteString("        }\n    }\n\n")

	var post []string
	for _, r := range cfg.Rules {
		if block := r.ToPostNeighborWGSL(); block != "" {
			post = append(post, block)
		}
	}
	if cfg.Interactions != nil && cfg.Interactions.NumTypes() > 0 {
		post = append(post, cfg.Interactions.ToWGSLPost())
	}
	if joined := rules.JoinNonEmpty(post); joined != "" {
		b.WriteString("    // Post-neighbor application\n")
		b.WriteString(joined)
		b.WriteString("\n\n")
	}

	return b.String()
}
