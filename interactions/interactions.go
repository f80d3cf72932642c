// Package interactions implements the type-based particle force matrix
// ("particle life" attraction/repulsion) and its WGSL codegen.
package interactions

import (
	"fmt"
	"strings"
)

// Cell is one (strength, radius) entry. strength>0 attracts, <0
// repels, 0 ignores; radius is the interaction range.
type Cell struct {
	Strength float32
	Radius   float32
}

// Matrix is the flattened num_types x num_types force table.
type Matrix struct {
	cells     []Cell
	numTypes  int
	maxRadius float32
}

// New creates a matrix for numTypes particle types, all cells ignored.
func New(numTypes int) *Matrix {
	return &Matrix{cells: make([]Cell, numTypes*numTypes), numTypes: numTypes}
}

// Set assigns the interaction when selfType encounters otherType.
func (m *Matrix) Set(selfType, otherType int, strength, radius float32) {
	if selfType < 0 || otherType < 0 || selfType >= m.numTypes || otherType >= m.numTypes {
		return
	}
	m.cells[selfType*m.numTypes+otherType] = Cell{strength, radius}
	if radius > m.maxRadius {
		m.maxRadius = radius
	}
}

// Attract sets an absolute-valued attraction.
func (m *Matrix) Attract(selfType, otherType int, strength, radius float32) {
	if strength < 0 {
		strength = -strength
	}
	m.Set(selfType, otherType, strength, radius)
}

// Repel sets an absolute-valued repulsion.
func (m *Matrix) Repel(selfType, otherType int, strength, radius float32) {
	if strength < 0 {
		strength = -strength
	}
	m.Set(selfType, otherType, -strength, radius)
}

// SetSymmetric sets the same interaction in both directions.
func (m *Matrix) SetSymmetric(typeA, typeB int, strength, radius float32) {
	m.Set(typeA, typeB, strength, radius)
	m.Set(typeB, typeA, strength, radius)
}

// NumTypes returns the configured particle-type count.
func (m *Matrix) NumTypes() int { return m.numTypes }

// MaxRadius returns the largest radius across all cells, for sizing
// the spatial grid's cell size.
func (m *Matrix) MaxRadius() float32 { return m.maxRadius }

// Data exposes the flattened cells for GPU upload or testing.
func (m *Matrix) Data() []Cell { return m.cells }

// ToWGSLInit emits the compile-time lookup table and locals declared
// before the neighbor loop.
func (m *Matrix) ToWGSLInit() string {
	entries := make([]string, 0, len(m.cells))
	for _, c := range m.cells {
		entries = append(entries, fmt.Sprintf("vec2<f32>(%g, %g)", c.Strength, c.Radius))
	}
	tableStr := strings.Join(entries, ", ")
	total := m.numTypes * m.numTypes
	return fmt.Sprintf(`    // Interaction matrix lookup table
    let interaction_table = array<vec2<f32>, %d>(
        %s
    );
    let my_type = p.particle_type;
    var interaction_force = vec3<f32>(0.0);
    let interaction_num_types = %du;`, total, tableStr, m.numTypes)
}

// ToWGSLNeighbor emits the per-neighbor force accumulation block run
// inside the 27-cell neighbor loop.
func (m *Matrix) ToWGSLNeighbor() string {
	return `            // Interaction matrix force
            let other_type = other.particle_type;
            let lookup_idx = my_type * interaction_num_types + other_type;
            let interaction = interaction_table[lookup_idx];
            let int_strength = interaction.x;
            let int_radius = interaction.y;

            if int_radius > 0.0 && neighbor_dist < int_radius && neighbor_dist > 0.001 {
                let falloff = 1.0 - (neighbor_dist / int_radius);
                let force_mag = int_strength * falloff * falloff;
                interaction_force += neighbor_dir * force_mag;
            }`
}

// ToWGSLPost emits the post-neighbor-loop application of the
// accumulated interaction force.
func (m *Matrix) ToWGSLPost() string {
	return "    // Apply interaction matrix forces\n    p.velocity += interaction_force * uniforms.delta_time;"
}
