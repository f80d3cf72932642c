package particleforge

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"particleforge/codegen"
	"particleforge/emitters"
	"particleforge/fields"
	"particleforge/interactions"
	"particleforge/rules"
	"particleforge/schema"
	"particleforge/spatial"
	"particleforge/subemitter"
	"particleforge/textures"
	"particleforge/uniforms"
	"particleforge/visuals"
)

// SimulationBuilder accumulates declarative configuration, exactly
// the way the staged app builder it is grounded on accumulates
// modules before a single build() call wires everything together.
// There is one construction path: call the With* methods in any
// order, then Build.
type SimulationBuilder struct {
	userFields   []schema.UserField
	rules        []rules.Rule
	emitters     []emitters.Emitter
	fields       *fields.Registry
	interactions *interactions.Matrix
	subEmitters  []subemitter.SubEmitter
	uniforms     *uniforms.CustomUniforms
	textures     *textures.Registry
	visuals      *visuals.Config
	spatial      spatial.Config

	bounds       float32
	particleSize float32
	maxParticles uint32
	mouseUniform bool
	customFns    []string
	customFrag   string

	logger      Logger
	deferredErr error
}

// NewSimulationBuilder starts a builder with the same defaults a
// freshly-constructed app gets: a unit-cube bound, the default spatial
// grid, and a no-op logger until WithLogger overrides it.
func NewSimulationBuilder() *SimulationBuilder {
	return &SimulationBuilder{
		fields:       fields.NewRegistry(),
		uniforms:     uniforms.New(),
		textures:     textures.NewRegistry(),
		visuals:      visuals.NewConfig(),
		spatial:      spatial.DefaultConfig(),
		bounds:       1.0,
		particleSize: 0.05,
		maxParticles: 65536,
		logger:       NewNopLogger(),
	}
}

func (b *SimulationBuilder) WithLogger(l Logger) *SimulationBuilder {
	b.logger = l
	return b
}

func (b *SimulationBuilder) WithMaxParticles(n uint32) *SimulationBuilder {
	b.maxParticles = n
	return b
}

func (b *SimulationBuilder) WithBounds(bounds float32) *SimulationBuilder {
	b.bounds = bounds
	return b
}

func (b *SimulationBuilder) WithParticleSize(size float32) *SimulationBuilder {
	b.particleSize = size
	return b
}

func (b *SimulationBuilder) WithUserField(f schema.UserField) *SimulationBuilder {
	b.userFields = append(b.userFields, f)
	return b
}

func (b *SimulationBuilder) WithRule(r rules.Rule) *SimulationBuilder {
	b.rules = append(b.rules, r)
	return b
}

func (b *SimulationBuilder) WithEmitter(e emitters.Emitter) *SimulationBuilder {
	b.emitters = append(b.emitters, e)
	return b
}

// WithField registers a field; errors (bad resolution, decay,
// duplicate name) surface at Build time rather than here, matching
// the staged-validation style the app builder uses.
func (b *SimulationBuilder) WithField(cfg fields.Config) *SimulationBuilder {
	if _, err := b.fields.Add(cfg); err != nil {
		b.deferredErr = err
	}
	return b
}

func (b *SimulationBuilder) WithInteractions(m *interactions.Matrix) *SimulationBuilder {
	b.interactions = m
	return b
}

func (b *SimulationBuilder) WithSubEmitter(se subemitter.SubEmitter) *SimulationBuilder {
	b.subEmitters = append(b.subEmitters, se)
	return b
}

func (b *SimulationBuilder) WithUniform(name string, v uniforms.Value) *SimulationBuilder {
	b.uniforms.Set(name, v)
	return b
}

func (b *SimulationBuilder) WithTexture(name string, cfg textures.Config) *SimulationBuilder {
	b.textures.Add(name, cfg)
	return b
}

func (b *SimulationBuilder) WithVisuals(cfg *visuals.Config) *SimulationBuilder {
	b.visuals = cfg
	return b
}

func (b *SimulationBuilder) WithSpatial(cfg spatial.Config) *SimulationBuilder {
	b.spatial = cfg
	return b
}

func (b *SimulationBuilder) WithMouseUniforms() *SimulationBuilder {
	b.mouseUniform = true
	return b
}

func (b *SimulationBuilder) WithCustomFunction(wgsl string) *SimulationBuilder {
	b.customFns = append(b.customFns, wgsl)
	return b
}

func (b *SimulationBuilder) WithCustomFragmentBody(wgsl string) *SimulationBuilder {
	b.customFrag = wgsl
	return b
}

// Build finalizes the particle layout, runs codegen, compiles every
// pipeline against device, and returns an immutable Simulation.
// Accumulated field-registry errors from WithField surface here.
func (b *SimulationBuilder) Build(device *wgpu.Device, queue *wgpu.Queue) (*Simulation, error) {
	if b.deferredErr != nil {
		return nil, fmt.Errorf("particleforge: %w", b.deferredErr)
	}

	layout, err := schema.BuildLayout(b.userFields)
	if err != nil {
		return nil, fmt.Errorf("particleforge: build particle layout: %w", err)
	}

	cfg := codegen.Config{
		Layout:             layout,
		Rules:              b.rules,
		Emitters:           b.emitters,
		Fields:             b.fields,
		Interactions:       b.interactions,
		SubEmitters:        b.subEmitters,
		Uniforms:           b.uniforms,
		Textures:           b.textures,
		Visuals:            b.visuals,
		Spatial:            b.spatial,
		Bounds:             b.bounds,
		ParticleSize:       b.particleSize,
		CustomFunctions:    b.customFns,
		MouseUniforms:      b.mouseUniform,
		CustomFragmentBody: b.customFrag,
	}

	sim, err := newSimulation(device, queue, layout, cfg, b.maxParticles, b.logger)
	if err != nil {
		return nil, err
	}
	return sim, nil
}
