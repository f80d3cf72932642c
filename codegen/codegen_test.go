package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"particleforge/emitters"
	"particleforge/fields"
	"particleforge/rules"
	"particleforge/schema"
	"particleforge/spatial"
)

func minimalConfig(t *testing.T) Config {
	t.Helper()
	layout, err := schema.BuildLayout(nil)
	require.NoError(t, err)
	return Config{
		Layout:       layout,
		Bounds:       1,
		ParticleSize: 0.05,
		Spatial:      spatial.DefaultConfig(),
	}
}

func TestBuildMinimalConfigProducesValidShaders(t *testing.T) {
	out, err := Build(minimalConfig(t))
	require.NoError(t, err)
	require.NoError(t, Validate(out.Compute))
	require.NoError(t, Validate(out.Render))
	require.Contains(t, out.Compute, "@compute @workgroup_size(256)")
	require.Contains(t, out.Compute, "p.position += p.velocity * uniforms.delta_time;")
	require.Empty(t, out.ComputeMorton, "no neighbor rules => no spatial index shaders")
}

func TestBuildIsDeterministic(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Rules = []rules.Rule{{Kind: rules.Gravity, F1: 9.8}}
	cfg.Emitters = []emitters.Emitter{{Kind: emitters.Point, Rate: 10}}

	a, err := Build(cfg)
	require.NoError(t, err)
	b, err := Build(cfg)
	require.NoError(t, err)

	require.Equal(t, a.Compute, b.Compute)
	require.Equal(t, a.Render, b.Render)
}

func TestNeighborRuleEnablesSpatialShaders(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Rules = []rules.Rule{{Kind: rules.Separate, F1: 0.1, F2: 1.0}}

	out, err := Build(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.ComputeMorton)
	require.Contains(t, out.Compute, "sorted_indices")
	require.Contains(t, out.Compute, "cell_start")
	require.Contains(t, out.Compute, "// Separation")
}

func TestFieldsRegistryWiresBindGroup2(t *testing.T) {
	cfg := minimalConfig(t)
	reg := fields.NewRegistry()
	_, err := reg.Add(fields.Config{Name: "heat", Resolution: 16, WorldExtent: 1, Decay: 0.9, Blur: 0.2, BlurIterations: 1})
	require.NoError(t, err)
	cfg.Fields = reg

	out, err := Build(cfg)
	require.NoError(t, err)
	require.Contains(t, out.Compute, "field_0_write")
	require.Contains(t, out.Compute, "field_0_read")
	require.NotEmpty(t, out.FieldMerge)
	require.NotEmpty(t, out.FieldBlurDecay)
	require.NotEmpty(t, out.FieldClear)
}

func TestEmitterOrderIsPreservedInCompute(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Emitters = []emitters.Emitter{
		{Kind: emitters.Point, Rate: 5},
		{Kind: emitters.Burst, Count: 10, Speed: 1},
	}
	out, err := Build(cfg)
	require.NoError(t, err)
	firstIdx := strings.Index(out.Compute, "Point emitter 0")
	secondIdx := strings.Index(out.Compute, "Burst emitter 1")
	require.Greater(t, firstIdx, 0)
	require.Greater(t, secondIdx, firstIdx)
}

func TestValidateRejectsUnbalancedSource(t *testing.T) {
	require.Error(t, Validate("@compute fn main() { let x = 1;"))
	require.Error(t, Validate(""))
	require.Error(t, Validate("struct Foo { x: f32 };"))
}

func TestMissingLayoutIsConfigError(t *testing.T) {
	_, err := Build(Config{})
	require.Error(t, err)
}
