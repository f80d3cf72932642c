package codegen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"particleforge/fields"
	"particleforge/visuals"
)

func TestConnectionsEmitAuxShadersAndForceSpatialIndex(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Visuals = visuals.NewConfig().WithConnections(0.2)

	require.True(t, cfg.RequiresNeighbors(), "connection finder walks the cell table")

	out, err := Build(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.ComputeMorton)
	require.NotEmpty(t, out.ConnectionCompute)
	require.NotEmpty(t, out.ConnectionRender)
	require.Contains(t, out.ConnectionCompute, "atomicAdd(&connection_count, 1u)")
	require.Contains(t, out.ConnectionCompute, "if other_idx <= idx")
	require.Contains(t, out.ConnectionRender, "connection_count")
}

func TestTrailShadersScaleWithConfig(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Visuals = visuals.NewConfig().WithTrails(32)

	out, err := Build(cfg)
	require.NoError(t, err)
	require.Contains(t, out.TrailCompute, "trails[trail_base] = vec4<f32>(p.position, f32(p.alive));")
	require.Contains(t, out.TrailRender, "instance_index / params.trail_length")
	require.NoError(t, Validate(out.TrailCompute))
	require.NoError(t, Validate(out.TrailRender))
}

func TestGridOverlayEmittedOnlyWhenVisible(t *testing.T) {
	cfg := minimalConfig(t)
	out, err := Build(cfg)
	require.NoError(t, err)
	require.Empty(t, out.GridOverlay)

	cfg.Visuals = visuals.NewConfig().WithSpatialGrid(0.3)
	out, err = Build(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.GridOverlay)
	require.Contains(t, out.GridOverlay, "grid_params.opacity")
}

func TestVolumeRequiresRegisteredField(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Visuals = visuals.NewConfig().WithVolume(visuals.DefaultVolumeConfig("density"))

	_, err := Build(cfg)
	require.Error(t, err, "volume over a missing field is a configuration error")

	reg := fields.NewRegistry()
	_, err = reg.Add(fields.Config{Name: "density", Resolution: 32, WorldExtent: 1, Decay: 0.95, Blur: 0.1, BlurIterations: 1})
	require.NoError(t, err)
	cfg.Fields = reg

	out, err := Build(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.VolumeRender)
	require.Contains(t, out.VolumeRender, "intersect_box")
	require.NoError(t, Validate(out.VolumeRender))
}

func TestWireframeShaderBakesLayoutOffsets(t *testing.T) {
	cfg := minimalConfig(t)
	mesh := visuals.CubeMesh()
	cfg.Visuals = visuals.NewConfig().WithWireframe(mesh)

	out, err := Build(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.Wireframe)

	require.Contains(t, out.Wireframe, fmt.Sprintf("const PARTICLE_STRIDE: u32 = %du;", cfg.Layout.Stride/4))
	require.NoError(t, Validate(out.Wireframe))
}

func TestPostProcessWrapsUserBody(t *testing.T) {
	cfg := minimalConfig(t)
	body := "    return textureSample(scene, scene_sampler, in.uv);"
	cfg.Visuals = visuals.NewConfig().WithPostProcess(body)

	out, err := Build(cfg)
	require.NoError(t, err)
	require.Contains(t, out.PostProcess, "vs_fullscreen")
	require.Contains(t, out.PostProcess, body)
	require.NoError(t, Validate(out.PostProcess))
}

func TestSpatialClearKernelsEmittedWithIndex(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Visuals = visuals.NewConfig().WithConnections(0.1)

	out, err := Build(cfg)
	require.NoError(t, err)
	require.Contains(t, out.ClearHistogram, "clear_histogram")
	require.Contains(t, out.ClearCellTable, "0xFFFFFFFFu")
	require.Contains(t, out.ComputeMorton, "struct Particle", "morton kernel needs the particle struct in scope")
}
