package particleforge

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"particleforge/camera"
	"particleforge/codegen"
	"particleforge/fields"
	"particleforge/uniforms"
)

func TestWithFieldDefersValidationToBuild(t *testing.T) {
	b := NewSimulationBuilder().
		WithField(fields.Config{Name: "bad", Resolution: 4, WorldExtent: 1})

	_, err := b.Build(nil, nil)
	require.Error(t, err, "resolution below 8 is a configuration error")
}

func TestDuplicateFieldNameFailsBuild(t *testing.T) {
	good := fields.Config{Name: "heat", Resolution: 16, WorldExtent: 1, Decay: 1, BlurIterations: 1}
	b := NewSimulationBuilder().WithField(good).WithField(good)

	_, err := b.Build(nil, nil)
	require.Error(t, err)
}

// newTestSim wires just enough of a Simulation to exercise host-side
// byte packing without a GPU device.
func newTestSim(cfg codegen.Config) *Simulation {
	return &Simulation{
		cfg:    cfg,
		camera: camera.NewOrbitCamera(),
		logger: NewNopLogger(),
	}
}

func TestUniformBytesBaseLayout(t *testing.T) {
	s := newTestSim(codegen.Config{})
	s.time = 2.5

	buf := s.buildUniformBytes(0.016, 1.5, nil)
	require.Equal(t, 0, len(buf)%16, "uniform block must pad to 16")
	require.GreaterOrEqual(t, len(buf), 80, "mat4 + time + dt + pad")

	gotTime := math.Float32frombits(binary.LittleEndian.Uint32(buf[64:68]))
	gotDt := math.Float32frombits(binary.LittleEndian.Uint32(buf[68:72]))
	require.InDelta(t, 2.5, gotTime, 1e-6)
	require.InDelta(t, 0.016, gotDt, 1e-6)
}

func TestUniformBytesMouseBlockFollowsBase(t *testing.T) {
	s := newTestSim(codegen.Config{MouseUniforms: true})

	mouse := &MouseState{
		RayOrigin: mgl32.Vec3{1, 2, 3},
		RayDir:    mgl32.Vec3{0, 0, -1},
		Down:      true,
		Radius:    0.5,
		Strength:  2,
		Color:     mgl32.Vec3{1, 0, 0},
	}
	buf := s.buildUniformBytes(0, 1, mouse)

	// Mouse block starts right after mat4+time+dt+pad (80 bytes).
	origin := buf[80:96]
	require.InDelta(t, 1.0, math.Float32frombits(binary.LittleEndian.Uint32(origin[0:4])), 1e-6)
	require.InDelta(t, 3.0, math.Float32frombits(binary.LittleEndian.Uint32(origin[8:12])), 1e-6)

	params := buf[112:128]
	require.InDelta(t, 1.0, math.Float32frombits(binary.LittleEndian.Uint32(params[0:4])), 1e-6, "down flag")
	require.InDelta(t, 0.5, math.Float32frombits(binary.LittleEndian.Uint32(params[4:8])), 1e-6, "radius")

	// Absent mouse state serializes as all-zero, same length.
	empty := s.buildUniformBytes(0, 1, nil)
	require.Equal(t, len(buf), len(empty))
	require.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(empty[112:116])))
}

func TestUniformBytesCustomUniformsAfterBase(t *testing.T) {
	cu := uniforms.New()
	cu.Set("zeta", uniforms.FromF32(7))
	cu.Set("alpha", uniforms.FromF32(3))

	s := newTestSim(codegen.Config{Uniforms: cu})
	buf := s.buildUniformBytes(0, 1, nil)

	// Name-sorted: alpha first.
	require.InDelta(t, 3.0, math.Float32frombits(binary.LittleEndian.Uint32(buf[80:84])), 1e-6)
	require.InDelta(t, 7.0, math.Float32frombits(binary.LittleEndian.Uint32(buf[84:88])), 1e-6)
}
