package particleforge

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"particleforge/camera"
	"particleforge/codegen"
	"particleforge/gpu"
	"particleforge/schema"
	"particleforge/uniforms"
)

// CameraCommand is one frame's worth of orbit-camera input: yaw/pitch
// deltas in radians and a zoom delta applied to the camera's radius.
type CameraCommand struct {
	YawDelta   float32
	PitchDelta float32
	ZoomDelta  float32
}

// MouseState is the optional per-frame mouse block serialized into
// the uniform buffer when the builder enabled mouse uniforms: a
// world-space picking ray plus button/brush parameters.
type MouseState struct {
	RayOrigin mgl32.Vec3
	RayDir    mgl32.Vec3
	Down      bool
	Radius    float32
	Strength  float32
	Color     mgl32.Vec3
}

// PendingWrite overwrites one particle slot's raw bytes before the
// compute kernel runs this frame; len(Data) must equal the layout's
// stride.
type PendingWrite struct {
	Index uint32
	Data  []byte
}

// PickRequest asks for a hit test at a viewport pixel this frame.
type PickRequest struct {
	X uint32
	Y uint32
}

// FrameInput is everything one Step call needs beyond the
// simulation's own persistent state.
type FrameInput struct {
	DeltaTime   float32
	AspectRatio float32
	// Viewport size in pixels; required when picking or a post-process
	// shader is in use, ignored otherwise.
	Width  uint32
	Height uint32

	Camera       CameraCommand
	Mouse        *MouseState
	PickRequest  *PickRequest
	PendingWrite *PendingWrite
	Target       *wgpu.TextureView
}

// FrameOutput reports what changed as a result of one Step call.
type FrameOutput struct {
	Selection gpu.Selection
	// SelectedParticle is the raw record of the selected particle,
	// refreshed every frame while a selection is live so a UI can
	// observe GPU-side mutation. Nil when nothing is selected.
	SelectedParticle []byte
	Time             float32
	Paused           bool
}

// ResetOptions selects what a Reset touches; the zero value is the
// lightest possible reset (simulation time only).
type ResetOptions struct {
	ClearParticles bool
	ReseedRNG      bool
	ClearFields    bool
}

// Simulation is the result of SimulationBuilder.Build: a particle
// layout, a compiled shader generation, and the device resources
// backing it, ready to Step every frame.
type Simulation struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	logger Logger

	layout *schema.ParticleLayout
	cfg    codegen.Config
	orch   *gpu.Orchestrator
	camera *camera.OrbitCamera

	maxParticles uint32
	numParticles uint32

	selection gpu.Selection

	time   float32
	paused bool
}

func newSimulation(device *wgpu.Device, queue *wgpu.Queue, layout *schema.ParticleLayout, cfg codegen.Config, maxParticles uint32, logger Logger) (*Simulation, error) {
	orch := gpu.New(device, queue, layout)
	if err := orch.Rebuild(cfg, maxParticles); err != nil {
		reportRebuildFailure(logger, cfg, err)
		return nil, fmt.Errorf("particleforge: initial pipeline build: %w", err)
	}
	setLoggerGeneration(logger, orch.RebuildGeneration.String())
	if err := orch.SetParticleCount(maxParticles); err != nil {
		return nil, fmt.Errorf("particleforge: set initial particle count: %w", err)
	}

	sim := &Simulation{
		device:       device,
		queue:        queue,
		logger:       logger,
		layout:       layout,
		cfg:          cfg,
		orch:         orch,
		camera:       camera.NewOrbitCamera(),
		maxParticles: maxParticles,
		numParticles: maxParticles,
	}

	logger.Infof("simulation built: %d max particles, stride %d bytes", maxParticles, layout.Stride)
	return sim, nil
}

// Layout returns the immutable particle layout this simulation was
// built with.
func (s *Simulation) Layout() *schema.ParticleLayout { return s.layout }

// Paused reports whether Step is currently advancing time.
func (s *Simulation) Paused() bool { return s.paused }

// SetPaused toggles the compute dispatches. Render, camera, and
// picking all keep running while paused; the particle buffer stays
// bit-identical until unpaused.
func (s *Simulation) SetPaused(p bool) { s.paused = p }

// Selection returns the current pick selection, if any.
func (s *Simulation) Selection() gpu.Selection { return s.selection }

// Uniforms returns the mutable custom-uniform table. Values set here
// (typically from a per-frame callback) are serialized into the
// uniform buffer on the next Step; names and types are fixed at build
// time since the shader layout bakes them in.
func (s *Simulation) Uniforms() *uniforms.CustomUniforms { return s.cfg.Uniforms }

// Step advances the simulation one frame: uploads uniforms and any
// pending write, runs the compute/render pass sequence, and services
// an optional pick request.
func (s *Simulation) Step(in FrameInput) (FrameOutput, error) {
	dt := in.DeltaTime
	if s.paused {
		dt = 0
	}
	s.time += dt

	s.camera.Orbit(in.Camera.YawDelta, in.Camera.PitchDelta, in.Camera.ZoomDelta)

	if in.PendingWrite != nil {
		if uint32(len(in.PendingWrite.Data)) != s.layout.Stride {
			return FrameOutput{}, fmt.Errorf("particleforge: pending write length %d does not match stride %d", len(in.PendingWrite.Data), s.layout.Stride)
		}
		if err := s.orch.WriteParticleAt(in.PendingWrite.Index, in.PendingWrite.Data); err != nil {
			return FrameOutput{}, fmt.Errorf("particleforge: pending write: %w", err)
		}
	}

	uniformBytes := s.buildUniformBytes(dt, in.AspectRatio, in.Mouse)
	if err := s.orch.WriteUniforms(uniformBytes); err != nil {
		return FrameOutput{}, fmt.Errorf("particleforge: write uniforms: %w", err)
	}

	// Volume params follow the camera every frame, paused or not.
	vp := s.camera.ViewProj(in.AspectRatio)
	s.orch.WriteVolumeParams(vp.Inv(), s.camera.Eye())

	if in.Width > 0 && in.Height > 0 {
		if err := s.orch.EnsureFrameTargets(in.Width, in.Height, s.time); err != nil {
			return FrameOutput{}, fmt.Errorf("particleforge: frame targets: %w", err)
		}
	}

	if in.Target == nil {
		return FrameOutput{}, fmt.Errorf("particleforge: FrameInput.Target is required")
	}
	if err := s.orch.Step(in.Target, !s.paused); err != nil {
		return FrameOutput{}, fmt.Errorf("particleforge: frame step: %w", err)
	}

	out := FrameOutput{Time: s.time, Paused: s.paused}

	if in.PickRequest != nil {
		if in.Width > 0 && in.Height > 0 {
			if err := s.orch.EnsurePickingTarget(in.Width, in.Height); err != nil {
				return FrameOutput{}, fmt.Errorf("particleforge: picking target: %w", err)
			}
		}
		sel, err := s.orch.Pick(in.PickRequest.X, in.PickRequest.Y)
		if err != nil {
			// A failed readback leaves the previous selection alone.
			s.logger.Warnf("pick failed: %v", err)
		} else if sel.Hit {
			s.selection = sel
		} else {
			s.selection = gpu.Selection{}
		}
	}

	if s.selection.Hit {
		data, err := s.orch.ReadParticle(s.selection.ParticleID)
		if err != nil {
			s.logger.Warnf("selected particle readback failed: %v", err)
		} else {
			out.SelectedParticle = data
		}
	}
	out.Selection = s.selection

	return out, nil
}

// buildUniformBytes packs view_proj/time/delta_time, the optional
// mouse block, then the custom uniforms in the name-sorted order
// codegen's ToWGSLFields/ToBytes both rely on.
func (s *Simulation) buildUniformBytes(dt, aspect float32, mouse *MouseState) []byte {
	vp := s.camera.ViewProj(aspect)
	buf := make([]byte, 0, 160)
	buf = appendMat4(buf, vp)
	buf = appendF32(buf, s.time)
	buf = appendF32(buf, dt)
	buf = append(buf, make([]byte, 8)...) // _pad0: vec2<f32>

	if s.cfg.MouseUniforms {
		m := MouseState{}
		if mouse != nil {
			m = *mouse
		}
		down := float32(0)
		if m.Down {
			down = 1
		}
		buf = appendVec3Pad(buf, m.RayOrigin, 0)
		buf = appendVec3Pad(buf, m.RayDir, 0)
		buf = appendF32(buf, down)
		buf = appendF32(buf, m.Radius)
		buf = appendF32(buf, m.Strength)
		buf = appendF32(buf, 0)
		buf = appendVec3Pad(buf, m.Color, 1)
	}

	if s.cfg.Uniforms != nil {
		buf = append(buf, s.cfg.Uniforms.ToBytes()...)
	}

	if rem := len(buf) % 16; rem != 0 {
		buf = append(buf, make([]byte, 16-rem)...)
	}
	return buf
}

// Reset rewinds simulation time; setting ClearParticles or
// ClearFields additionally zeroes those GPU buffers.
func (s *Simulation) Reset(opts ResetOptions) error {
	s.time = 0
	if opts.ReseedRNG {
		s.logger.Debugf("reseeding RNG state")
	}
	if opts.ClearParticles {
		zero := make([]byte, uint64(s.layout.Stride)*uint64(s.maxParticles))
		if err := s.orch.WriteParticles(zero); err != nil {
			return fmt.Errorf("particleforge: clear particles: %w", err)
		}
		s.selection = gpu.Selection{}
	}
	if opts.ClearFields {
		s.orch.ClearFieldBuffers()
	}
	return nil
}

// Rebuild recompiles the simulation's shaders from new configuration
// (e.g. an added rule or emitter). A compile failure leaves the
// running pipelines untouched. The particle layout cannot change
// across a rebuild (that requires a new Simulation), so the live
// particle state is carried over via a readback round-trip.
func (s *Simulation) Rebuild(cfg codegen.Config) error {
	snapshot, err := s.orch.ReadbackParticles()
	if err != nil {
		s.logger.Warnf("particle snapshot before rebuild failed, state will reset: %v", err)
		snapshot = nil
	}

	if err := s.orch.Rebuild(cfg, s.maxParticles); err != nil {
		reportRebuildFailure(s.logger, cfg, err)
		return fmt.Errorf("particleforge: rebuild: %w", err)
	}
	s.cfg = cfg
	setLoggerGeneration(s.logger, s.orch.RebuildGeneration.String())

	if snapshot != nil {
		if err := s.orch.WriteParticles(snapshot); err != nil {
			return fmt.Errorf("particleforge: restore particles after rebuild: %w", err)
		}
	}

	s.logger.Infof("simulation rebuilt, generation %s", s.orch.RebuildGeneration)
	return nil
}

// EnsurePickingTarget allocates (or resizes) the offscreen id texture
// Pick renders into; call once after viewport size is known and again
// on resize.
func (s *Simulation) EnsurePickingTarget(width, height uint32) error {
	return s.orch.EnsurePickingTarget(width, height)
}

func appendF32(buf []byte, v float32) []byte {
	bits := math.Float32bits(v)
	return append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}

func appendVec3Pad(buf []byte, v mgl32.Vec3, pad float32) []byte {
	buf = appendF32(buf, v.X())
	buf = appendF32(buf, v.Y())
	buf = appendF32(buf, v.Z())
	return appendF32(buf, pad)
}

func appendMat4(buf []byte, m mgl32.Mat4) []byte {
	for _, v := range m {
		buf = appendF32(buf, v)
	}
	return buf
}
