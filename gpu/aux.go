package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"particleforge/codegen"
	"particleforge/visuals"
)

// connectionsPerParticle bounds the connection segment buffer: each
// particle can contribute this many line segments before the atomic
// allocator starts dropping pairs.
const connectionsPerParticle = 8

// auxPipelines is the set compiled by buildAuxPipelines; kept separate
// from the orchestrator so a rebuild can compile them all before any
// live pipeline is replaced.
type auxPipelines struct {
	connCompute  *wgpu.ComputePipeline
	connRender   *wgpu.RenderPipeline
	trailCompute *wgpu.ComputePipeline
	trailRender  *wgpu.RenderPipeline
	grid         *wgpu.RenderPipeline
	volume       *wgpu.RenderPipeline
	wireframe    *wgpu.RenderPipeline
	post         *wgpu.RenderPipeline
}

// auxResources holds every buffer, bind group, and offscreen target
// behind the auxiliary visualization passes: connection lines, trails,
// the spatial-grid overlay, field volume raymarching, wireframe
// particle meshes, and the fullscreen post-process.
type auxResources struct {
	auxPipelines

	connBuf             *wgpu.Buffer
	connCountBuf        *wgpu.Buffer
	connParamsBuf       *wgpu.Buffer
	connRenderParamsBuf *wgpu.Buffer

	trailBuf       *wgpu.Buffer
	trailParamsBuf *wgpu.Buffer

	gridLinesBuf  *wgpu.Buffer
	gridParamsBuf *wgpu.Buffer

	volumeParamsBuf *wgpu.Buffer

	meshLinesBuf       *wgpu.Buffer
	wireframeParamsBuf *wgpu.Buffer

	postUniformBuf *wgpu.Buffer
	postSampler    *wgpu.Sampler
	sceneTex       *wgpu.Texture
	sceneView      *wgpu.TextureView
	sceneWidth     uint32
	sceneHeight    uint32

	connComputeBG  *wgpu.BindGroup
	connRenderBG   *wgpu.BindGroup
	trailComputeBG *wgpu.BindGroup
	trailRenderBG  *wgpu.BindGroup
	gridBG         *wgpu.BindGroup
	volumeBG       *wgpu.BindGroup
	wireframeBG    *wgpu.BindGroup
	postBG         *wgpu.BindGroup

	maxConnections   uint32
	gridLineCount    uint32
	trailLength      uint32
	linesPerMesh     uint32
	volumeFieldIndex int
}

func (a *auxResources) setPipelines(p auxPipelines) { a.auxPipelines = p }

// buildAuxPipelines compiles whichever auxiliary shaders codegen
// emitted for this configuration. Nothing is attached to the
// orchestrator until the whole rebuild succeeds.
func (o *Orchestrator) buildAuxPipelines(out *codegen.Output, cfg codegen.Config) (auxPipelines, error) {
	var p auxPipelines
	var err error

	if out.ConnectionCompute != "" {
		p.connCompute, err = o.buildComputePipeline("connection find", out.ConnectionCompute, "main")
		if err != nil {
			return p, err
		}
		p.connRender, err = o.buildRenderPipelineSimple("connection lines", out.ConnectionRender, blendStateFor(cfg.Visuals))
		if err != nil {
			return p, err
		}
	}

	if out.TrailCompute != "" {
		p.trailCompute, err = o.buildComputePipeline("trail update", out.TrailCompute, "main")
		if err != nil {
			return p, err
		}
		p.trailRender, err = o.buildRenderPipelineSimple("trails", out.TrailRender, blendStateFor(cfg.Visuals))
		if err != nil {
			return p, err
		}
	}

	if out.GridOverlay != "" {
		p.grid, err = o.buildRenderPipelineSimple("spatial grid overlay", out.GridOverlay, blendStateFor(nil))
		if err != nil {
			return p, err
		}
	}

	if out.VolumeRender != "" {
		p.volume, err = o.buildRenderPipelineSimple("field volume", out.VolumeRender, additiveBlend())
		if err != nil {
			return p, err
		}
	}

	if out.Wireframe != "" {
		p.wireframe, err = o.buildRenderPipelineSimple("wireframe mesh", out.Wireframe, blendStateFor(cfg.Visuals))
		if err != nil {
			return p, err
		}
	}

	if out.PostProcess != "" {
		p.post, err = o.buildPostPipeline(out.PostProcess)
		if err != nil {
			return p, err
		}
	}

	return p, nil
}

// buildRenderPipelineSimple compiles a vs_main/fs_main triangle-list
// pipeline against the shared render format, the shape every
// auxiliary render shader uses.
func (o *Orchestrator) buildRenderPipelineSimple(label, wgsl string, blend *wgpu.BlendState) (*wgpu.RenderPipeline, error) {
	mod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %s shader: %w", label, err)
	}
	pipeline, err := o.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: label,
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    RenderFormat,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s pipeline: %w", label, err)
	}
	return pipeline, nil
}

// buildPostPipeline compiles the fullscreen post-process with its
// dedicated vs_fullscreen entry point and no blending: the pass
// rewrites the whole target from the scene texture.
func (o *Orchestrator) buildPostPipeline(wgsl string) (*wgpu.RenderPipeline, error) {
	mod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "post process",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile post-process shader: %w", err)
	}
	pipeline, err := o.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "post process",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_fullscreen",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: RenderFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create post-process pipeline: %w", err)
	}
	return pipeline, nil
}

// ensureAuxBuffers sizes every auxiliary buffer off the current
// configuration; static content (grid lines, mesh lines) is uploaded
// here as well since it never changes between rebuilds.
func (o *Orchestrator) ensureAuxBuffers(cfg codegen.Config, maxParticles uint32) error {
	a := &o.aux
	v := cfg.Visuals
	if v == nil {
		return nil
	}

	if a.connCompute != nil {
		a.maxConnections = maxParticles * connectionsPerParticle
		if err := o.ensureBuffer("connections", &a.connBuf, uint64(a.maxConnections)*32, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("connection_count", &a.connCountBuf, 16, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("connection_params", &a.connParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
		if err := o.ensureBuffer("connection_render_params", &a.connRenderParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	if a.trailCompute != nil {
		a.trailLength = v.TrailLength
		size := uint64(maxParticles) * uint64(a.trailLength) * 16
		if err := o.ensureBuffer("trails", &a.trailBuf, size, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("trail_params", &a.trailParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	if a.grid != nil {
		lines := generateGridLines(cfg.Spatial.GridResolution, cfg.Spatial.CellSize)
		a.gridLineCount = uint32(len(lines) / 2)
		data := make([]byte, 0, len(lines)*16)
		for _, p := range lines {
			data = appendVec4(data, p)
		}
		if err := o.ensureBuffer("grid_lines", &a.gridLinesBuf, uint64(len(data)), wgpu.BufferUsageStorage); err != nil {
			return err
		}
		o.Queue.WriteBuffer(a.gridLinesBuf, 0, data)
		if err := o.ensureBuffer("grid_params", &a.gridParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	if a.volume != nil {
		if err := o.ensureBuffer("volume_params", &a.volumeParamsBuf, 176, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	if a.wireframe != nil {
		mesh := v.Wireframe
		a.linesPerMesh = mesh.LineCount()
		data := make([]byte, 0, len(mesh.Lines)*12)
		for _, p := range mesh.Lines {
			data = appendF32LE(data, p.X())
			data = appendF32LE(data, p.Y())
			data = appendF32LE(data, p.Z())
		}
		if err := o.ensureBuffer("mesh_lines", &a.meshLinesBuf, uint64(len(data)), wgpu.BufferUsageStorage); err != nil {
			return err
		}
		o.Queue.WriteBuffer(a.meshLinesBuf, 0, data)
		if err := o.ensureBuffer("wireframe_params", &a.wireframeParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	if a.post != nil {
		if err := o.ensureBuffer("post_uniforms", &a.postUniformBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
	}

	return nil
}

// buildAuxBindGroups creates the bind groups for whichever auxiliary
// pipelines exist this generation. The post-process group depends on
// the scene texture and is (re)built by EnsureFrameTargets instead.
func (o *Orchestrator) buildAuxBindGroups(cfg codegen.Config) error {
	a := &o.aux
	var err error

	if a.connCompute != nil {
		a.connComputeBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge connection compute",
			Layout: a.connCompute.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: a.connBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.connCountBuf, Size: wgpu.WholeSize},
				{Binding: 3, Buffer: a.connParamsBuf, Size: wgpu.WholeSize},
				{Binding: 4, Buffer: o.indicesABuf, Size: wgpu.WholeSize},
				{Binding: 5, Buffer: o.cellStartBuf, Size: wgpu.WholeSize},
				{Binding: 6, Buffer: o.cellEndBuf, Size: wgpu.WholeSize},
				{Binding: 7, Buffer: o.spatialParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("connection compute bind group: %w", err)
		}

		a.connRenderBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge connection render",
			Layout: a.connRender.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: a.connBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.connRenderParamsBuf, Size: wgpu.WholeSize},
				{Binding: 3, Buffer: a.connCountBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("connection render bind group: %w", err)
		}
	}

	if a.trailCompute != nil {
		a.trailComputeBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge trail compute",
			Layout: a.trailCompute.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: a.trailBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.trailParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("trail compute bind group: %w", err)
		}

		a.trailRenderBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge trail render",
			Layout: a.trailRender.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: a.trailBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.trailParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("trail render bind group: %w", err)
		}
	}

	if a.grid != nil {
		a.gridBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge grid overlay",
			Layout: a.grid.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: a.gridLinesBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.gridParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("grid overlay bind group: %w", err)
		}
	}

	if a.volume != nil {
		v := cfg.Visuals.Volume
		idx, ok := cfg.Fields.IndexOf(v.FieldName)
		if !ok {
			return fmt.Errorf("volume render references unregistered field %q", v.FieldName)
		}
		a.volumeFieldIndex = idx
		a.volumeBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge volume render",
			Layout: a.volume.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: a.volumeParamsBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: o.fieldResources[idx].readBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("volume render bind group: %w", err)
		}
	}

	if a.wireframe != nil {
		a.wireframeBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge wireframe",
			Layout: a.wireframe.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: o.particleBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: a.meshLinesBuf, Size: wgpu.WholeSize},
				{Binding: 3, Buffer: a.wireframeParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("wireframe bind group: %w", err)
		}
	}

	return nil
}

// writeAuxUniforms refreshes the small per-feature parameter blocks.
// Called after Rebuild and whenever the particle count changes.
func (o *Orchestrator) writeAuxUniforms() {
	a := &o.aux
	v := o.cfg.Visuals
	if v == nil {
		return
	}

	if a.connParamsBuf != nil {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.ConnectionsRadius))
		binary.LittleEndian.PutUint32(buf[4:8], a.maxConnections)
		binary.LittleEndian.PutUint32(buf[8:12], o.numParticles)
		o.Queue.WriteBuffer(a.connParamsBuf, 0, buf)

		rp := make([]byte, 16)
		binary.LittleEndian.PutUint32(rp[0:4], math.Float32bits(v.ConnectionColor.X()))
		binary.LittleEndian.PutUint32(rp[4:8], math.Float32bits(v.ConnectionColor.Y()))
		binary.LittleEndian.PutUint32(rp[8:12], math.Float32bits(v.ConnectionColor.Z()))
		o.Queue.WriteBuffer(a.connRenderParamsBuf, 0, rp)
	}

	if a.trailParamsBuf != nil {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], o.numParticles)
		binary.LittleEndian.PutUint32(buf[4:8], a.trailLength)
		o.Queue.WriteBuffer(a.trailParamsBuf, 0, buf)
	}

	if a.gridParamsBuf != nil {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.SpatialGridOpacity))
		o.Queue.WriteBuffer(a.gridParamsBuf, 0, buf)
	}

	if a.wireframeParamsBuf != nil {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Wireframe.LineThickness))
		binary.LittleEndian.PutUint32(buf[4:8], a.linesPerMesh)
		size := o.cfg.ParticleSize
		if size <= 0 {
			size = 1
		}
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(size))
		o.Queue.WriteBuffer(a.wireframeParamsBuf, 0, buf)
	}
}

// WriteVolumeParams uploads the camera-dependent half of the volume
// raymarcher's parameter block. Runs every frame, paused or not, so
// orbiting the camera keeps the volume aligned.
func (o *Orchestrator) WriteVolumeParams(invViewProj mgl32.Mat4, cameraPos mgl32.Vec3) {
	a := &o.aux
	if a.volumeParamsBuf == nil {
		return
	}
	v := o.cfg.Visuals.Volume
	field := o.cfg.Fields.All()[a.volumeFieldIndex]

	buf := make([]byte, 0, 176)
	for _, f := range invViewProj {
		buf = appendF32LE(buf, f)
	}
	buf = appendF32LE(buf, cameraPos.X())
	buf = appendF32LE(buf, cameraPos.Y())
	buf = appendF32LE(buf, cameraPos.Z())
	buf = appendU32LE(buf, v.Steps)
	buf = appendF32LE(buf, field.WorldExtent)
	buf = appendU32LE(buf, field.Resolution)
	buf = appendF32LE(buf, v.DensityScale)
	buf = appendF32LE(buf, v.Threshold)
	for _, c := range v.Palette.Colors() {
		buf = appendVec4(buf, mgl32.Vec4{c.X(), c.Y(), c.Z(), 1})
	}
	o.Queue.WriteBuffer(a.volumeParamsBuf, 0, buf)
}

// EnsureFrameTargets sizes the offscreen scene texture the
// post-process pass samples; a no-op unless post-processing is
// configured and the viewport changed. Also refreshes the
// post-process uniform block with the current resolution.
func (o *Orchestrator) EnsureFrameTargets(width, height uint32, time float32) error {
	a := &o.aux
	if a.post == nil {
		return nil
	}

	if a.postSampler == nil {
		sampler, err := o.Device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         "particleforge scene sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("gpu: create scene sampler: %w", err)
		}
		a.postSampler = sampler
	}

	if a.sceneTex == nil || a.sceneWidth != width || a.sceneHeight != height {
		tex, err := o.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "particleforge scene",
			Size: wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        RenderFormat,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		})
		if err != nil {
			return fmt.Errorf("gpu: create scene texture: %w", err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			return fmt.Errorf("gpu: create scene texture view: %w", err)
		}
		a.sceneTex = tex
		a.sceneView = view
		a.sceneWidth = width
		a.sceneHeight = height
		a.postBG = nil
	}

	if a.postBG == nil {
		bg, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge post process",
			Layout: a.post.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: a.sceneView},
				{Binding: 1, Sampler: a.postSampler},
				{Binding: 2, Buffer: a.postUniformBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: post-process bind group: %w", err)
		}
		a.postBG = bg
	}

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(time))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(float32(height)))
	o.Queue.WriteBuffer(a.postUniformBuf, 0, buf)

	return nil
}

// generateGridLines builds the spatial grid's overlay wireframe: one
// full-length segment per grid line along each axis, as vec4 endpoint
// pairs.
func generateGridLines(resolution uint32, cellSize float32) []mgl32.Vec4 {
	res := int32(resolution)
	halfExtent := float32(res) * cellSize / 2

	at := func(i int32) float32 { return -halfExtent + float32(i)*cellSize }

	var lines []mgl32.Vec4
	for y := int32(0); y <= res; y++ {
		for z := int32(0); z <= res; z++ {
			lines = append(lines,
				mgl32.Vec4{-halfExtent, at(y), at(z), 1},
				mgl32.Vec4{halfExtent, at(y), at(z), 1})
		}
	}
	for x := int32(0); x <= res; x++ {
		for z := int32(0); z <= res; z++ {
			lines = append(lines,
				mgl32.Vec4{at(x), -halfExtent, at(z), 1},
				mgl32.Vec4{at(x), halfExtent, at(z), 1})
		}
	}
	for x := int32(0); x <= res; x++ {
		for y := int32(0); y <= res; y++ {
			lines = append(lines,
				mgl32.Vec4{at(x), at(y), -halfExtent, 1},
				mgl32.Vec4{at(x), at(y), halfExtent, 1})
		}
	}
	return lines
}

// ClearConnectionCount zeroes the connection atomic before this
// frame's finder pass runs.
func (o *Orchestrator) ClearConnectionCount() {
	if o.aux.connCountBuf == nil {
		return
	}
	o.Queue.WriteBuffer(o.aux.connCountBuf, 0, make([]byte, 16))
}

func appendF32LE(buf []byte, v float32) []byte {
	bits := math.Float32bits(v)
	return append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}

func appendU32LE(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendVec4(buf []byte, v mgl32.Vec4) []byte {
	buf = appendF32LE(buf, v.X())
	buf = appendF32LE(buf, v.Y())
	buf = appendF32LE(buf, v.Z())
	return appendF32LE(buf, v.W())
}

// sceneOr returns the offscreen scene view when post-processing is
// active, otherwise the caller's target; the frame's main render pass
// draws into whichever this picks.
func (o *Orchestrator) sceneOr(target *wgpu.TextureView) *wgpu.TextureView {
	if o.aux.post != nil && o.aux.sceneView != nil {
		return o.aux.sceneView
	}
	return target
}

// backgroundClear maps the configured background color into the clear
// value for the frame's first render pass.
func (o *Orchestrator) backgroundClear() wgpu.Color {
	bg := visuals.NewConfig().BackgroundColor
	if o.cfg.Visuals != nil {
		bg = o.cfg.Visuals.BackgroundColor
	}
	return wgpu.Color{R: float64(bg.X()), G: float64(bg.Y()), B: float64(bg.Z()), A: 1}
}
