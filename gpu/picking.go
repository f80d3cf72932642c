package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// pickingBytesPerRow is the 256-byte row alignment WGPU requires for
// texture-to-buffer copies, applied even though a picking readback is
// logically a single pixel.
const pickingBytesPerRow = 256

// Selection is the result of a pick query. The id target is cleared
// to zero and live particles write their index plus one, so a sampled
// value of zero means "miss" and any other value decodes to particle
// index value-1.
type Selection struct {
	ParticleID uint32
	Hit        bool
}

// pickingState holds the picking pipeline and its offscreen targets,
// created lazily by EnsurePickingTarget; the pipeline uses the
// fs_picking entry point codegen always appends to the render shader.
type pickingState struct {
	pipeline *wgpu.RenderPipeline
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	readback *wgpu.Buffer
	mapped   bool
	width    uint32
	height   uint32
}

// EnsurePickingTarget (re)allocates the R32Uint offscreen texture and
// its readback buffer for a width x height viewport. Cheap to call
// every frame; it is a no-op once sized correctly.
func (o *Orchestrator) EnsurePickingTarget(width, height uint32) error {
	if o.picking == nil {
		o.picking = &pickingState{}
	}
	p := o.picking

	if p.width == width && p.height == height && p.tex != nil {
		return nil
	}

	tex, err := o.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "particleforge picking id",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR32Uint,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gpu: create picking texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("gpu: create picking texture view: %w", err)
	}

	rowBytes := uint32(pickingBytesPerRow)
	readback, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "particleforge picking readback",
		Size:             uint64(rowBytes),
		Usage:            wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("gpu: create picking readback buffer: %w", err)
	}

	p.tex = tex
	p.view = view
	p.readback = readback
	p.width = width
	p.height = height

	if o.renderPipeline != nil {
		pipeline, err := o.buildPickingPipeline()
		if err != nil {
			return err
		}
		p.pipeline = pipeline
	}

	return nil
}

func (o *Orchestrator) buildPickingPipeline() (*wgpu.RenderPipeline, error) {
	// fs_picking lives in the same shader module as fs_main, compiled
	// during Rebuild; the orchestrator keeps the module alive only
	// long enough to build both pipelines, so this recompiles it from
	// the last known render source rather than caching the module.
	mod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "particleforge picking",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: o.output.Render},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile picking shader: %w", err)
	}

	pipeline, err := o.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "particleforge picking pipeline",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_picking",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatR32Uint,
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
		return nil, fmt.Errorf("gpu: create picking pipeline: %w", err)
	}
	return pipeline, nil
}

// Pick renders the id pass, copies the single pixel at (x, y) into the
// readback buffer, and blocks on the device until the map completes —
// the same MapAsync+Poll+GetMappedRange+Unmap idiom used for every
// other synchronous GPU->CPU readback in this package.
func (o *Orchestrator) Pick(x, y uint32) (Selection, error) {
	p := o.picking
	if p == nil || p.tex == nil || p.pipeline == nil {
		return Selection{}, fmt.Errorf("gpu: Pick called before EnsurePickingTarget")
	}
	if x >= p.width || y >= p.height {
		return Selection{}, fmt.Errorf("gpu: pick coordinate (%d,%d) outside %dx%d target", x, y, p.width, p.height)
	}

	encoder, err := o.Device.CreateCommandEncoder(nil)
	if err != nil {
		return Selection{}, fmt.Errorf("gpu: create picking command encoder: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       p.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, o.renderBG0, nil)
	pass.Draw(6, o.numParticles, 0, 0)
	if err := pass.End(); err != nil {
		return Selection{}, fmt.Errorf("gpu: picking render pass: %w", err)
	}

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: p.tex, Origin: wgpu.Origin3D{X: x, Y: y, Z: 0}},
		&wgpu.ImageCopyBuffer{
			Buffer: p.readback,
			Layout: wgpu.TextureDataLayout{BytesPerRow: pickingBytesPerRow, RowsPerImage: 1},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return Selection{}, fmt.Errorf("gpu: picking encoder finish: %w", err)
	}
	o.Queue.Submit(cmd)

	p.mapped = false
	p.readback.MapAsync(wgpu.MapModeRead, 0, uint64(pickingBytesPerRow), func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			p.mapped = true
		}
	})
	o.Device.Poll(true, nil)

	if !p.mapped {
		return Selection{}, fmt.Errorf("gpu: picking readback map failed")
	}

	data := p.readback.GetMappedRange(0, uint(pickingBytesPerRow))
	value := binary.LittleEndian.Uint32(data[0:4])
	p.readback.Unmap()
	p.mapped = false

	if value == 0 {
		return Selection{Hit: false}, nil
	}
	return Selection{ParticleID: value - 1, Hit: true}, nil
}

// alignTo256 rounds n up to the 256-byte granularity buffer-copy
// readbacks require.
func alignTo256(n uint64) uint64 {
	return (n + 255) &^ 255
}

// readBufferSync copies size bytes starting at srcOffset out of src
// into a transient staging buffer and synchronously maps it back to
// the host, the same MapAsync+Poll(wait)+GetMappedRange idiom as the
// picking texel readback.
func (o *Orchestrator) readBufferSync(src *wgpu.Buffer, srcOffset, size uint64) ([]byte, error) {
	stagingSize := alignTo256(size)
	staging, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "particleforge readback staging",
		Size:  stagingSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := o.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create readback encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(src, srcOffset, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: readback encoder finish: %w", err)
	}
	o.Queue.Submit(cmd)

	mapped := false
	staging.MapAsync(wgpu.MapModeRead, 0, stagingSize, func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			mapped = true
		}
	})
	o.Device.Poll(true, nil)

	if !mapped {
		return nil, fmt.Errorf("gpu: readback map failed")
	}

	data := staging.GetMappedRange(0, uint(stagingSize))
	result := make([]byte, size)
	copy(result, data[:size])
	staging.Unmap()

	return result, nil
}

// ReadParticle copies one particle record back to the host. While a
// selection is live the caller re-reads it every frame so a UI can
// observe GPU-side mutation of the selected particle.
func (o *Orchestrator) ReadParticle(index uint32) ([]byte, error) {
	if index >= o.maxParticles {
		return nil, fmt.Errorf("gpu: particle index %d exceeds capacity %d", index, o.maxParticles)
	}
	stride := uint64(o.Layout.Stride)
	return o.readBufferSync(o.particleBuf, uint64(index)*stride, stride)
}

// ReadbackParticles snapshots the whole particle buffer, used by the
// rebuild path to carry particle state across a shader recompile when
// the stride and count are unchanged.
func (o *Orchestrator) ReadbackParticles() ([]byte, error) {
	size := uint64(o.Layout.Stride) * uint64(o.maxParticles)
	return o.readBufferSync(o.particleBuf, 0, size)
}
