// Package gpu owns every device-side resource a simulation needs: the
// particle buffer, the spatial index buffers, field textures, the
// sub-emitter death ring, and the compute/render pipelines compiled
// from codegen output. Orchestrator sequences one frame's passes and
// keeps resources resizing in place rather than churned every frame.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"particleforge/codegen"
	"particleforge/schema"
	"particleforge/visuals"
)

// HeadroomParticles is extra slack left on the particle buffer so small
// particle-count changes don't force an immediate reallocation.
const HeadroomParticles = 64 * 1024

// SafeBufferSizeLimit guards against runaway allocation requests.
const SafeBufferSizeLimit = 512 * 1024 * 1024

// RenderFormat is the color format every render pipeline targets; the
// caller's final target view and the internal scene texture both use
// it.
const RenderFormat = wgpu.TextureFormatRGBA16Float

// Orchestrator owns every GPU resource for one simulation and drives
// the per-frame pass sequence described for the frame orchestrator.
type Orchestrator struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	Layout *schema.ParticleLayout

	particleBuf *wgpu.Buffer
	uniformBuf  *wgpu.Buffer

	// Spatial index: double-buffered keys/values so the radix scatter
	// ping-pongs between A and B; the even pass count guarantees the
	// sorted result lands back in A, which the neighbor loop reads.
	mortonABuf       *wgpu.Buffer
	mortonBBuf       *wgpu.Buffer
	indicesABuf      *wgpu.Buffer
	indicesBBuf      *wgpu.Buffer
	cellStartBuf     *wgpu.Buffer
	cellEndBuf       *wgpu.Buffer
	spatialParamsBuf *wgpu.Buffer
	radixHistBuf     *wgpu.Buffer
	prefixCountBuf   *wgpu.Buffer
	sortParamsBufs   []*wgpu.Buffer

	deathBuf      *wgpu.Buffer
	deathCountBuf *wgpu.Buffer
	nextChildSlot *wgpu.Buffer

	fieldResources      []fieldResource
	fieldParamsArrayBuf *wgpu.Buffer

	textureResources []textureResource

	picking *pickingState

	aux auxResources

	particlePipeline   *wgpu.ComputePipeline
	mortonPipeline     *wgpu.ComputePipeline
	clearHistPipeline  *wgpu.ComputePipeline
	histogramPipeline  *wgpu.ComputePipeline
	prefixSumPipeline  *wgpu.ComputePipeline
	scatterPipeline    *wgpu.ComputePipeline
	clearCellsPipeline *wgpu.ComputePipeline
	cellTablePipeline  *wgpu.ComputePipeline
	spawnPipeline      *wgpu.ComputePipeline
	fieldMergePipeline *wgpu.ComputePipeline
	fieldBlurPipeline  *wgpu.ComputePipeline
	fieldClearPipeline *wgpu.ComputePipeline
	renderPipeline     *wgpu.RenderPipeline

	computeBG0 *wgpu.BindGroup
	computeBG1 *wgpu.BindGroup
	computeBG2 *wgpu.BindGroup
	computeBG3 *wgpu.BindGroup
	renderBG0  *wgpu.BindGroup
	renderBG1  *wgpu.BindGroup

	// Spatial pass bind groups; histogram and scatter get one per
	// radix pass since the pass index selects both the source buffer
	// pairing and the per-pass SortParams (bit offset) uniform.
	mortonBG     *wgpu.BindGroup
	clearHistBG  *wgpu.BindGroup
	prefixSumBG  *wgpu.BindGroup
	histogramBGs []*wgpu.BindGroup
	scatterBGs   []*wgpu.BindGroup
	clearCellsBG *wgpu.BindGroup
	cellTableBG  *wgpu.BindGroup

	// RebuildGeneration changes every time Rebuild succeeds; callers
	// use it to discard stale readback results computed against a prior
	// shader generation.
	RebuildGeneration uuid.UUID

	numParticles uint32
	maxParticles uint32
	output       *codegen.Output
	cfg          codegen.Config
}

// New constructs an Orchestrator bound to device/queue. No GPU
// resources are allocated until Rebuild is called with a codegen
// Output and a particle capacity.
func New(device *wgpu.Device, queue *wgpu.Queue, layout *schema.ParticleLayout) *Orchestrator {
	return &Orchestrator{
		Device: device,
		Queue:  queue,
		Layout: layout,
	}
}

// Rebuild compiles cfg into a fresh codegen.Output and pipelines and,
// on success, swaps them in atomically: a shader compile failure
// never tears down the pipelines the previous generation is still
// running, matching the no-glitch rebuild contract.
func (o *Orchestrator) Rebuild(cfg codegen.Config, maxParticles uint32) error {
	out, err := codegen.Build(cfg)
	if err != nil {
		return fmt.Errorf("gpu: codegen: %w", err)
	}

	computeMod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "particleforge compute",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: out.Compute},
	})
	if err != nil {
		return fmt.Errorf("gpu: compile compute shader: %w", err)
	}

	particlePipeline, err := o.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "particleforge particle update",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     computeMod,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}

	renderMod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "particleforge render",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: out.Render},
	})
	if err != nil {
		return fmt.Errorf("gpu: compile render shader: %w", err)
	}

	renderPipeline, err := o.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "particleforge billboard",
		Vertex: wgpu.VertexState{
			Module:     renderMod,
			EntryPoint: "vs_main",
			Buffers:    nil,
		},
		Fragment: &wgpu.FragmentState{
			Module:     renderMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    RenderFormat,
					Blend:     blendStateFor(cfg.Visuals),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create render pipeline: %w", err)
	}

	var mortonPipeline, clearHistPipeline, histPipeline, prefixPipeline, scatterPipeline, clearCellsPipeline, cellTablePipeline *wgpu.ComputePipeline
	if out.ComputeMorton != "" {
		mortonPipeline, err = o.buildComputePipeline("morton", out.ComputeMorton, "compute_morton")
		if err != nil {
			return err
		}
		clearHistPipeline, err = o.buildComputePipeline("clear histogram", out.ClearHistogram, "clear_histogram")
		if err != nil {
			return err
		}
		histPipeline, err = o.buildComputePipeline("radix histogram", out.RadixHistogram, "radix_histogram")
		if err != nil {
			return err
		}
		prefixPipeline, err = o.buildComputePipeline("prefix sum", out.PrefixSum, "prefix_sum")
		if err != nil {
			return err
		}
		scatterPipeline, err = o.buildComputePipeline("radix scatter", out.RadixScatter, "radix_scatter")
		if err != nil {
			return err
		}
		clearCellsPipeline, err = o.buildComputePipeline("clear cell table", out.ClearCellTable, "clear_cell_table")
		if err != nil {
			return err
		}
		cellTablePipeline, err = o.buildComputePipeline("cell table", out.BuildCellTable, "build_cell_table")
		if err != nil {
			return err
		}
	}

	var spawnPipeline *wgpu.ComputePipeline
	if out.SpawnKernel != "" {
		spawnPipeline, err = o.buildComputePipeline("sub-emitter spawn", out.SpawnKernel, "main")
		if err != nil {
			return err
		}
	}

	var mergePipeline, blurPipeline, clearPipeline *wgpu.ComputePipeline
	if out.FieldMerge != "" {
		mergePipeline, err = o.buildComputePipeline("field merge", out.FieldMerge, "main")
		if err != nil {
			return err
		}
		blurPipeline, err = o.buildComputePipeline("field blur/decay", out.FieldBlurDecay, "main")
		if err != nil {
			return err
		}
		clearPipeline, err = o.buildComputePipeline("field clear", out.FieldClear, "main")
		if err != nil {
			return err
		}
	}

	auxPipes, err := o.buildAuxPipelines(out, cfg)
	if err != nil {
		return err
	}

	if err := o.ensureBuffers(out, cfg, maxParticles); err != nil {
		return fmt.Errorf("gpu: allocate buffers: %w", err)
	}

	if err := o.allocateFields(cfg.Fields); err != nil {
		return fmt.Errorf("gpu: allocate field buffers: %w", err)
	}
	if err := o.writeFieldParamsArray(cfg.Fields); err != nil {
		return fmt.Errorf("gpu: write field params array: %w", err)
	}
	if err := o.uploadTextures(cfg.Textures); err != nil {
		return fmt.Errorf("gpu: upload textures: %w", err)
	}

	// Every intermediate pipeline compiled cleanly: swap generation in.
	o.particlePipeline = particlePipeline
	o.renderPipeline = renderPipeline
	o.mortonPipeline = mortonPipeline
	o.clearHistPipeline = clearHistPipeline
	o.histogramPipeline = histPipeline
	o.prefixSumPipeline = prefixPipeline
	o.scatterPipeline = scatterPipeline
	o.clearCellsPipeline = clearCellsPipeline
	o.cellTablePipeline = cellTablePipeline
	o.spawnPipeline = spawnPipeline
	o.fieldMergePipeline = mergePipeline
	o.fieldBlurPipeline = blurPipeline
	o.fieldClearPipeline = clearPipeline
	o.aux.setPipelines(auxPipes)
	o.output = out
	o.cfg = cfg
	o.maxParticles = maxParticles
	o.RebuildGeneration = uuid.New()

	if err := o.ensureAuxBuffers(cfg, maxParticles); err != nil {
		return fmt.Errorf("gpu: allocate auxiliary buffers: %w", err)
	}

	if err := o.rebuildBindGroups(); err != nil {
		return fmt.Errorf("gpu: build bind groups: %w", err)
	}
	if o.mortonPipeline != nil {
		if err := o.buildSpatialBindGroups(); err != nil {
			return fmt.Errorf("gpu: build spatial bind groups: %w", err)
		}
	}

	if o.fieldMergePipeline != nil {
		if err := o.buildFieldBindGroups(); err != nil {
			return fmt.Errorf("gpu: build field bind groups: %w", err)
		}
	}
	if err := o.buildComputeBindGroup2(cfg.Fields); err != nil {
		return fmt.Errorf("gpu: build compute bind group 2: %w", err)
	}
	if err := o.buildRenderBindGroup1(); err != nil {
		return fmt.Errorf("gpu: build render bind group 1: %w", err)
	}
	if err := o.buildAuxBindGroups(cfg); err != nil {
		return fmt.Errorf("gpu: build auxiliary bind groups: %w", err)
	}

	if o.picking != nil && o.picking.tex != nil {
		pipeline, err := o.buildPickingPipeline()
		if err != nil {
			return fmt.Errorf("gpu: rebuild picking pipeline: %w", err)
		}
		o.picking.pipeline = pipeline
	}

	o.writeSpatialUniforms()
	o.writeAuxUniforms()

	return nil
}

func (o *Orchestrator) buildComputePipeline(label, wgsl, entryPoint string) (*wgpu.ComputePipeline, error) {
	mod, err := o.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %s shader: %w", label, err)
	}
	pipeline, err := o.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s pipeline: %w", label, err)
	}
	return pipeline, nil
}

// blendStateFor maps the visual blend mode to the wgpu factor pair;
// nil visuals fall back to standard alpha blending.
func blendStateFor(v *visuals.Config) *wgpu.BlendState {
	mode := visuals.BlendAlpha
	if v != nil {
		mode = v.BlendMode
	}
	switch mode {
	case visuals.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		}
	case visuals.BlendMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDst, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDst, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
		}
	default:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	}
}

func additiveBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	}
}

// SetParticleCount sets how many live+dead particle slots the next
// frame dispatches over; it must not exceed the capacity the last
// Rebuild allocated.
func (o *Orchestrator) SetParticleCount(n uint32) error {
	if n > o.maxParticles {
		return fmt.Errorf("gpu: particle count %d exceeds allocated capacity %d", n, o.maxParticles)
	}
	o.numParticles = n
	o.writeSpatialUniforms()
	o.writeAuxUniforms()
	return nil
}
