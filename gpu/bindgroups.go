package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// rebuildBindGroups recreates every bind group this orchestrator owns
// against the pipelines compiled by the most recent Rebuild. Called
// once after pipeline + buffer (re)creation; a pipeline's implicit
// bind group layouts only stay valid for the shader module that
// produced them, so bind groups cannot outlive a pipeline swap.
func (o *Orchestrator) rebuildBindGroups() error {
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
	}
	if o.mortonPipeline != nil {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 2, Buffer: o.indicesABuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 3, Buffer: o.cellStartBuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 4, Buffer: o.cellEndBuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 5, Buffer: o.spatialParamsBuf, Size: wgpu.WholeSize},
		)
	}

	computeBG0, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "particleforge compute bg0",
		Layout:  o.particlePipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: compute bind group 0: %w", err)
	}
	o.computeBG0 = computeBG0

	// The particle kernel never declares anything in group 1 (textures
	// are render-stage only), but groups 2 and 3 sit above it; a bound
	// group cannot skip over an unbound index, so any use of fields or
	// sub-emitters needs an empty placeholder at 1 (and at 2, handled
	// by buildComputeBindGroup2).
	o.computeBG1 = nil
	hasFields := o.cfg.Fields != nil && o.cfg.Fields.Len() > 0
	if o.spawnPipeline != nil || hasFields {
		computeBG1, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "particleforge compute bg1 (empty)",
			Layout:  o.particlePipeline.GetBindGroupLayout(1),
			Entries: []wgpu.BindGroupEntry{},
		})
		if err != nil {
			return fmt.Errorf("gpu: compute bind group 1: %w", err)
		}
		o.computeBG1 = computeBG1
	}

	o.computeBG3 = nil
	if o.spawnPipeline != nil {
		computeBG3, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge compute bg3",
			Layout: o.particlePipeline.GetBindGroupLayout(3),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: o.deathBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: o.deathCountBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: o.nextChildSlot, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: compute bind group 3: %w", err)
		}
		o.computeBG3 = computeBG3
	}

	renderBG0, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge render bg0",
		Layout: o.renderPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.uniformBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: render bind group 0: %w", err)
	}
	o.renderBG0 = renderBG0

	return nil
}

// spawnBindGroup builds the sub-emitter spawn kernel's independent
// bind group 0 (particles + death ring + death counter + child slot
// allocator), matching subemitter.GenerateSpawnShader's declarations.
func (o *Orchestrator) spawnBindGroup() (*wgpu.BindGroup, error) {
	return o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge spawn",
		Layout: o.spawnPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.deathBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.deathCountBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.nextChildSlot, Size: wgpu.WholeSize},
		},
	})
}
