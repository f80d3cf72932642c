package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// workgroupsFor1D returns the number of 256-wide workgroups needed to
// cover n invocations.
func workgroupsFor1D(n uint32) uint32 {
	return (n + 255) / 256
}

// Step runs one frame. With runCompute true the full sequence runs:
// spatial index rebuild, particle update, field post-processing,
// sub-emitter child spawning, connection finding, and trail update,
// then the render passes. With runCompute false (paused) only the render
// passes run, so the particle buffer stays bit-identical while the
// camera keeps moving.
//
// Render order within the color pass: volume raymarch first (additive,
// behind everything), spatial-grid overlay, trails, particles
// (billboards or wireframe instances), then connection lines. When a
// post-process shader is configured the whole pass targets the
// offscreen scene texture and a final fullscreen pass resolves it
// into the caller's target.
func (o *Orchestrator) Step(target *wgpu.TextureView, runCompute bool) error {
	if o.particlePipeline == nil {
		return fmt.Errorf("gpu: Step called before Rebuild")
	}

	if runCompute {
		o.ClearDeathCounters()
		o.ClearConnectionCount()
	}

	encoder, err := o.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}

	if runCompute {
		if err := o.runComputePasses(encoder); err != nil {
			return err
		}
	}

	if err := o.runRenderPasses(encoder, target); err != nil {
		return err
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: encoder finish: %w", err)
	}
	o.Queue.Submit(cmd)
	o.Device.Poll(false, nil)

	return nil
}

func (o *Orchestrator) runComputePasses(encoder *wgpu.CommandEncoder) error {
	if o.mortonPipeline != nil {
		if err := o.runSpatialIndexPasses(encoder); err != nil {
			return err
		}
	}

	wg := workgroupsFor1D(o.numParticles)

	cPass := encoder.BeginComputePass(nil)
	cPass.SetPipeline(o.particlePipeline)
	cPass.SetBindGroup(0, o.computeBG0, nil)
	if o.computeBG1 != nil {
		cPass.SetBindGroup(1, o.computeBG1, nil)
	}
	if o.computeBG2 != nil {
		cPass.SetBindGroup(2, o.computeBG2, nil)
	}
	if o.computeBG3 != nil {
		cPass.SetBindGroup(3, o.computeBG3, nil)
	}
	cPass.DispatchWorkgroups(wg, 1, 1)
	if err := cPass.End(); err != nil {
		return fmt.Errorf("gpu: particle update pass: %w", err)
	}

	// Field post-processing must complete before the sub-emitter spawn
	// pass: children spawned this frame read the merged field state,
	// never the raw deposits the particle kernel just wrote.
	if o.fieldMergePipeline != nil {
		if err := o.runFieldPasses(encoder); err != nil {
			return err
		}
	}

	if o.spawnPipeline != nil {
		spawnBG, err := o.spawnBindGroup()
		if err != nil {
			return fmt.Errorf("gpu: spawn bind group: %w", err)
		}
		sPass := encoder.BeginComputePass(nil)
		sPass.SetPipeline(o.spawnPipeline)
		sPass.SetBindGroup(0, spawnBG, nil)
		sPass.DispatchWorkgroups(workgroupsFor1D(subemitterMaxDeathEvents), 1, 1)
		if err := sPass.End(); err != nil {
			return fmt.Errorf("gpu: sub-emitter spawn pass: %w", err)
		}
	}

	if o.aux.connCompute != nil {
		connPass := encoder.BeginComputePass(nil)
		connPass.SetPipeline(o.aux.connCompute)
		connPass.SetBindGroup(0, o.aux.connComputeBG, nil)
		connPass.DispatchWorkgroups(wg, 1, 1)
		if err := connPass.End(); err != nil {
			return fmt.Errorf("gpu: connection find pass: %w", err)
		}
	}

	if o.aux.trailCompute != nil {
		trailPass := encoder.BeginComputePass(nil)
		trailPass.SetPipeline(o.aux.trailCompute)
		trailPass.SetBindGroup(0, o.aux.trailComputeBG, nil)
		trailPass.DispatchWorkgroups(wg, 1, 1)
		if err := trailPass.End(); err != nil {
			return fmt.Errorf("gpu: trail update pass: %w", err)
		}
	}

	return nil
}

func (o *Orchestrator) runRenderPasses(encoder *wgpu.CommandEncoder, target *wgpu.TextureView) error {
	a := &o.aux

	scene := o.sceneOr(target)
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       scene,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: o.backgroundClear(),
			},
		},
	})

	if a.volume != nil {
		rPass.SetPipeline(a.volume)
		rPass.SetBindGroup(0, a.volumeBG, nil)
		rPass.Draw(3, 1, 0, 0)
	}

	if a.grid != nil {
		rPass.SetPipeline(a.grid)
		rPass.SetBindGroup(0, a.gridBG, nil)
		rPass.Draw(6, a.gridLineCount, 0, 0)
	}

	if a.trailRender != nil {
		rPass.SetPipeline(a.trailRender)
		rPass.SetBindGroup(0, a.trailRenderBG, nil)
		rPass.Draw(6, o.numParticles*a.trailLength, 0, 0)
	}

	if a.wireframe != nil {
		rPass.SetPipeline(a.wireframe)
		rPass.SetBindGroup(0, a.wireframeBG, nil)
		rPass.Draw(6, o.numParticles*a.linesPerMesh, 0, 0)
	} else {
		rPass.SetPipeline(o.renderPipeline)
		rPass.SetBindGroup(0, o.renderBG0, nil)
		if o.renderBG1 != nil {
			rPass.SetBindGroup(1, o.renderBG1, nil)
		}
		rPass.Draw(6, o.numParticles, 0, 0)
	}

	if a.connRender != nil {
		rPass.SetPipeline(a.connRender)
		rPass.SetBindGroup(0, a.connRenderBG, nil)
		rPass.Draw(6, a.maxConnections, 0, 0)
	}

	if err := rPass.End(); err != nil {
		return fmt.Errorf("gpu: render pass: %w", err)
	}

	if a.post != nil && a.postBG != nil {
		pPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       target,
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: wgpu.Color{},
				},
			},
		})
		pPass.SetPipeline(a.post)
		pPass.SetBindGroup(0, a.postBG, nil)
		pPass.Draw(3, 1, 0, 0)
		if err := pPass.End(); err != nil {
			return fmt.Errorf("gpu: post-process pass: %w", err)
		}
	}

	return nil
}

// runFieldPasses runs, for every registered field: merge (fold the
// fixed-point atomic deposits the particle kernel just wrote into the
// float read buffer), blur/decay (into a scratch buffer, since an
// in-place neighbor blur would race against other invocations in the
// same dispatch), a copy of the scratch result back over the read
// buffer bound at group 2 so the next frame's particle kernel samples
// fresh values without a bind group rebuild, and finally clear (zero
// the write buffer for the next frame's accumulation). The blur+copy
// stage repeats BlurIterations times.
func (o *Orchestrator) runFieldPasses(encoder *wgpu.CommandEncoder) error {
	fieldCfgs := o.cfg.Fields.All()
	for i := range o.fieldResources {
		fr := &o.fieldResources[i]
		cells := uint32(fr.byteSize / 4)
		wg := workgroupsFor1D(cells)

		mergePass := encoder.BeginComputePass(nil)
		mergePass.SetPipeline(o.fieldMergePipeline)
		mergePass.SetBindGroup(0, fr.mergeBG, nil)
		mergePass.DispatchWorkgroups(wg, 1, 1)
		if err := mergePass.End(); err != nil {
			return fmt.Errorf("gpu: field merge pass: %w", err)
		}

		iterations := fieldCfgs[i].BlurIterations
		if iterations == 0 {
			iterations = 1
		}
		for iter := uint32(0); iter < iterations; iter++ {
			blurPass := encoder.BeginComputePass(nil)
			blurPass.SetPipeline(o.fieldBlurPipeline)
			blurPass.SetBindGroup(0, fr.blurBG, nil)
			blurPass.DispatchWorkgroups(wg, 1, 1)
			if err := blurPass.End(); err != nil {
				return fmt.Errorf("gpu: field blur/decay pass: %w", err)
			}

			encoder.CopyBufferToBuffer(fr.scratch, 0, fr.readBuf, 0, fr.byteSize)
		}

		clearPass := encoder.BeginComputePass(nil)
		clearPass.SetPipeline(o.fieldClearPipeline)
		clearPass.SetBindGroup(0, fr.clearBG, nil)
		clearPass.DispatchWorkgroups(wg, 1, 1)
		if err := clearPass.End(); err != nil {
			return fmt.Errorf("gpu: field clear pass: %w", err)
		}
	}

	return nil
}
