package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// radixBits is the digit width of the LSD radix sort; it must match
// RADIX_BITS in the spatial WGSL.
const radixBits = 4

// writeSpatialUniforms uploads the SpatialParams block and the
// per-pass SortParams blocks. Called after Rebuild and whenever the
// dispatched particle count changes.
func (o *Orchestrator) writeSpatialUniforms() {
	if o.spatialParamsBuf == nil {
		return
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], math.Float32bits(o.cfg.Spatial.CellSize))
	binary.LittleEndian.PutUint32(params[4:8], o.cfg.Spatial.GridResolution)
	binary.LittleEndian.PutUint32(params[8:12], o.numParticles)
	o.Queue.WriteBuffer(o.spatialParamsBuf, 0, params)

	for pass, buf := range o.sortParamsBufs {
		sp := make([]byte, 16)
		binary.LittleEndian.PutUint32(sp[0:4], o.numParticles)
		binary.LittleEndian.PutUint32(sp[4:8], uint32(pass*radixBits))
		o.Queue.WriteBuffer(buf, 0, sp)
	}

	if o.prefixCountBuf != nil {
		count := make([]byte, 16)
		binary.LittleEndian.PutUint32(count[0:4], 16)
		o.Queue.WriteBuffer(o.prefixCountBuf, 0, count)
	}
}

// buildSpatialBindGroups creates the bind group for every spatial
// pass. Histogram and scatter need one bind group per radix pass:
// even passes read the A buffers and scatter into B, odd passes the
// reverse, and each pass binds its own SortParams uniform so the bit
// offset is baked in before the encoder is submitted.
func (o *Orchestrator) buildSpatialBindGroups() error {
	var err error

	o.mortonBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge morton",
		Layout: o.mortonPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.particleBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.mortonABuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.indicesABuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.spatialParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("morton bind group: %w", err)
	}

	o.clearHistBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge clear histogram",
		Layout: o.clearHistPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.radixHistBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("clear histogram bind group: %w", err)
	}

	o.prefixSumBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge prefix sum",
		Layout: o.prefixSumPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.radixHistBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.prefixCountBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("prefix sum bind group: %w", err)
	}

	passes := o.cfg.Spatial.RadixPassCount()
	o.histogramBGs = make([]*wgpu.BindGroup, passes)
	o.scatterBGs = make([]*wgpu.BindGroup, passes)

	for pass := 0; pass < passes; pass++ {
		keysIn, valsIn := o.mortonABuf, o.indicesABuf
		keysOut, valsOut := o.mortonBBuf, o.indicesBBuf
		if pass%2 == 1 {
			keysIn, valsIn = o.mortonBBuf, o.indicesBBuf
			keysOut, valsOut = o.mortonABuf, o.indicesABuf
		}

		o.histogramBGs[pass], err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge radix histogram",
			Layout: o.histogramPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: keysIn, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: o.radixHistBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: o.sortParamsBufs[pass], Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("histogram bind group pass %d: %w", pass, err)
		}

		o.scatterBGs[pass], err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge radix scatter",
			Layout: o.scatterPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: keysIn, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: valsIn, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: keysOut, Size: wgpu.WholeSize},
				{Binding: 3, Buffer: valsOut, Size: wgpu.WholeSize},
				{Binding: 4, Buffer: o.radixHistBuf, Size: wgpu.WholeSize},
				{Binding: 5, Buffer: o.sortParamsBufs[pass], Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("scatter bind group pass %d: %w", pass, err)
		}
	}

	o.clearCellsBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge clear cell table",
		Layout: o.clearCellsPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.cellStartBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.cellEndBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.spatialParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("clear cell table bind group: %w", err)
	}

	o.cellTableBG, err = o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "particleforge cell table",
		Layout: o.cellTablePipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.mortonABuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.cellStartBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.cellEndBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.spatialParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("cell table bind group: %w", err)
	}

	return nil
}

// runSpatialIndexPasses rebuilds the Morton-sorted neighbor index:
// write codes, radix-sort by 4-bit digit over an even number of
// passes (histogram cleared and prefix-summed inside each pass), then
// reset and derive the per-cell start/end table.
func (o *Orchestrator) runSpatialIndexPasses(encoder *wgpu.CommandEncoder) error {
	wg := workgroupsFor1D(o.numParticles)

	mortonPass := encoder.BeginComputePass(nil)
	mortonPass.SetPipeline(o.mortonPipeline)
	mortonPass.SetBindGroup(0, o.mortonBG, nil)
	mortonPass.DispatchWorkgroups(wg, 1, 1)
	if err := mortonPass.End(); err != nil {
		return fmt.Errorf("gpu: morton pass: %w", err)
	}

	for pass := range o.histogramBGs {
		clearPass := encoder.BeginComputePass(nil)
		clearPass.SetPipeline(o.clearHistPipeline)
		clearPass.SetBindGroup(0, o.clearHistBG, nil)
		clearPass.DispatchWorkgroups(1, 1, 1)
		if err := clearPass.End(); err != nil {
			return fmt.Errorf("gpu: clear histogram pass %d: %w", pass, err)
		}

		histPass := encoder.BeginComputePass(nil)
		histPass.SetPipeline(o.histogramPipeline)
		histPass.SetBindGroup(0, o.histogramBGs[pass], nil)
		histPass.DispatchWorkgroups(wg, 1, 1)
		if err := histPass.End(); err != nil {
			return fmt.Errorf("gpu: radix histogram pass %d: %w", pass, err)
		}

		prefixPass := encoder.BeginComputePass(nil)
		prefixPass.SetPipeline(o.prefixSumPipeline)
		prefixPass.SetBindGroup(0, o.prefixSumBG, nil)
		prefixPass.DispatchWorkgroups(1, 1, 1)
		if err := prefixPass.End(); err != nil {
			return fmt.Errorf("gpu: radix prefix-sum pass %d: %w", pass, err)
		}

		scatterPass := encoder.BeginComputePass(nil)
		scatterPass.SetPipeline(o.scatterPipeline)
		scatterPass.SetBindGroup(0, o.scatterBGs[pass], nil)
		scatterPass.DispatchWorkgroups(wg, 1, 1)
		if err := scatterPass.End(); err != nil {
			return fmt.Errorf("gpu: radix scatter pass %d: %w", pass, err)
		}
	}

	cellWG := workgroupsFor1D(o.cfg.Spatial.TotalCells())
	clearCellsPass := encoder.BeginComputePass(nil)
	clearCellsPass.SetPipeline(o.clearCellsPipeline)
	clearCellsPass.SetBindGroup(0, o.clearCellsBG, nil)
	clearCellsPass.DispatchWorkgroups(cellWG, 1, 1)
	if err := clearCellsPass.End(); err != nil {
		return fmt.Errorf("gpu: clear cell table pass: %w", err)
	}

	cellPass := encoder.BeginComputePass(nil)
	cellPass.SetPipeline(o.cellTablePipeline)
	cellPass.SetBindGroup(0, o.cellTableBG, nil)
	cellPass.DispatchWorkgroups(wg, 1, 1)
	if err := cellPass.End(); err != nil {
		return fmt.Errorf("gpu: cell table pass: %w", err)
	}

	return nil
}
