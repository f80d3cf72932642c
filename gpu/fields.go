package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"particleforge/fields"
)

// fieldResource is the per-field GPU state the merge/blur-decay/clear
// kernels operate on: a fixed-point atomic write target the particle
// kernel deposits into, a float read target the particle kernel
// samples from, a scratch buffer the blur pass writes its output into
// before it is copied back over the read buffer, and the field's
// static Params uniform.
type fieldResource struct {
	writeBuf  *wgpu.Buffer
	readBuf   *wgpu.Buffer
	scratch   *wgpu.Buffer
	paramsBuf *wgpu.Buffer
	mergeBG   *wgpu.BindGroup
	blurBG    *wgpu.BindGroup
	clearBG   *wgpu.BindGroup
	byteSize  uint64
}

// allocateFields (re)allocates the write/read/scratch/params buffers
// for every registered field. Resolution, decay, and blur are fixed
// at registration time, so Params is written once here rather than
// every frame.
func (o *Orchestrator) allocateFields(reg *fields.Registry) error {
	o.fieldResources = o.fieldResources[:0]
	if reg == nil || reg.Len() == 0 {
		return nil
	}

	for _, cfg := range reg.All() {
		components := uint64(cfg.Components())
		cellCount := uint64(cfg.TotalCells()) * components
		byteSize := cellCount * 4

		writeBuf, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "field " + cfg.Name + " write",
			Size:  byteSize,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: allocate field %q write buffer: %w", cfg.Name, err)
		}
		readBuf, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "field " + cfg.Name + " read",
			Size:  byteSize,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("gpu: allocate field %q read buffer: %w", cfg.Name, err)
		}
		scratch, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "field " + cfg.Name + " scratch",
			Size:  byteSize,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("gpu: allocate field %q scratch buffer: %w", cfg.Name, err)
		}
		paramsBuf, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "field " + cfg.Name + " params",
			Size:  32,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: allocate field %q params buffer: %w", cfg.Name, err)
		}

		o.Queue.WriteBuffer(paramsBuf, 0, encodeFieldParams(cfg))

		o.fieldResources = append(o.fieldResources, fieldResource{
			writeBuf:  writeBuf,
			readBuf:   readBuf,
			scratch:   scratch,
			paramsBuf: paramsBuf,
			byteSize:  byteSize,
		})
	}
	return nil
}

// encodeFieldParams packs the Params struct every field kernel shares:
// resolution, total_cells, extent, decay, blur, field_type, then two
// padding floats to round the uniform to 32 bytes.
func encodeFieldParams(cfg fields.Config) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], cfg.Resolution)
	binary.LittleEndian.PutUint32(buf[4:8], cfg.TotalCells())
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(cfg.WorldExtent))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(cfg.Decay))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(cfg.Blur))
	fieldType := uint32(0)
	if cfg.Type == fields.Vector {
		fieldType = 1
	}
	binary.LittleEndian.PutUint32(buf[20:24], fieldType)
	return buf
}

// buildFieldBindGroups wires each field's buffers into the merge,
// blur/decay, and clear kernels' group 0, matching the bindings those
// standalone shader templates declare.
func (o *Orchestrator) buildFieldBindGroups() error {
	for i := range o.fieldResources {
		fr := &o.fieldResources[i]

		mergeBG, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge field merge",
			Layout: o.fieldMergePipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: fr.writeBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: fr.readBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: fr.paramsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: field merge bind group: %w", err)
		}
		fr.mergeBG = mergeBG

		blurBG, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge field blur",
			Layout: o.fieldBlurPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: fr.readBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: fr.scratch, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: fr.paramsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: field blur bind group: %w", err)
		}
		fr.blurBG = blurBG

		clearBG, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "particleforge field clear",
			Layout: o.fieldClearPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: fr.writeBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: fr.paramsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: field clear bind group: %w", err)
		}
		fr.clearBG = clearBG
	}
	return nil
}

// buildComputeBindGroup2 wires every field's read/write pair plus its
// shared params array into group 2 of the particle update kernel, in
// field-registration order, matching fields.Registry.ToWGSLDeclarations.
func (o *Orchestrator) buildComputeBindGroup2(reg *fields.Registry) error {
	if reg == nil || reg.Len() == 0 {
		o.computeBG2 = nil
		// Group 3 (sub-emitters) cannot be bound across an unbound
		// group index, so give group 2 an empty placeholder when the
		// kernel declares nothing in it.
		if o.spawnPipeline != nil {
			bg, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:   "particleforge compute bg2 (empty)",
				Layout:  o.particlePipeline.GetBindGroupLayout(2),
				Entries: []wgpu.BindGroupEntry{},
			})
			if err != nil {
				return fmt.Errorf("gpu: empty compute bind group 2: %w", err)
			}
			o.computeBG2 = bg
		}
		return nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(o.fieldResources)*2+1)
	binding := uint32(0)
	for _, fr := range o.fieldResources {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: binding, Buffer: fr.writeBuf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: binding + 1, Buffer: fr.readBuf, Size: wgpu.WholeSize},
		)
		binding += 2
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: binding, Buffer: o.fieldParamsArrayBuf, Size: wgpu.WholeSize})

	bg, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "particleforge compute bg2 (fields)",
		Layout:  o.particlePipeline.GetBindGroupLayout(2),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: compute bind group 2: %w", err)
	}
	o.computeBG2 = bg
	return nil
}

// ClearFieldBuffers zeroes every registered field's write and read
// buffers, used by Reset(ClearFields: true) to drop accumulated field
// state without a full Rebuild.
func (o *Orchestrator) ClearFieldBuffers() {
	for _, fr := range o.fieldResources {
		zero := make([]byte, fr.byteSize)
		o.Queue.WriteBuffer(fr.writeBuf, 0, zero)
		o.Queue.WriteBuffer(fr.readBuf, 0, zero)
	}
}

// writeFieldParamsArray packs every field's Params back-to-back into
// the single storage array field_params[] the particle kernel's
// field_read/field_write helpers index with field_idx.
func (o *Orchestrator) writeFieldParamsArray(reg *fields.Registry) error {
	if reg == nil || reg.Len() == 0 {
		return nil
	}
	all := reg.All()
	data := make([]byte, 0, len(all)*32)
	for _, cfg := range all {
		data = append(data, encodeFieldParams(cfg)...)
	}
	if err := o.ensureBuffer("field_params_array", &o.fieldParamsArrayBuf, uint64(len(data)), wgpu.BufferUsageStorage); err != nil {
		return err
	}
	o.Queue.WriteBuffer(o.fieldParamsArrayBuf, 0, data)
	return nil
}
