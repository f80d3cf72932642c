package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"particleforge/codegen"
)

// ensureBuffer grows *buf geometrically (1.5x) to hold size bytes,
// never shrinking and never replacing a buffer that is already big
// enough. CopySrc/CopyDst are always added so resize copies and
// plain queue writes both work without a second descriptor.
func (o *Orchestrator) ensureBuffer(name string, buf **wgpu.Buffer, size uint64, usage wgpu.BufferUsage) error {
	if size%4 != 0 {
		size += 4 - (size % 4)
	}

	current := *buf
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	if current != nil && current.GetSize() >= size {
		return nil
	}

	newSize := size
	if current != nil {
		grown := uint64(float64(current.GetSize()) * 1.5)
		if grown > newSize {
			newSize = grown
		}
	}
	if newSize > SafeBufferSizeLimit {
		return fmt.Errorf("gpu: buffer %s requested size %d exceeds safety limit %d", name, newSize, uint64(SafeBufferSizeLimit))
	}

	newBuf, err := o.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            name,
		Size:             newSize,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("gpu: create buffer %s: %w", name, err)
	}

	*buf = newBuf
	return nil
}

// ensureBuffers (re)allocates every buffer whose size depends on
// maxParticles, spatial grid resolution, or field resolution. It is
// idempotent: calling it twice with the same inputs touches nothing.
func (o *Orchestrator) ensureBuffers(out *codegen.Output, cfg codegen.Config, maxParticles uint32) error {
	stride := uint64(o.Layout.Stride)
	particleBytes := stride*uint64(maxParticles) + HeadroomParticles

	if err := o.ensureBuffer("particles", &o.particleBuf, particleBytes,
		wgpu.BufferUsageStorage); err != nil {
		return err
	}

	if err := o.ensureBuffer("uniforms", &o.uniformBuf, 512,
		wgpu.BufferUsageUniform); err != nil {
		return err
	}

	if out.ComputeMorton != "" {
		n := uint64(maxParticles)
		if err := o.ensureBuffer("morton_a", &o.mortonABuf, n*4, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("morton_b", &o.mortonBBuf, n*4, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("indices_a", &o.indicesABuf, n*4, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("indices_b", &o.indicesBBuf, n*4, wgpu.BufferUsageStorage); err != nil {
			return err
		}

		cellBytes := uint64(cfg.Spatial.TotalCells()) * 4
		if err := o.ensureBuffer("cell_start", &o.cellStartBuf, cellBytes, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("cell_end", &o.cellEndBuf, cellBytes, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("spatial_params", &o.spatialParamsBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}
		if err := o.ensureBuffer("radix_histogram", &o.radixHistBuf, 16*4, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("prefix_count", &o.prefixCountBuf, 16, wgpu.BufferUsageUniform); err != nil {
			return err
		}

		passes := cfg.Spatial.RadixPassCount()
		if len(o.sortParamsBufs) < passes {
			o.sortParamsBufs = append(o.sortParamsBufs, make([]*wgpu.Buffer, passes-len(o.sortParamsBufs))...)
		}
		for pass := 0; pass < passes; pass++ {
			if err := o.ensureBuffer("sort_params", &o.sortParamsBufs[pass], 16, wgpu.BufferUsageUniform); err != nil {
				return err
			}
		}
	}

	if out.SpawnKernel != "" {
		const deathEventSize = 48 // position vec3+parent_type, velocity vec3+pad, color vec3+pad
		if err := o.ensureBuffer("death_buffer", &o.deathBuf, deathEventSize*subemitterMaxDeathEvents, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("death_count", &o.deathCountBuf, 16, wgpu.BufferUsageStorage); err != nil {
			return err
		}
		if err := o.ensureBuffer("next_child_slot", &o.nextChildSlot, 16, wgpu.BufferUsageStorage); err != nil {
			return err
		}
	}

	return nil
}

// subemitterMaxDeathEvents mirrors subemitter.MaxDeathEvents; kept as
// a local constant so this package does not need to import
// subemitter purely for a buffer-sizing literal.
const subemitterMaxDeathEvents = 4096

// WriteUniforms uploads packed uniform bytes via the queue, resizing
// the uniform buffer first if the caller's custom-uniform block grew
// it past the current allocation.
func (o *Orchestrator) WriteUniforms(data []byte) error {
	if err := o.ensureBuffer("uniforms", &o.uniformBuf, uint64(len(data)), wgpu.BufferUsageUniform); err != nil {
		return err
	}
	o.Queue.WriteBuffer(o.uniformBuf, 0, data)
	return nil
}

// WriteParticles uploads an initial or reseeded particle buffer.
func (o *Orchestrator) WriteParticles(data []byte) error {
	o.Queue.WriteBuffer(o.particleBuf, 0, data)
	return nil
}

// WriteParticleAt overwrites a single particle slot's raw bytes
// ahead of this frame's compute dispatch; len(data) must equal the
// layout's stride.
func (o *Orchestrator) WriteParticleAt(index uint32, data []byte) error {
	stride := uint64(o.Layout.Stride)
	if uint64(len(data)) != stride {
		return fmt.Errorf("gpu: particle write length %d does not match stride %d", len(data), stride)
	}
	if uint64(index) >= uint64(o.maxParticles) {
		return fmt.Errorf("gpu: particle index %d exceeds capacity %d", index, o.maxParticles)
	}
	o.Queue.WriteBuffer(o.particleBuf, uint64(index)*stride, data)
	return nil
}

// ClearDeathCounters zeroes the death-event and child-slot atomics at
// the start of every frame so stale counts from the previous frame
// never leak into this one.
func (o *Orchestrator) ClearDeathCounters() {
	if o.deathCountBuf == nil {
		return
	}
	zero := make([]byte, 16)
	o.Queue.WriteBuffer(o.deathCountBuf, 0, zero)
	o.Queue.WriteBuffer(o.nextChildSlot, 0, zero)
}
