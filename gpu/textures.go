package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"particleforge/textures"
)

// textureResource is one uploaded texture-plus-sampler pair bound into
// the render shader's group 1.
type textureResource struct {
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// uploadTextures creates and writes a GPU texture for every entry in
// reg, in registration order, the same order textures.Registry.
// ToWGSLDeclarations assigns bindings in.
func (o *Orchestrator) uploadTextures(reg *textures.Registry) error {
	o.textureResources = o.textureResources[:0]
	if reg == nil {
		return nil
	}

	for _, nc := range reg.All() {
		tex, err := o.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "particleforge texture " + nc.Name,
			Size: wgpu.Extent3D{
				Width:              nc.Config.Width,
				Height:             nc.Config.Height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatRGBA8Unorm,
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: create texture %q: %w", nc.Name, err)
		}

		o.Queue.WriteTexture(
			&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: wgpu.TextureAspectAll},
			nc.Config.Data,
			&wgpu.TextureDataLayout{BytesPerRow: nc.Config.Width * 4, RowsPerImage: nc.Config.Height},
			&wgpu.Extent3D{Width: nc.Config.Width, Height: nc.Config.Height, DepthOrArrayLayers: 1},
		)

		view, err := tex.CreateView(nil)
		if err != nil {
			return fmt.Errorf("gpu: create texture view %q: %w", nc.Name, err)
		}

		sampler, err := o.Device.CreateSampler(&wgpu.SamplerDescriptor{
			AddressModeU: wgpuAddressMode(nc.Config.AddressMode),
			AddressModeV: wgpuAddressMode(nc.Config.AddressMode),
			AddressModeW: wgpu.AddressModeClampToEdge,
			MagFilter:    wgpuFilterMode(nc.Config.Filter),
			MinFilter:    wgpuFilterMode(nc.Config.Filter),
			MipmapFilter: wgpu.MipmapFilterModeNearest,
			LodMinClamp:  0,
			LodMaxClamp:  1,
			Compare:      wgpu.CompareFunctionUndefined,
		})
		if err != nil {
			return fmt.Errorf("gpu: create sampler %q: %w", nc.Name, err)
		}

		o.textureResources = append(o.textureResources, textureResource{tex: tex, view: view, sampler: sampler})
	}
	return nil
}

func wgpuAddressMode(m textures.AddressMode) wgpu.AddressMode {
	switch m {
	case textures.Repeat:
		return wgpu.AddressModeRepeat
	case textures.MirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func wgpuFilterMode(m textures.FilterMode) wgpu.FilterMode {
	if m == textures.Nearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

// buildRenderBindGroup1 wires every uploaded texture/sampler pair into
// group 1 of the render pipeline, in the same order codegen assigned
// them bindings.
func (o *Orchestrator) buildRenderBindGroup1() error {
	if len(o.textureResources) == 0 {
		o.renderBG1 = nil
		return nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(o.textureResources)*2)
	binding := uint32(0)
	for _, tr := range o.textureResources {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: binding, TextureView: tr.view},
			wgpu.BindGroupEntry{Binding: binding + 1, Sampler: tr.sampler},
		)
		binding += 2
	}

	bg, err := o.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "particleforge render bg1 (textures)",
		Layout:  o.renderPipeline.GetBindGroupLayout(1),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: render bind group 1: %w", err)
	}
	o.renderBG1 = bg
	return nil
}
