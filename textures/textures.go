// Package textures implements the texture registry: procedurally
// generated or caller-supplied RGBA8 images bound into group 1 of the
// render/fragment shaders as `tex_<name>` / `tex_<name>_sampler` pairs.
package textures

import "fmt"

// FilterMode selects how a texture is sampled between texels.
type FilterMode int

const (
	Linear FilterMode = iota
	Nearest
)

// AddressMode selects how out-of-range UV coordinates are resolved.
type AddressMode int

const (
	ClampToEdge AddressMode = iota
	Repeat
	MirrorRepeat
)

// Config describes a single texture: its raw RGBA8 pixels and how it
// should be sampled.
type Config struct {
	Data        []byte
	Width       uint32
	Height      uint32
	Filter      FilterMode
	AddressMode AddressMode
}

// FromRGBA builds a texture config from raw RGBA8 pixel data.
func FromRGBA(data []byte, width, height uint32) (Config, error) {
	if uint32(len(data)) != width*height*4 {
		return Config{}, fmt.Errorf("textures: RGBA data size mismatch: got %d bytes, want %d for %dx%d", len(data), width*height*4, width, height)
	}
	return Config{Data: data, Width: width, Height: height, Filter: Linear, AddressMode: ClampToEdge}, nil
}

// WithFilter returns a copy of cfg with its filter mode changed.
func (cfg Config) WithFilter(f FilterMode) Config {
	cfg.Filter = f
	return cfg
}

// WithAddressMode returns a copy of cfg with its address mode changed.
func (cfg Config) WithAddressMode(m AddressMode) Config {
	cfg.AddressMode = m
	return cfg
}

// Solid builds a 1x1 texture of a single color.
func Solid(r, g, b, a byte) Config {
	return Config{Data: []byte{r, g, b, a}, Width: 1, Height: 1, Filter: Nearest, AddressMode: ClampToEdge}
}

// Gradient builds a width-wide, 1px-tall horizontal gradient between
// two RGBA colors.
func Gradient(width uint32, start, end [4]byte) Config {
	data := make([]byte, 0, width*4)
	denom := width - 1
	if denom == 0 {
		denom = 1
	}
	for x := uint32(0); x < width; x++ {
		t := float32(x) / float32(denom)
		for c := 0; c < 4; c++ {
			data = append(data, lerpU8(start[c], end[c], t))
		}
	}
	return Config{Data: data, Width: width, Height: 1, Filter: Linear, AddressMode: ClampToEdge}
}

// Checkerboard builds a size x size checker pattern of two colors,
// each checker cellSize pixels wide.
func Checkerboard(size, cellSize uint32, color1, color2 [4]byte) Config {
	data := make([]byte, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			cx, cy := x/cellSize, y/cellSize
			color := color1
			if (cx+cy)%2 != 0 {
				color = color2
			}
			data = append(data, color[0], color[1], color[2], color[3])
		}
	}
	return Config{Data: data, Width: size, Height: size, Filter: Nearest, AddressMode: Repeat}
}

// Noise builds a size x size grayscale noise texture from a
// deterministic integer hash, seeded for reproducibility.
func Noise(size, seed uint32) Config {
	data := make([]byte, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			v := hashNoise(x, y, seed)
			data = append(data, v, v, v, 255)
		}
	}
	return Config{Data: data, Width: size, Height: size, Filter: Linear, AddressMode: Repeat}
}

func lerpU8(a, b byte, t float32) byte {
	af, bf := float32(a), float32(b)
	return byte(af + (bf-af)*t + 0.5)
}

func hashNoise(x, y, seed uint32) byte {
	n := x*374761393 + y*668265263 + seed*1013904223
	n = (n ^ (n >> 13)) * 1274126177
	n = n ^ (n >> 16)
	return byte(n & 255)
}

type namedConfig struct {
	name   string
	config Config
}

// Registry holds every texture a simulation declares, in registration
// order; that order determines binding assignment.
type Registry struct {
	textures []namedConfig
}

// NewRegistry creates an empty texture registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a named texture.
func (r *Registry) Add(name string, config Config) {
	r.textures = append(r.textures, namedConfig{name: name, config: config})
}

// Len reports how many textures are registered.
func (r *Registry) Len() int { return len(r.textures) }

// All returns the registered (name, config) pairs in binding order.
func (r *Registry) All() []struct {
	Name   string
	Config Config
} {
	out := make([]struct {
		Name   string
		Config Config
	}, len(r.textures))
	for i, nc := range r.textures {
		out[i] = struct {
			Name   string
			Config Config
		}{Name: nc.name, Config: nc.config}
	}
	return out
}

// ToWGSLDeclarations emits group(1) texture/sampler binding pairs
// starting at startBinding, growing by 2 per texture.
func (r *Registry) ToWGSLDeclarations(startBinding uint32) string {
	var code string
	binding := startBinding
	for _, nc := range r.textures {
		code += fmt.Sprintf("@group(1) @binding(%d)\nvar tex_%s: texture_2d<f32>;\n", binding, nc.name)
		binding++
		code += fmt.Sprintf("@group(1) @binding(%d)\nvar tex_%s_sampler: sampler;\n", binding, nc.name)
		binding++
	}
	return code
}
