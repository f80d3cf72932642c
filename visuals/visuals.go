// Package visuals implements rendering configuration: particle
// shapes, color palettes, blend modes, and auxiliary render options,
// kept separate from the behavioral rules that drive motion.
package visuals

import "github.com/go-gl/mathgl/mgl32"

// Palette is a pre-defined 5-stop color gradient sampled by a
// ColorMapping to auto-color particles.
type Palette int

const (
	PaletteNone Palette = iota
	PaletteViridis
	PaletteMagma
	PalettePlasma
	PaletteInferno
	PaletteRainbow
	PaletteSunset
	PaletteOcean
	PaletteFire
	PaletteIce
	PaletteNeon
	PaletteForest
	PaletteGrayscale
)

// Colors returns the 5 color stops for a palette.
func (p Palette) Colors() [5]mgl32.Vec3 {
	switch p {
	case PaletteViridis:
		return [5]mgl32.Vec3{{0.267, 0.004, 0.329}, {0.282, 0.140, 0.458}, {0.127, 0.566, 0.551}, {0.369, 0.789, 0.383}, {0.993, 0.906, 0.144}}
	case PaletteMagma:
		return [5]mgl32.Vec3{{0.001, 0.0, 0.014}, {0.329, 0.071, 0.435}, {0.716, 0.215, 0.475}, {0.994, 0.541, 0.380}, {0.987, 0.991, 0.749}}
	case PalettePlasma:
		return [5]mgl32.Vec3{{0.050, 0.030, 0.528}, {0.494, 0.012, 0.658}, {0.798, 0.280, 0.470}, {0.973, 0.580, 0.254}, {0.940, 0.975, 0.131}}
	case PaletteInferno:
		return [5]mgl32.Vec3{{0.001, 0.0, 0.014}, {0.341, 0.063, 0.429}, {0.735, 0.216, 0.330}, {0.988, 0.645, 0.198}, {0.988, 1.0, 0.644}}
	case PaletteRainbow:
		return [5]mgl32.Vec3{{1.0, 0.0, 0.0}, {1.0, 1.0, 0.0}, {0.0, 1.0, 0.0}, {0.0, 1.0, 1.0}, {0.5, 0.0, 1.0}}
	case PaletteSunset:
		return [5]mgl32.Vec3{{0.1, 0.0, 0.2}, {0.5, 0.0, 0.5}, {1.0, 0.2, 0.4}, {1.0, 0.5, 0.2}, {1.0, 0.9, 0.4}}
	case PaletteOcean:
		return [5]mgl32.Vec3{{0.0, 0.05, 0.15}, {0.0, 0.2, 0.4}, {0.0, 0.4, 0.6}, {0.2, 0.6, 0.8}, {0.6, 0.9, 1.0}}
	case PaletteFire:
		return [5]mgl32.Vec3{{0.1, 0.0, 0.0}, {0.5, 0.0, 0.0}, {1.0, 0.3, 0.0}, {1.0, 0.7, 0.0}, {1.0, 1.0, 0.8}}
	case PaletteIce:
		return [5]mgl32.Vec3{{1.0, 1.0, 1.0}, {0.8, 0.9, 1.0}, {0.4, 0.7, 1.0}, {0.1, 0.4, 0.8}, {0.0, 0.1, 0.4}}
	case PaletteNeon:
		return [5]mgl32.Vec3{{1.0, 0.0, 0.5}, {0.5, 0.0, 1.0}, {0.0, 0.5, 1.0}, {0.0, 1.0, 1.0}, {0.5, 1.0, 0.5}}
	case PaletteForest:
		return [5]mgl32.Vec3{{0.1, 0.05, 0.0}, {0.3, 0.15, 0.05}, {0.2, 0.4, 0.1}, {0.3, 0.6, 0.2}, {0.5, 0.8, 0.3}}
	case PaletteGrayscale:
		return [5]mgl32.Vec3{{0, 0, 0}, {0.25, 0.25, 0.25}, {0.5, 0.5, 0.5}, {0.75, 0.75, 0.75}, {1, 1, 1}}
	default:
		return [5]mgl32.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}
	}
}

// MappingKind selects which particle property drives palette sampling.
type MappingKind int

const (
	MapNone MappingKind = iota
	MapIndex
	MapSpeed
	MapAge
	MapPositionY
	MapDistance
	MapRandom
)

// ColorMapping pairs a mapping kind with its range parameters.
type ColorMapping struct {
	Kind      MappingKind
	Min       float32 // Speed, PositionY
	Max       float32 // Speed, PositionY
	MaxAge    float32 // Age
	MaxDist   float32 // Distance
}

// BlendMode controls how rendered particle fragments combine with
// the background and with each other.
type BlendMode int

const (
	BlendAlpha BlendMode = iota
	BlendAdditive
	BlendMultiply
)

// BlendFactors are the wgpu (srcFactor, dstFactor) pair matching a
// BlendMode, for both the color and alpha blend components.
type BlendFactors struct {
	SrcFactor string
	DstFactor string
	Operation string
}

// ToWGPUBlend maps a BlendMode to the wgpu blend-state factor pair.
func (b BlendMode) ToWGPUBlend() BlendFactors {
	switch b {
	case BlendAdditive:
		return BlendFactors{SrcFactor: "SrcAlpha", DstFactor: "One", Operation: "Add"}
	case BlendMultiply:
		return BlendFactors{SrcFactor: "Dst", DstFactor: "Zero", Operation: "Add"}
	default:
		return BlendFactors{SrcFactor: "SrcAlpha", DstFactor: "OneMinusSrcAlpha", Operation: "Add"}
	}
}

// Shape selects the particle's rendered silhouette.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeCircleHard
	ShapeSquare
	ShapeRing
	ShapeStar
	ShapeTriangle
	ShapeHexagon
	ShapeDiamond
	ShapePoint
)

// ToWGSLFragment returns the fragment shader body for this shape. The
// body reads in.uv (vec2 in [-1,1]) and in.color (vec3) and returns a
// vec4 RGBA color.
func (s Shape) ToWGSLFragment() string {
	switch s {
	case ShapeCircle:
		return `    let dist = length(in.uv);
    if dist > 1.0 {
        discard;
    }
    let alpha = 1.0 - smoothstep(0.5, 1.0, dist);
    return vec4<f32>(in.color, alpha);`
	case ShapeCircleHard:
		return `    let dist = length(in.uv);
    if dist > 1.0 {
        discard;
    }
    return vec4<f32>(in.color, 1.0);`
	case ShapeSquare:
		return `    return vec4<f32>(in.color, 1.0);`
	case ShapeRing:
		return `    let dist = length(in.uv);
    if dist > 1.0 || dist < 0.6 {
        discard;
    }
    let alpha = 1.0 - smoothstep(0.85, 1.0, dist);
    return vec4<f32>(in.color, alpha);`
	case ShapeStar:
		return `    // 5-pointed star using polar coordinates
    let angle = atan2(in.uv.y, in.uv.x);
    let dist = length(in.uv);

    let points = 5.0;
    let star_angle = angle + 3.14159 / 2.0;
    let star_factor = cos(star_angle * points) * 0.4 + 0.6;

    if dist > star_factor {
        discard;
    }
    return vec4<f32>(in.color, 1.0);`
	case ShapeTriangle:
		return `    let p = in.uv;

    if p.y < -0.6 {
        discard;
    }

    let left = 1.4 * p.x - 0.8 * p.y + 0.64;
    if left < 0.0 {
        discard;
    }

    let right = -1.4 * p.x - 0.8 * p.y + 0.64;
    if right < 0.0 {
        discard;
    }

    return vec4<f32>(in.color, 1.0);`
	case ShapeHexagon:
		return `    let p = abs(in.uv);
    let hex_dist = max(p.x * 0.866025 + p.y * 0.5, p.y);

    if hex_dist > 0.9 {
        discard;
    }
    return vec4<f32>(in.color, 1.0);`
	case ShapeDiamond:
		return `    let dist = abs(in.uv.x) + abs(in.uv.y);
    if dist > 1.0 {
        discard;
    }
    return vec4<f32>(in.color, 1.0);`
	case ShapePoint:
		return `    // Single pixel - no shape calculation needed
    return vec4<f32>(in.color, 1.0);`
	default:
		return `    return vec4<f32>(in.color, 1.0);`
	}
}

// WireframeMesh is a set of line segments, in local [-1, 1] space,
// instanced at every live particle when wireframe rendering is on.
// Lines holds segment endpoints as consecutive pairs.
type WireframeMesh struct {
	Lines         []mgl32.Vec3
	LineThickness float32
}

// LineCount returns the number of segments in the mesh.
func (m WireframeMesh) LineCount() uint32 { return uint32(len(m.Lines) / 2) }

// CubeMesh returns the 12 edges of a unit cube centered on the origin.
func CubeMesh() WireframeMesh {
	c := []mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, -1, -1}, {1, -1, 1},
		{1, -1, 1}, {-1, -1, 1}, {-1, -1, 1}, {-1, -1, -1},
		{-1, 1, -1}, {1, 1, -1}, {1, 1, -1}, {1, 1, 1},
		{1, 1, 1}, {-1, 1, 1}, {-1, 1, 1}, {-1, 1, -1},
		{-1, -1, -1}, {-1, 1, -1}, {1, -1, -1}, {1, 1, -1},
		{1, -1, 1}, {1, 1, 1}, {-1, -1, 1}, {-1, 1, 1},
	}
	return WireframeMesh{Lines: c, LineThickness: 0.003}
}

// TetrahedronMesh returns the 6 edges of a regular tetrahedron.
func TetrahedronMesh() WireframeMesh {
	v := [4]mgl32.Vec3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	lines := []mgl32.Vec3{
		v[0], v[1], v[0], v[2], v[0], v[3],
		v[1], v[2], v[1], v[3], v[2], v[3],
	}
	return WireframeMesh{Lines: lines, LineThickness: 0.003}
}

// OctahedronMesh returns the 12 edges of a regular octahedron.
func OctahedronMesh() WireframeMesh {
	v := [6]mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	lines := []mgl32.Vec3{
		v[0], v[2], v[0], v[3], v[0], v[4], v[0], v[5],
		v[1], v[2], v[1], v[3], v[1], v[4], v[1], v[5],
		v[2], v[4], v[4], v[3], v[3], v[5], v[5], v[2],
	}
	return WireframeMesh{Lines: lines, LineThickness: 0.003}
}

// VolumeConfig selects a registered field for raymarched volume
// rendering, drawn before all other passes with additive blending.
type VolumeConfig struct {
	FieldName    string
	Steps        uint32
	DensityScale float32
	Threshold    float32
	Palette      Palette
}

// DefaultVolumeConfig mirrors the reference defaults: 64 march steps,
// inferno palette, faint-density cutoff.
func DefaultVolumeConfig(fieldName string) VolumeConfig {
	return VolumeConfig{
		FieldName:    fieldName,
		Steps:        64,
		DensityScale: 5.0,
		Threshold:    0.01,
		Palette:      PaletteInferno,
	}
}

// Config aggregates all rendering options for a simulation, built
// through its fluent setters.
type Config struct {
	BlendMode             BlendMode
	Shape                 Shape
	TrailLength           uint32
	ConnectionsEnabled    bool
	ConnectionsRadius     float32
	ConnectionColor       mgl32.Vec3
	VelocityStretch       bool
	VelocityStretchFactor float32
	Palette               Palette
	ColorMapping          ColorMapping
	BackgroundColor       mgl32.Vec3
	PostProcessShader     string
	SpatialGridOpacity    float32
	Wireframe             *WireframeMesh
	Volume                *VolumeConfig
}

// NewConfig returns the default visual configuration.
func NewConfig() *Config {
	return &Config{
		BlendMode:             BlendAlpha,
		Shape:                 ShapeCircle,
		ConnectionsRadius:     0.1,
		ConnectionColor:       mgl32.Vec3{0.5, 0.7, 1.0},
		VelocityStretchFactor: 2.0,
		BackgroundColor:       mgl32.Vec3{0.02, 0.02, 0.05},
	}
}

func (c *Config) WithBlendMode(m BlendMode) *Config { c.BlendMode = m; return c }
func (c *Config) WithShape(s Shape) *Config         { c.Shape = s; return c }

func (c *Config) WithTrails(length uint32) *Config {
	c.TrailLength = length
	return c
}

func (c *Config) WithConnections(radius float32) *Config {
	c.ConnectionsEnabled = true
	c.ConnectionsRadius = radius
	return c
}

func (c *Config) WithVelocityStretch(maxFactor float32) *Config {
	c.VelocityStretch = true
	c.VelocityStretchFactor = maxFactor
	return c
}

func (c *Config) WithPalette(p Palette, mapping ColorMapping) *Config {
	c.Palette = p
	c.ColorMapping = mapping
	return c
}

func (c *Config) WithBackground(color mgl32.Vec3) *Config {
	c.BackgroundColor = color
	return c
}

func (c *Config) WithSpatialGrid(opacity float32) *Config {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.SpatialGridOpacity = opacity
	return c
}

func (c *Config) WithConnectionColor(color mgl32.Vec3) *Config {
	c.ConnectionColor = color
	return c
}

// WithWireframe replaces billboard rendering with per-particle
// instanced line meshes.
func (c *Config) WithWireframe(mesh WireframeMesh) *Config {
	m := mesh
	if m.LineThickness <= 0 {
		m.LineThickness = 0.003
	}
	c.Wireframe = &m
	return c
}

// WithVolume enables raymarched volume rendering of a registered
// field, drawn behind all particle passes.
func (c *Config) WithVolume(v VolumeConfig) *Config {
	if v.Steps == 0 {
		v.Steps = 64
	}
	if v.DensityScale <= 0 {
		v.DensityScale = 5.0
	}
	c.Volume = &v
	return c
}

func (c *Config) WithPostProcess(wgsl string) *Config {
	c.PostProcessShader = wgsl
	return c
}
