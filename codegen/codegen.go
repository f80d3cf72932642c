// Package codegen is the shader synthesis core: it consumes the
// aggregate declarative configuration (schema, rules, emitters,
// fields, interactions, sub-emitters, uniforms, textures, visuals,
// spatial config) and emits the compute and render WGSL sources plus
// the auxiliary shaders, deterministically and byte-for-byte
// repeatably for identical input.
package codegen

import (
	"fmt"
	"strings"

	"particleforge/emitters"
	"particleforge/fields"
	"particleforge/interactions"
	"particleforge/rules"
	"particleforge/schema"
	"particleforge/spatial"
	"particleforge/subemitter"
	"particleforge/textures"
	"particleforge/uniforms"
	"particleforge/visuals"
)

// Config aggregates every declarative input shader synthesis needs.
// Zero-value fields (nil Fields, empty Rules, etc.) are all valid and
// produce a minimal but complete shader pair.
type Config struct {
	Layout       *schema.ParticleLayout
	Rules        []rules.Rule
	Emitters     []emitters.Emitter
	Fields       *fields.Registry
	Interactions *interactions.Matrix
	SubEmitters  []subemitter.SubEmitter
	Uniforms     *uniforms.CustomUniforms
	Textures     *textures.Registry
	Visuals      *visuals.Config
	Spatial      spatial.Config

	Bounds       float32
	ParticleSize float32

	// CustomFunctions are whole WGSL function definitions appended
	// verbatim, in declaration order, before the entry point.
	CustomFunctions []string

	// MouseUniforms, if true, adds the optional mouse block
	// (ray_origin/ray_dir/down,radius,strength/color) to Uniforms.
	MouseUniforms bool

	// CustomFragmentBody, if non-empty, replaces the shape-template
	// fragment body entirely; at most one may be set.
	CustomFragmentBody string
}

// Output holds every WGSL source synthesized for one configuration.
type Output struct {
	Compute     string
	Render      string
	SpawnKernel string

	FieldMerge     string
	FieldBlurDecay string
	FieldClear     string

	ComputeMorton  string
	RadixHistogram string
	PrefixSum      string
	RadixScatter   string
	BuildCellTable string
	ClearHistogram string
	ClearCellTable string

	ConnectionCompute string
	ConnectionRender  string
	TrailCompute      string
	TrailRender       string
	GridOverlay       string
	VolumeRender      string
	Wireframe         string
	PostProcess       string
}

// RequiresNeighbors reports whether any rule, the interaction matrix,
// or the connection-line finder needs the spatial index built this
// frame.
func (c Config) RequiresNeighbors() bool {
	for _, r := range c.Rules {
		if r.RequiresNeighbors() {
			return true
		}
	}
	if c.Interactions != nil && c.Interactions.NumTypes() > 0 {
		return true
	}
	return c.Visuals != nil && c.Visuals.ConnectionsEnabled
}

// Build runs the deterministic text-level transform: the same Config
// always yields byte-identical shader text.
func Build(cfg Config) (*Output, error) {
	if cfg.Layout == nil {
		return nil, fmt.Errorf("codegen: Config.Layout is required")
	}
	if cfg.Visuals != nil && cfg.Visuals.Volume != nil {
		name := cfg.Visuals.Volume.FieldName
		if cfg.Fields == nil {
			return nil, fmt.Errorf("codegen: volume rendering references field %q but no fields are registered", name)
		}
		if _, ok := cfg.Fields.IndexOf(name); !ok {
			return nil, fmt.Errorf("codegen: volume rendering references unregistered field %q", name)
		}
	}

	out := &Output{
		Compute: buildComputeShader(cfg),
		Render:  buildRenderShader(cfg),
	}

	if len(cfg.SubEmitters) > 0 {
		out.SpawnKernel = subemitter.GenerateSpawnShader(cfg.Layout.WGSLStruct(), cfg.SubEmitters)
	}

	if cfg.Fields != nil && cfg.Fields.Len() > 0 {
		out.FieldMerge = fields.MergeShader
		out.FieldBlurDecay = fields.BlurDecayShader
		out.FieldClear = fields.ClearShader
	}

	if cfg.RequiresNeighbors() {
		out.ComputeMorton = cfg.Layout.WGSLStruct() + "\n" + spatial.MortonWGSL + spatial.ComputeMortonWGSL
		out.RadixHistogram = spatial.RadixHistogramWGSL
		out.PrefixSum = spatial.PrefixSumWGSL
		out.RadixScatter = spatial.RadixScatterWGSL
		out.BuildCellTable = spatial.BuildCellTableWGSL
		out.ClearHistogram = spatial.ClearHistogramWGSL
		out.ClearCellTable = spatial.ClearCellTableWGSL
	}

	buildAuxiliaryShaders(cfg, out)

	if err := Validate(out.Compute); err != nil {
		return nil, fmt.Errorf("codegen: compute shader failed pre-validation: %w", err)
	}
	if err := Validate(out.Render); err != nil {
		return nil, fmt.Errorf("codegen: render shader failed pre-validation: %w", err)
	}

	return out, nil
}

// Validate performs an offline structural pre-check before any
// pipeline is built from generated text. It is not a full WGSL parser;
// it catches the classes of templating bug codegen can actually
// produce: unbalanced braces or parens from a malformed fmt.Sprintf
// substitution (counted outside `//` line comments), and an empty
// source.
func Validate(src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("empty shader source")
	}
	if n := balance(src, '{', '}'); n != 0 {
		return fmt.Errorf("unbalanced braces (delta %d)", n)
	}
	if n := balance(src, '(', ')'); n != 0 {
		return fmt.Errorf("unbalanced parentheses (delta %d)", n)
	}
	if !strings.Contains(src, "@compute") && !strings.Contains(src, "@vertex") {
		return fmt.Errorf("shader declares no entry point")
	}
	return nil
}

func balance(src string, open, close rune) int {
	depth := 0
	for _, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		for _, r := range line {
			switch r {
			case open:
				depth++
			case close:
				depth--
			}
		}
	}
	return depth
}
