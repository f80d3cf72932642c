// Package shaders embeds the static WGSL text shared by every
// generated simulation: hash/noise/color helper functions and the
// fullscreen-triangle vertex stage used by the post-process pass.
package shaders

import (
	_ "embed"
	"fmt"
)

//go:embed wgsl/random.wgsl
var RandomWGSL string

//go:embed wgsl/noise.wgsl
var NoiseWGSL string

//go:embed wgsl/color.wgsl
var ColorWGSL string

//go:embed wgsl/fullscreen.wgsl
var FullscreenWGSL string

// BuiltinUtilsWGSL concatenates the hash, noise, and color helper
// libraries in the fixed order every generated compute shader embeds
// them in.
func BuiltinUtilsWGSL() string {
	return fmt.Sprintf("// Built-in utility functions\n%s\n%s\n%s\n", RandomWGSL, NoiseWGSL, ColorWGSL)
}
