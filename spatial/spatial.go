// Package spatial implements the Morton-coded cubic grid spatial hash:
// configuration, pass-count derivation, and the static WGSL for Morton
// encoding, the LSD radix sort, cell-table build, and 27-cell neighbor
// iteration.
package spatial

import (
	"fmt"
	"math"
	"math/bits"
)

// Config is the spatial grid's tunables.
type Config struct {
	CellSize       float32
	GridResolution uint32
}

// DefaultConfig is a 64^3 grid with 0.1-unit cells.
func DefaultConfig() Config {
	return Config{CellSize: 0.1, GridResolution: 64}
}

// New validates and returns a grid config: resolution must be a power
// of two and at most 1024 (so three interleaved 10-bit axes fit a
// 30-bit Morton code).
func New(cellSize float32, gridResolution uint32) (Config, error) {
	if gridResolution == 0 || gridResolution&(gridResolution-1) != 0 {
		return Config{}, fmt.Errorf("spatial: grid resolution %d must be a power of two", gridResolution)
	}
	if gridResolution > 1024 {
		return Config{}, fmt.Errorf("spatial: grid resolution %d must be <= 1024 for 30-bit Morton codes", gridResolution)
	}
	return Config{CellSize: cellSize, GridResolution: gridResolution}, nil
}

// TotalCells returns resolution^3.
func (c Config) TotalCells() uint32 {
	return c.GridResolution * c.GridResolution * c.GridResolution
}

// RadixPassCount returns ceil(3*log2(resolution)/4) rounded up to an
// even count, so the final buffer swap always leaves sorted results in
// the "A" side the neighbor loop reads.
func (c Config) RadixPassCount() int {
	log2Res := bits.Len32(c.GridResolution) - 1
	passes := int(math.Ceil(float64(3*log2Res) / 4.0))
	if passes%2 != 0 {
		passes++
	}
	if passes == 0 {
		passes = 2
	}
	return passes
}

// CellCoord maps a world position to integer cell coordinates,
// clamped to [0, resolution-1] per axis. Mirrors pos_to_cell in the
// WGSL below, used by host-side tests and the CPU reference sorter.
func (c Config) CellCoord(x, y, z float32) (cx, cy, cz uint32) {
	half := float32(c.GridResolution) * c.CellSize * 0.5
	clampf := func(v float32) uint32 {
		n := (v + half) / c.CellSize
		if n < 0 {
			n = 0
		}
		max := float32(c.GridResolution - 1)
		if n > max {
			n = max
		}
		return uint32(n)
	}
	return clampf(x), clampf(y), clampf(z)
}

func expandBits(v uint32) uint32 {
	x := v & 0x000003FF
	x = (x | (x << 16)) & 0x030000FF
	x = (x | (x << 8)) & 0x0300F00F
	x = (x | (x << 4)) & 0x030C30C3
	x = (x | (x << 2)) & 0x09249249
	return x
}

// MortonEncode mirrors morton_encode in WGSL: interleaves 10-bit axes
// into a 30-bit Z-order key.
func MortonEncode(x, y, z uint32) uint32 {
	return expandBits(x) | (expandBits(y) << 1) | (expandBits(z) << 2)
}

func compactBits(v uint32) uint32 {
	x := v & 0x09249249
	x = (x | (x >> 2)) & 0x030C30C3
	x = (x | (x >> 4)) & 0x0300F00F
	x = (x | (x >> 8)) & 0x030000FF
	x = (x | (x >> 16)) & 0x000003FF
	return x
}

// MortonDecode inverts MortonEncode.
func MortonDecode(code uint32) (x, y, z uint32) {
	return compactBits(code), compactBits(code >> 1), compactBits(code >> 2)
}

// CellMorton returns the Morton code of the cell containing a world
// position under this grid config.
func (c Config) CellMorton(x, y, z float32) uint32 {
	cx, cy, cz := c.CellCoord(x, y, z)
	return MortonEncode(cx, cy, cz)
}

// NeighborOffsets mirrors the WGSL NEIGHBOR_OFFSETS table: the 27
// integer offsets (including self) visited by the neighbor loop.
var NeighborOffsets = [27][3]int32{
	{-1, -1, -1}, {0, -1, -1}, {1, -1, -1},
	{-1, 0, -1}, {0, 0, -1}, {1, 0, -1},
	{-1, 1, -1}, {0, 1, -1}, {1, 1, -1},
	{-1, -1, 0}, {0, -1, 0}, {1, -1, 0},
	{-1, 0, 0}, {0, 0, 0}, {1, 0, 0},
	{-1, 1, 0}, {0, 1, 0}, {1, 1, 0},
	{-1, -1, 1}, {0, -1, 1}, {1, -1, 1},
	{-1, 0, 1}, {0, 0, 1}, {1, 0, 1},
	{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
}

// CellEmpty is the sentinel marking an out-of-range or empty cell.
const CellEmpty uint32 = 0xFFFFFFFF

// MortonWGSL declares expand_bits/morton_encode/pos_to_cell/
// pos_to_morton/compact_bits/morton_decode.
const MortonWGSL = `
fn expand_bits(v: u32) -> u32 {
    var x = v & 0x000003FFu;
    x = (x | (x << 16u)) & 0x030000FFu;
    x = (x | (x <<  8u)) & 0x0300F00Fu;
    x = (x | (x <<  4u)) & 0x030C30C3u;
    x = (x | (x <<  2u)) & 0x09249249u;
    return x;
}

fn morton_encode(x: u32, y: u32, z: u32) -> u32 {
    return expand_bits(x) | (expand_bits(y) << 1u) | (expand_bits(z) << 2u);
}

fn pos_to_cell(pos: vec3<f32>, cell_size: f32, grid_res: u32) -> vec3<u32> {
    let half_grid = f32(grid_res) * cell_size * 0.5;
    let normalized = (pos + vec3<f32>(half_grid)) / cell_size;
    let clamped = clamp(normalized, vec3<f32>(0.0), vec3<f32>(f32(grid_res - 1u)));
    return vec3<u32>(clamped);
}

fn pos_to_morton(pos: vec3<f32>, cell_size: f32, grid_res: u32) -> u32 {
    let cell = pos_to_cell(pos, cell_size, grid_res);
    return morton_encode(cell.x, cell.y, cell.z);
}

fn compact_bits(v: u32) -> u32 {
    var x = v & 0x09249249u;
    x = (x | (x >>  2u)) & 0x030C30C3u;
    x = (x | (x >>  4u)) & 0x0300F00Fu;
    x = (x | (x >>  8u)) & 0x030000FFu;
    x = (x | (x >> 16u)) & 0x000003FFu;
    return x;
}

fn morton_decode(code: u32) -> vec3<u32> {
    return vec3<u32>(
        compact_bits(code),
        compact_bits(code >> 1u),
        compact_bits(code >> 2u)
    );
}
`

// ComputeMortonWGSL is the pass that writes each particle's Morton
// code and identity index into the unsorted key/value buffers.
const ComputeMortonWGSL = `
struct SpatialParams {
    cell_size: f32,
    grid_resolution: u32,
    num_particles: u32,
    _pad: u32,
};

@group(0) @binding(0) var<storage, read> particles: array<Particle>;
@group(0) @binding(1) var<storage, read_write> morton_codes: array<u32>;
@group(0) @binding(2) var<storage, read_write> particle_indices: array<u32>;
@group(0) @binding(3) var<uniform> params: SpatialParams;

@compute @workgroup_size(256)
fn compute_morton(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if idx >= params.num_particles {
        return;
    }

    let pos = particles[idx].position;
    morton_codes[idx] = pos_to_morton(pos, params.cell_size, params.grid_resolution);
    particle_indices[idx] = idx;
}
`

// RadixHistogramWGSL is one LSD radix sort pass's histogram stage.
const RadixHistogramWGSL = `
struct SortParams {
    num_elements: u32,
    bit_offset: u32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<storage, read> keys: array<u32>;
@group(0) @binding(1) var<storage, read_write> histogram: array<atomic<u32>>;
@group(0) @binding(2) var<uniform> params: SortParams;

const RADIX_BITS: u32 = 4u;
const RADIX_SIZE: u32 = 16u;

@compute @workgroup_size(256)
fn radix_histogram(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if idx >= params.num_elements {
        return;
    }

    let key = keys[idx];
    let digit = (key >> params.bit_offset) & (RADIX_SIZE - 1u);
    atomicAdd(&histogram[digit], 1u);
}
`

// PrefixSumWGSL is the 256-wide single-workgroup exclusive scan used
// over the 16-entry histogram (padded to 256 lanes).
const PrefixSumWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;
@group(0) @binding(1) var<uniform> count: u32;

var<workgroup> temp: array<u32, 256>;

@compute @workgroup_size(256)
fn prefix_sum(
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) group_id: vec3<u32>
) {
    let tid = local_id.x;

    if tid < count {
        temp[tid] = data[tid];
    } else {
        temp[tid] = 0u;
    }
    workgroupBarrier();

    for (var stride = 1u; stride < 256u; stride *= 2u) {
        let idx = (tid + 1u) * stride * 2u - 1u;
        if idx < 256u {
            temp[idx] += temp[idx - stride];
        }
        workgroupBarrier();
    }

    if tid == 0u {
        temp[255] = 0u;
    }
    workgroupBarrier();

    for (var stride = 128u; stride > 0u; stride /= 2u) {
        let idx = (tid + 1u) * stride * 2u - 1u;
        if idx < 256u {
            let t = temp[idx - stride];
            temp[idx - stride] = temp[idx];
            temp[idx] += t;
        }
        workgroupBarrier();
    }

    if tid < count {
        data[tid] = temp[tid];
    }
}
`

// RadixScatterWGSL is one LSD radix sort pass's scatter stage.
const RadixScatterWGSL = `
struct SortParams {
    num_elements: u32,
    bit_offset: u32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<storage, read> keys_in: array<u32>;
@group(0) @binding(1) var<storage, read> vals_in: array<u32>;
@group(0) @binding(2) var<storage, read_write> keys_out: array<u32>;
@group(0) @binding(3) var<storage, read_write> vals_out: array<u32>;
@group(0) @binding(4) var<storage, read_write> histogram: array<atomic<u32>>;
@group(0) @binding(5) var<uniform> params: SortParams;

const RADIX_BITS: u32 = 4u;
const RADIX_SIZE: u32 = 16u;

@compute @workgroup_size(256)
fn radix_scatter(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if idx >= params.num_elements {
        return;
    }

    let key = keys_in[idx];
    let val = vals_in[idx];
    let digit = (key >> params.bit_offset) & (RADIX_SIZE - 1u);

    let dest = atomicAdd(&histogram[digit], 1u);

    keys_out[dest] = key;
    vals_out[dest] = val;
}
`

// BuildCellTableWGSL sets cell_start/cell_end from the sorted Morton
// codes; both arrays must be pre-cleared to CellEmpty.
const BuildCellTableWGSL = `
struct SpatialParams {
    cell_size: f32,
    grid_resolution: u32,
    num_particles: u32,
    _pad: u32,
};

@group(0) @binding(0) var<storage, read> sorted_morton: array<u32>;
@group(0) @binding(1) var<storage, read_write> cell_start: array<u32>;
@group(0) @binding(2) var<storage, read_write> cell_end: array<u32>;
@group(0) @binding(3) var<uniform> params: SpatialParams;

@compute @workgroup_size(256)
fn build_cell_table(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if idx >= params.num_particles {
        return;
    }

    let code = sorted_morton[idx];

    if idx == 0u {
        cell_start[code] = 0u;
    } else {
        let prev_code = sorted_morton[idx - 1u];
        if code != prev_code {
            cell_start[code] = idx;
            cell_end[prev_code] = idx;
        }
    }

    if idx == params.num_particles - 1u {
        cell_end[code] = params.num_particles;
    }
}
`

// ClearHistogramWGSL zeroes the 16-bucket radix histogram; dispatched
// as a single workgroup before every histogram stage.
const ClearHistogramWGSL = `
@group(0) @binding(0) var<storage, read_write> histogram: array<u32>;

@compute @workgroup_size(16)
fn clear_histogram(@builtin(global_invocation_id) global_id: vec3<u32>) {
    if global_id.x < 16u {
        histogram[global_id.x] = 0u;
    }
}
`

// ClearCellTableWGSL resets cell_start/cell_end to the empty sentinel
// before the cell-table build pass runs over the sorted keys.
const ClearCellTableWGSL = `
struct SpatialParams {
    cell_size: f32,
    grid_resolution: u32,
    num_particles: u32,
    _pad: u32,
};

@group(0) @binding(0) var<storage, read_write> cell_start: array<u32>;
@group(0) @binding(1) var<storage, read_write> cell_end: array<u32>;
@group(0) @binding(2) var<uniform> params: SpatialParams;

@compute @workgroup_size(256)
fn clear_cell_table(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let total = params.grid_resolution * params.grid_resolution * params.grid_resolution;
    let idx = global_id.x;
    if idx >= total {
        return;
    }
    cell_start[idx] = 0xFFFFFFFFu;
    cell_end[idx] = 0xFFFFFFFFu;
}
`

// NeighborUtilsWGSL declares NEIGHBOR_OFFSETS and neighbor_cell_morton.
const NeighborUtilsWGSL = `
const NEIGHBOR_OFFSETS: array<vec3<i32>, 27> = array<vec3<i32>, 27>(
    vec3<i32>(-1, -1, -1), vec3<i32>(0, -1, -1), vec3<i32>(1, -1, -1),
    vec3<i32>(-1,  0, -1), vec3<i32>(0,  0, -1), vec3<i32>(1,  0, -1),
    vec3<i32>(-1,  1, -1), vec3<i32>(0,  1, -1), vec3<i32>(1,  1, -1),
    vec3<i32>(-1, -1,  0), vec3<i32>(0, -1,  0), vec3<i32>(1, -1,  0),
    vec3<i32>(-1,  0,  0), vec3<i32>(0,  0,  0), vec3<i32>(1,  0,  0),
    vec3<i32>(-1,  1,  0), vec3<i32>(0,  1,  0), vec3<i32>(1,  1,  0),
    vec3<i32>(-1, -1,  1), vec3<i32>(0, -1,  1), vec3<i32>(1, -1,  1),
    vec3<i32>(-1,  0,  1), vec3<i32>(0,  0,  1), vec3<i32>(1,  0,  1),
    vec3<i32>(-1,  1,  1), vec3<i32>(0,  1,  1), vec3<i32>(1,  1,  1),
);

fn neighbor_cell_morton(cell: vec3<u32>, offset_idx: u32, grid_res: u32) -> u32 {
    let offset = NEIGHBOR_OFFSETS[offset_idx];
    let neighbor = vec3<i32>(cell) + offset;

    if neighbor.x < 0 || neighbor.y < 0 || neighbor.z < 0 ||
       neighbor.x >= i32(grid_res) || neighbor.y >= i32(grid_res) || neighbor.z >= i32(grid_res) {
        return 0xFFFFFFFFu;
    }

    return morton_encode(u32(neighbor.x), u32(neighbor.y), u32(neighbor.z));
}
`
