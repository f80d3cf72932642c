package spatial

import (
	"math/rand"
	"testing"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := New(0.1, 100); err == nil {
		t.Fatal("expected error for non-power-of-two resolution")
	}
}

func TestNewRejectsTooLargeResolution(t *testing.T) {
	if _, err := New(0.1, 2048); err == nil {
		t.Fatal("expected error for resolution > 1024")
	}
}

func TestRadixPassCountIsEven(t *testing.T) {
	for _, res := range []uint32{8, 16, 32, 64, 128, 256, 512, 1024} {
		c, err := New(0.1, res)
		if err != nil {
			t.Fatalf("New(%d): %v", res, err)
		}
		if passes := c.RadixPassCount(); passes%2 != 0 {
			t.Errorf("resolution %d: RadixPassCount() = %d, want even", res, passes)
		}
	}
}

func TestMortonEncodeDecodeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		x := uint32(rnd.Intn(1024))
		y := uint32(rnd.Intn(1024))
		z := uint32(rnd.Intn(1024))
		code := MortonEncode(x, y, z)
		dx, dy, dz := MortonDecode(code)
		if dx != x || dy != y || dz != z {
			t.Fatalf("round trip failed for (%d,%d,%d): got (%d,%d,%d)", x, y, z, dx, dy, dz)
		}
	}
}

func TestSortReferenceIsMonotonicAndPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	n := 1000
	codes := make([]uint32, n)
	for i := range codes {
		codes[i] = uint32(rnd.Intn(1 << 18))
	}
	sortedCodes, sortedIdx := SortReference(codes)
	for i := 1; i < n; i++ {
		if sortedCodes[i] < sortedCodes[i-1] {
			t.Fatalf("sorted codes not monotonic at %d", i)
		}
	}
	seen := make([]bool, n)
	for _, idx := range sortedIdx {
		if seen[idx] {
			t.Fatalf("index %d appears twice in permutation", idx)
		}
		seen[idx] = true
	}
	for i, idx := range sortedIdx {
		if sortedCodes[i] != codes[idx] {
			t.Fatalf("sorted code at %d does not match original code at permuted index %d", i, idx)
		}
	}
}

func TestCellTableSoundness(t *testing.T) {
	cfg, err := New(0.1, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rnd := rand.New(rand.NewSource(3))
	n := 500
	codes := make([]uint32, n)
	for i := range codes {
		x := rnd.Float32()*1.6 - 0.8
		y := rnd.Float32()*1.6 - 0.8
		z := rnd.Float32()*1.6 - 0.8
		codes[i] = cfg.CellMorton(x, y, z)
	}
	sortedCodes, _ := SortReference(codes)
	cellStart, cellEnd := BuildCellTableReference(sortedCodes, cfg.TotalCells())

	for i, code := range sortedCodes {
		start, end := cellStart[code], cellEnd[code]
		if start == CellEmpty || end == CellEmpty {
			t.Fatalf("particle %d's cell %d reported empty despite occupying it", i, code)
		}
		if uint32(i) < start || uint32(i) >= end {
			t.Fatalf("particle %d (code %d) not within [%d,%d)", i, code, start, end)
		}
	}
}

func TestNeighborOffsetsContainsSelf(t *testing.T) {
	found := false
	for _, off := range NeighborOffsets {
		if off == [3]int32{0, 0, 0} {
			found = true
		}
	}
	if !found {
		t.Fatal("neighbor offsets must include the zero (self) offset")
	}
	if len(NeighborOffsets) != 27 {
		t.Fatalf("expected 27 neighbor offsets, got %d", len(NeighborOffsets))
	}
}
