package spatial

import "sort"

// SortReference is a host-side model of the GPU LSD radix sort used by
// tests to check the even-pass invariant without a GPU: it returns
// particle indices in ascending-Morton order, stable on ties.
func SortReference(mortonCodes []uint32) (sortedCodes []uint32, sortedIndices []uint32) {
	n := len(mortonCodes)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return mortonCodes[idx[i]] < mortonCodes[idx[j]] })

	sortedCodes = make([]uint32, n)
	sortedIndices = make([]uint32, n)
	for i, p := range idx {
		sortedCodes[i] = mortonCodes[p]
		sortedIndices[i] = uint32(p)
	}
	return sortedCodes, sortedIndices
}

// BuildCellTableReference mirrors BuildCellTableWGSL on the host:
// cell_start/cell_end are sized to totalCells and initialized to
// CellEmpty, then set from a single pass over sortedCodes.
func BuildCellTableReference(sortedCodes []uint32, totalCells uint32) (cellStart, cellEnd []uint32) {
	cellStart = make([]uint32, totalCells)
	cellEnd = make([]uint32, totalCells)
	for i := range cellStart {
		cellStart[i] = CellEmpty
		cellEnd[i] = CellEmpty
	}
	n := uint32(len(sortedCodes))
	for i := uint32(0); i < n; i++ {
		code := sortedCodes[i]
		if i == 0 {
			cellStart[code] = 0
		} else {
			prev := sortedCodes[i-1]
			if code != prev {
				cellStart[code] = i
				cellEnd[prev] = i
			}
		}
		if i == n-1 {
			cellEnd[code] = n
		}
	}
	return cellStart, cellEnd
}
