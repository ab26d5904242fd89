package cimb

// Interleave returns the physical cell index of each logical cell.
// Within every partition, block b takes cells b, b+blocks, b+2*blocks...
// so neighboring physical cells land in different ecc blocks.
func Interleave(n, blocks, partitions int) []int {
	if blocks < 1 {
		blocks = 1
	}
	if partitions < 1 {
		partitions = 1
	}
	order := make([]int, 0, n)
	size := n / partitions
	for p := 0; p < partitions; p++ {
		start := p * size
		end := start + size
		if p == partitions-1 {
			end = n
		}
		for b := 0; b < blocks; b++ {
			for i := start + b; i < end; i += blocks {
				order = append(order, i)
			}
		}
	}
	return order
}

// InverseLookup maps physical cell index to logical cell index
func InverseLookup(order []int) []int {
	lookup := make([]int, len(order))
	for logical, physical := range order {
		lookup[physical] = logical
	}
	return lookup
}
