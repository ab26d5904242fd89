package cimb

import (
	"math/bits"
	"sort"
)

const TileSize = 8

// sequency order of the 1D Walsh functions on 8 samples
var walshOrder = [8]int{0, 4, 6, 2, 3, 5, 7, 1}

// Tile is an 8x8 ink mask, bit r*8+c set where the pixel is inked
type Tile uint64

func (t Tile) Ink(x, y int) bool {
	return t&(1<<uint(y*TileSize+x)) != 0
}

// Tiles is the symbol alphabet: symbol value -> tile mask, which is also
// the average hash a clean capture of the tile produces.
type Tiles struct {
	bits  int
	tiles []Tile
}

// NewTiles builds 2^symbolBits 2D Walsh patterns, lowest frequency first.
// Any two differ in 32 of 64 pixels.
func NewTiles(symbolBits int) *Tiles {
	type pair struct{ kx, ky, rank, peak int }
	pairs := make([]pair, 0, 63)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if i == 0 && j == 0 {
				continue
			}
			peak := i
			if j > peak {
				peak = j
			}
			pairs = append(pairs, pair{kx: walshOrder[i], ky: walshOrder[j], rank: i + j, peak: peak})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].rank != pairs[b].rank {
			return pairs[a].rank < pairs[b].rank
		}
		return pairs[a].peak < pairs[b].peak
	})

	n := 1 << uint(symbolBits)
	t := &Tiles{bits: symbolBits, tiles: make([]Tile, 0, n)}
	for _, p := range pairs {
		if len(t.tiles) == n {
			break
		}
		t.tiles = append(t.tiles, walsh(p.kx, p.ky))
	}
	if len(t.tiles) < n {
		t.tiles = append(t.tiles, Tile(^uint64(0)))
	}
	return t
}

func walsh(kx, ky int) Tile {
	var t Tile
	for y := 0; y < TileSize; y++ {
		for x := 0; x < TileSize; x++ {
			fx := bits.OnesCount(uint(kx&x)) & 1
			fy := bits.OnesCount(uint(ky&y)) & 1
			if fx^fy == 1 {
				t |= 1 << uint(y*TileSize+x)
			}
		}
	}
	return t
}

func (t *Tiles) Len() int {
	return len(t.tiles)
}

func (t *Tiles) Tile(symbol uint32) Tile {
	return t.tiles[symbol]
}

func (t *Tiles) Hash(symbol uint32) uint64 {
	return uint64(t.tiles[symbol])
}
